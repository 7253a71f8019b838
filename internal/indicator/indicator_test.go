package indicator

import (
	"math"
	"sync"
	"testing"
	"time"

	"urnik/internal/model"
)

// 2025-11-03 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.November, day, hour, minute, 0, 0, time.UTC)
}

func TestComputeBoundaries(t *testing.T) {
	got := Compute(at(3, 7, 15), 5)
	if got == nil || got.TopFraction != 0 || got.DayIndex != 0 {
		t.Fatalf("07:15 Monday = %+v, want top 0 column 0", got)
	}
	if got := Compute(at(3, 7, 14), 5); got != nil {
		t.Errorf("07:14 should be hidden, got %+v", got)
	}
	if got := Compute(at(3, 20, 30), 5); got != nil {
		t.Errorf("20:30 should be hidden, got %+v", got)
	}
	if got := Compute(at(3, 23, 0), 5); got != nil {
		t.Errorf("23:00 should be hidden, got %+v", got)
	}
	last := Compute(at(3, 20, 29), 5)
	if last == nil || last.TopFraction >= 1 {
		t.Errorf("20:29 = %+v, want fraction < 1", last)
	}
}

func TestComputeFraction(t *testing.T) {
	// 13:52:30 truncates to 13:52 -> 397 of 795 minutes.
	got := Compute(time.Date(2025, time.November, 5, 13, 52, 30, 0, time.UTC), 5)
	if got == nil {
		t.Fatal("expected indicator")
	}
	want := 397.0 / 795.0
	if math.Abs(got.TopFraction-want) > 1e-9 {
		t.Errorf("TopFraction = %f, want %f", got.TopFraction, want)
	}
	if got.DayIndex != 2 {
		t.Errorf("Wednesday column = %d, want 2", got.DayIndex)
	}
}

func TestComputeWeekendColumns(t *testing.T) {
	if got := Compute(at(8, 10, 0), 5); got != nil {
		t.Errorf("Saturday with 5 columns should be hidden, got %+v", got)
	}
	if got := Compute(at(8, 10, 0), 6); got == nil || got.DayIndex != 5 {
		t.Errorf("Saturday with 6 columns = %+v", got)
	}
	if got := Compute(at(9, 10, 0), 7); got == nil || got.DayIndex != 6 {
		t.Errorf("Sunday with 7 columns = %+v", got)
	}
	if got := Compute(at(3, 10, 0), 0); got != nil {
		t.Errorf("no columns should hide the indicator, got %+v", got)
	}
}

func TestColumn(t *testing.T) {
	want := map[time.Weekday]int{
		time.Monday: 0, time.Tuesday: 1, time.Wednesday: 2, time.Thursday: 3,
		time.Friday: 4, time.Saturday: 5, time.Sunday: 6,
	}
	for d, c := range want {
		if got := Column(d); got != c {
			t.Errorf("Column(%s) = %d, want %d", d, got, c)
		}
	}
}

func TestTickerLifecycle(t *testing.T) {
	var mu sync.Mutex
	var ticks []*model.TimeIndicator

	tk := NewTicker(5, func(ind *model.TimeIndicator) {
		mu.Lock()
		ticks = append(ticks, ind)
		mu.Unlock()
	}, WithClock(func() time.Time { return at(4, 9, 0) }), WithLocation(time.UTC))

	if tk.Running() {
		t.Fatal("new ticker should not be running")
	}
	if err := tk.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tk.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !tk.Running() {
		t.Fatal("ticker should be running")
	}

	tk.Stop()
	tk.Stop()
	if tk.Running() {
		t.Fatal("ticker should be stopped")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 1 {
		t.Fatalf("expected exactly the immediate tick, got %d", len(ticks))
	}
	if ticks[0] == nil || ticks[0].DayIndex != 1 {
		t.Errorf("Tuesday tick = %+v", ticks[0])
	}
}

func TestTickerRejectsBadSpec(t *testing.T) {
	tk := NewTicker(5, nil, WithSpec("not a schedule"))
	if err := tk.Start(); err == nil {
		t.Fatal("expected error for invalid spec")
	}
	if tk.Running() {
		t.Error("ticker must not run after a failed Start")
	}
}

func TestTickerCallbackMayStopIt(t *testing.T) {
	var tk *Ticker
	var sawRunning bool
	tk = NewTicker(5, func(*model.TimeIndicator) {
		sawRunning = tk.Running()
		tk.Stop()
	}, WithClock(func() time.Time { return at(4, 9, 0) }), WithLocation(time.UTC))

	done := make(chan error, 1)
	go func() { done <- tk.Start() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start deadlocked with a callback that stops the ticker")
	}
	if !sawRunning {
		t.Error("callback should see the ticker running")
	}
	if tk.Running() {
		t.Error("ticker should be stopped by its callback")
	}
}
