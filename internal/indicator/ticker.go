package indicator

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "urnik/internal/log"
	"urnik/internal/model"
)

// DefaultSpec recomputes the indicator once a minute.
const DefaultSpec = "@every 1m"

// Ticker periodically recomputes the indicator for a view that shows
// dayCount columns. It does nothing until Start and must be stopped when
// the view goes away.
type Ticker struct {
	spec     string
	dayCount int
	loc      *time.Location
	now      func() time.Time
	onTick   func(*model.TimeIndicator)

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// TickerOption customizes a Ticker.
type TickerOption func(*Ticker)

// WithSpec overrides the cron schedule (robfig/cron syntax).
func WithSpec(spec string) TickerOption {
	return func(t *Ticker) { t.spec = spec }
}

// WithClock injects the time source; used by tests.
func WithClock(now func() time.Time) TickerOption {
	return func(t *Ticker) { t.now = now }
}

// WithLocation evaluates "now" in loc instead of time.Local.
func WithLocation(loc *time.Location) TickerOption {
	return func(t *Ticker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// NewTicker builds a stopped Ticker. onTick receives nil when the
// indicator should be hidden.
func NewTicker(dayCount int, onTick func(*model.TimeIndicator), opts ...TickerOption) *Ticker {
	t := &Ticker{
		spec:     DefaultSpec,
		dayCount: dayCount,
		loc:      time.Local,
		now:      time.Now,
		onTick:   onTick,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Tick computes the indicator immediately and hands it to the callback.
func (t *Ticker) Tick() *model.TimeIndicator {
	ind := Compute(t.now().In(t.loc), t.dayCount)
	if t.onTick != nil {
		t.onTick(ind)
	}
	return ind
}

// Start emits one tick right away and then follows the schedule. Calling
// Start on a running Ticker is a no-op. The first tick runs without the
// lock held, so onTick may call Running or Stop.
func (t *Ticker) Start() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}

	c := cron.New(cron.WithLocation(t.loc))
	if _, err := c.AddFunc(t.spec, func() { t.Tick() }); err != nil {
		t.mu.Unlock()
		return err
	}
	c.Start()
	t.cron = c
	t.running = true
	t.mu.Unlock()

	appLog.Debug("indicator ticker started", "spec", t.spec, "days", t.dayCount)
	t.Tick()
	return nil
}

// Stop halts the schedule and waits for a tick in flight to finish.
func (t *Ticker) Stop() {
	t.mu.Lock()
	c := t.cron
	wasRunning := t.running
	t.cron = nil
	t.running = false
	t.mu.Unlock()

	if !wasRunning {
		return
	}
	<-c.Stop().Done()
	appLog.Debug("indicator ticker stopped", "spec", t.spec)
}

// Running reports whether the schedule is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
