package export

import (
	"strings"
	"testing"
	"time"

	"urnik/internal/model"
)

func intPtr(i int) *int { return &i }

func sampleTimetable() model.Timetable {
	return model.Timetable{
		OwnerLabel: "R1A",
		Days: []model.Day{
			{Label: "Ponedeljek 3.11.", Lessons: []model.Lesson{
				{Slot: 1, Duration: 2, Subject: "MAT", Classroom: "P12", Teacher: "Novak"},
				{Slot: 4, Duration: 1, Subject: "FIZ", Group: intPtr(2), Note: "lab"},
				{Slot: 40, Duration: 1, Subject: "OUT"},
			}},
			{Label: "Torek", Lessons: []model.Lesson{
				{Slot: 1, Duration: 1, Subject: "NODATE"},
			}},
		},
	}
}

func mustLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Ljubljana")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestBuildICSEvents(t *testing.T) {
	loc := mustLocation(t)
	ref := time.Date(2025, 11, 1, 12, 0, 0, 0, loc)

	data, n, err := BuildICS(sampleTimetable(), ICSOptions{Reference: ref, Location: loc})
	if err != nil {
		t.Fatalf("BuildICS: %v", err)
	}
	if n != 2 {
		t.Fatalf("event count = %d, want 2", n)
	}

	events, err := ParseICS(data)
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("parsed %d events, want 2", len(events))
	}

	mat := events[0]
	wantStart := time.Date(2025, 11, 3, 7, 15, 0, 0, loc)
	wantEnd := time.Date(2025, 11, 3, 8, 50, 0, 0, loc)
	if !mat.Start.Equal(wantStart) || !mat.End.Equal(wantEnd) {
		t.Errorf("MAT = %v..%v, want %v..%v", mat.Start, mat.End, wantStart, wantEnd)
	}
	if mat.Summary != "MAT" || mat.Location != "P12" {
		t.Errorf("MAT event = %+v", mat)
	}
	if events[1].Summary != "FIZ (skupina 2)" {
		t.Errorf("group summary = %q", events[1].Summary)
	}
	if mat.RRule != "" {
		t.Errorf("unexpected RRULE %q", mat.RRule)
	}
}

func TestBuildICSUIDsAreStable(t *testing.T) {
	loc := mustLocation(t)
	opts := ICSOptions{Reference: time.Date(2025, 11, 1, 0, 0, 0, 0, loc), Location: loc}

	a, _, _ := BuildICS(sampleTimetable(), opts)
	opts.Reference = opts.Reference.Add(time.Hour)
	b, _, _ := BuildICS(sampleTimetable(), opts)

	ea, _ := ParseICS(a)
	eb, _ := ParseICS(b)
	for i := range ea {
		if ea[i].UID != eb[i].UID {
			t.Errorf("event %d UID changed: %s vs %s", i, ea[i].UID, eb[i].UID)
		}
		if !strings.HasSuffix(ea[i].UID, "@urnik") {
			t.Errorf("UID %q lacks domain", ea[i].UID)
		}
	}
	if ea[0].UID == ea[1].UID {
		t.Error("distinct lessons share a UID")
	}
}

func TestBuildICSWeeklyRepeat(t *testing.T) {
	loc := mustLocation(t)
	data, _, err := BuildICS(sampleTimetable(), ICSOptions{
		Reference: time.Date(2025, 11, 1, 0, 0, 0, 0, loc),
		Location:  loc,
		Repeat:    3,
	})
	if err != nil {
		t.Fatalf("BuildICS: %v", err)
	}
	events, err := ParseICS(data)
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if !strings.Contains(events[0].RRule, "FREQ=WEEKLY") || !strings.Contains(events[0].RRule, "COUNT=3") {
		t.Fatalf("RRULE = %q", events[0].RRule)
	}
	occ, err := Occurrences(events[0])
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	if len(occ) != 3 {
		t.Fatalf("occurrences = %d, want 3", len(occ))
	}
	if got := occ[2].Sub(occ[0]); got != 14*24*time.Hour {
		t.Errorf("span = %v, want two weeks", got)
	}
}

func TestDayDateCrossesYearBoundary(t *testing.T) {
	ref := time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)
	got, ok := dayDate(model.Day{Label: "Petek 2.1."}, ref, time.UTC)
	if !ok || got.Year() != 2026 {
		t.Errorf("2.1. from late December = %v, %v; want 2026", got, ok)
	}

	ref = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	got, ok = dayDate(model.Day{Label: "Ponedeljek 29.12."}, ref, time.UTC)
	if !ok || got.Year() != 2025 {
		t.Errorf("29.12. from early January = %v, %v; want 2025", got, ok)
	}
}

func TestParseICSRejectsEmpty(t *testing.T) {
	if _, err := ParseICS(nil); err == nil {
		t.Error("expected error for empty body")
	}
}
