package layout

import (
	"reflect"
	"testing"
	"time"

	"urnik/internal/model"
)

func lesson(slot, duration int, subject string) model.Lesson {
	return model.Lesson{Slot: slot, Duration: duration, Subject: subject}
}

func week(owner string, days ...model.Day) model.Timetable {
	return model.Timetable{OwnerLabel: owner, WeekLabel: "3.11 - 7.11", Days: days}
}

func TestResolveSingleIsUnchanged(t *testing.T) {
	tt := week("RAI 1",
		model.Day{Label: "Pon 3.11.", Lessons: []model.Lesson{lesson(4, 1, "B"), lesson(1, 2, "A")}},
	)
	got := Resolve(model.Payload{Single: &tt})
	if !reflect.DeepEqual(got, tt) {
		t.Fatalf("single timetable changed:\n got %+v\nwant %+v", got, tt)
	}
}

func TestMergeSingleElementKeepsLessons(t *testing.T) {
	tt := week("RAI 1",
		model.Day{Label: "Pon", Lessons: []model.Lesson{lesson(1, 2, "A"), lesson(3, 1, "B")}},
		model.Day{Label: "Tor", Lessons: []model.Lesson{}},
	)
	got := Merge([]model.Timetable{tt})

	if len(got.Days) != 2 || got.WeekLabel != tt.WeekLabel || got.OwnerLabel != CombinedOwnerLabel {
		t.Fatalf("unexpected merge result %+v", got)
	}
	for i, l := range got.Days[0].Lessons {
		want := tt.Days[0].Lessons[i]
		want.SourceName = "RAI 1"
		if l != want {
			t.Errorf("lesson %d = %+v, want %+v", i, l, want)
		}
	}
}

func TestMergeTagsAndSorts(t *testing.T) {
	a := week("X",
		model.Day{Label: "Pon", Lessons: []model.Lesson{lesson(5, 1, "a5"), lesson(2, 1, "a2")}},
		model.Day{Label: "Tor", Lessons: []model.Lesson{lesson(1, 1, "a1")}},
	)
	b := week("Y",
		model.Day{Label: "Pon", Lessons: []model.Lesson{lesson(2, 2, "b2"), lesson(1, 1, "b1")}},
		model.Day{Label: "Sre", Lessons: []model.Lesson{lesson(1, 1, "dropped")}},
	)

	got := Merge([]model.Timetable{a, b})

	if len(got.Days) != 2 {
		t.Fatalf("expected skeleton of 2 days, got %d", len(got.Days))
	}
	var subjects, sources []string
	for _, l := range got.Days[0].Lessons {
		subjects = append(subjects, l.Subject)
		sources = append(sources, l.SourceName)
	}
	// Slot 2 tie: a2 came first in merge order.
	if want := []string{"b1", "a2", "b2", "a5"}; !reflect.DeepEqual(subjects, want) {
		t.Errorf("subjects = %v, want %v", subjects, want)
	}
	if want := []string{"Y", "X", "Y", "X"}; !reflect.DeepEqual(sources, want) {
		t.Errorf("sources = %v, want %v", sources, want)
	}
	if got.Days[1].Lessons[0].SourceName != "X" {
		t.Error("Tor lesson should be tagged X")
	}

	// Inputs untouched.
	if a.Days[0].Lessons[0].SourceName != "" || a.Days[0].Lessons[0].Subject != "a5" {
		t.Error("merge mutated its input")
	}
}

func TestMergeEmpty(t *testing.T) {
	got := Merge(nil)
	if got.OwnerLabel != "" || got.WeekLabel != "" || got.Days == nil || len(got.Days) != 0 {
		t.Errorf("unexpected empty merge %+v", got)
	}
	if r := Resolve(model.Payload{}); len(r.Days) != 0 {
		t.Errorf("empty payload should resolve to empty timetable")
	}
}

func TestCluster(t *testing.T) {
	lessons := []model.Lesson{lesson(1, 2, "a"), lesson(2, 1, "b"), lesson(4, 1, "c")}
	got := Cluster(lessons)
	if len(got) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(got))
	}
	if len(got[0]) != 2 || got[0][0].Subject != "a" || got[0][1].Subject != "b" {
		t.Errorf("first cluster = %+v", got[0])
	}
	if len(got[1]) != 1 || got[1][0].Subject != "c" {
		t.Errorf("second cluster = %+v", got[1])
	}
}

func TestClusterEdgeCases(t *testing.T) {
	if got := Cluster(nil); len(got) != 0 {
		t.Errorf("empty input gave %d clusters", len(got))
	}
	if got := Cluster([]model.Lesson{lesson(3, 1, "x")}); len(got) != 1 || len(got[0]) != 1 {
		t.Errorf("single lesson gave %+v", got)
	}
	// Running max: c starts before a ends even though b already ended.
	got := Cluster([]model.Lesson{lesson(1, 4, "a"), lesson(2, 1, "b"), lesson(4, 2, "c"), lesson(6, 1, "d")})
	if len(got) != 2 || len(got[0]) != 3 {
		t.Errorf("running max not respected: %+v", got)
	}
}

func lanesOf(ll []model.LanedLesson) []int {
	out := make([]int, len(ll))
	for i, l := range ll {
		out[i] = l.Lane
	}
	return out
}

func TestAssignLanesOverlapping(t *testing.T) {
	got := AssignLanes([]model.Lesson{lesson(1, 3, "a"), lesson(2, 1, "b"), lesson(2, 1, "c")})
	if want := []int{0, 1, 2}; !reflect.DeepEqual(lanesOf(got), want) {
		t.Errorf("lanes = %v, want %v", lanesOf(got), want)
	}
	for _, l := range got {
		if l.LaneCount != 3 {
			t.Errorf("LaneCount = %d, want 3", l.LaneCount)
		}
		if l.EndSlot != l.Slot+l.Duration {
			t.Errorf("EndSlot = %d for %+v", l.EndSlot, l.Lesson)
		}
	}
}

func TestAssignLanesReusesFreedLane(t *testing.T) {
	got := AssignLanes([]model.Lesson{lesson(1, 3, "a"), lesson(2, 1, "b"), lesson(3, 1, "c")})
	if want := []int{0, 1, 1}; !reflect.DeepEqual(lanesOf(got), want) {
		t.Errorf("lanes = %v, want %v", lanesOf(got), want)
	}
	if got[0].LaneCount != 2 {
		t.Errorf("LaneCount = %d, want 2", got[0].LaneCount)
	}
}

func TestAssignLanesDisjoint(t *testing.T) {
	got := AssignLanes([]model.Lesson{lesson(1, 1, "a"), lesson(2, 1, "b"), lesson(3, 1, "c")})
	for _, l := range got {
		if l.Lane != 0 || l.LaneCount != 1 {
			t.Errorf("expected lane 0/1, got %d/%d", l.Lane, l.LaneCount)
		}
	}
}

func TestArrangeDayNoSharedLaneOverlap(t *testing.T) {
	day := model.Day{Label: "Pon", Lessons: []model.Lesson{
		lesson(5, 2, "e"), lesson(1, 3, "a"), lesson(2, 2, "b"), lesson(3, 3, "c"),
		lesson(9, 1, "f"), lesson(2, 1, "d"),
	}}
	got := ArrangeDay(day)
	if len(got) != len(day.Lessons) {
		t.Fatalf("lost lessons: %d of %d", len(got), len(day.Lessons))
	}
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if got[i].Lane == got[j].Lane && got[i].LaneCount == got[j].LaneCount &&
				got[i].Overlaps(got[j].Lesson) {
				t.Errorf("%s and %s share lane %d and overlap", got[i].Subject, got[j].Subject, got[i].Lane)
			}
		}
	}
	if got[len(got)-1].Subject != "f" || got[len(got)-1].LaneCount != 1 {
		t.Errorf("isolated lesson should be its own single-lane cluster: %+v", got[len(got)-1])
	}
	if day.Lessons[0].Subject != "e" {
		t.Error("ArrangeDay reordered its input")
	}
}

func TestArrangeIsDeterministic(t *testing.T) {
	a := week("X", model.Day{Label: "Pon 3.11.", Lessons: []model.Lesson{lesson(1, 3, "a"), lesson(2, 1, "b")}})
	b := week("Y", model.Day{Label: "Pon 3.11.", Lessons: []model.Lesson{lesson(2, 2, "c")}})
	payload := model.Payload{Multi: []model.Timetable{a, b}}
	now := time.Date(2025, time.November, 3, 9, 0, 0, 0, time.UTC)

	first := Arrange(Resolve(payload), now)
	second := Arrange(Resolve(payload), now)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("pipeline is not deterministic")
	}
	if !first[0].Today {
		t.Error("day should be flagged as today")
	}
	if first[0].Lessons[0].LaneCount != 3 {
		t.Errorf("LaneCount = %d, want 3", first[0].Lessons[0].LaneCount)
	}
}
