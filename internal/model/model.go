package model

import (
	"regexp"
	"strconv"
	"time"
)

// Lesson is a single timetable entry as delivered by the upstream API.
// It occupies slots [Slot, Slot+Duration-1].
type Lesson struct {
	Slot        int    `json:"slot"`
	Duration    int    `json:"duration"`
	Color       string `json:"color"`
	DayName     string `json:"dayName"`
	Subject     string `json:"subject"`
	Teacher     string `json:"teacher"`
	Classroom   string `json:"classroom"`
	Note        string `json:"note"`
	SpecialNote string `json:"specialNote"`
	Group       *int   `json:"group"`

	// SourceName is set only on lessons produced by merging several
	// timetables and holds the owner label of the originating timetable.
	SourceName string `json:"sourceName,omitempty"`
}

// End returns the exclusive end slot.
func (l Lesson) End() int {
	return l.Slot + l.Duration
}

// Overlaps reports whether the two lessons share at least one slot.
func (l Lesson) Overlaps(o Lesson) bool {
	return l.Slot < o.End() && o.Slot < l.End()
}

// Day is one column of a timetable. Label is free-form and may embed a
// "D.M." date, e.g. "Ponedeljek 3.11.".
type Day struct {
	Label   string   `json:"day"`
	Lessons []Lesson `json:"classes"`
	Note    *string  `json:"note"`
}

var dayDatePattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.?`)

// Date extracts the day/month embedded in the label and places it in the
// given year. ok is false when the label carries no date.
func (d Day) Date(year int, loc *time.Location) (t time.Time, ok bool) {
	m := dayDatePattern.FindStringSubmatch(d.Label)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
}

// IsToday reports whether the label's day/month matches now.
func (d Day) IsToday(now time.Time) bool {
	m := dayDatePattern.FindStringSubmatch(d.Label)
	if m == nil {
		return false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return now.Day() == day && int(now.Month()) == month
}

// Timetable is one entity's (class or professor) week. The upstream calls
// the owner "className" even for professor timetables.
type Timetable struct {
	OwnerLabel string `json:"className"`
	WeekLabel  string `json:"weekLabel"`
	Days       []Day  `json:"days"`
}

// Payload is a decoded upstream timetable answer: class mode yields a single
// timetable, professor mode one timetable per class taught.
type Payload struct {
	Single *Timetable
	Multi  []Timetable
}

// LanedLesson is a Lesson placed inside its overlap cluster.
type LanedLesson struct {
	Lesson
	EndSlot   int `json:"endSlot"`
	Lane      int `json:"lane"`
	LaneCount int `json:"laneCount"`
}

// DayLayout is a day ready for the grid renderer.
type DayLayout struct {
	Label   string        `json:"day"`
	Note    *string       `json:"note"`
	Today   bool          `json:"today"`
	Lessons []LanedLesson `json:"lessons"`
}

// TimeIndicator marks "now" on the grid. TopFraction is the vertical
// position within the visible daily window.
type TimeIndicator struct {
	TopFraction float64 `json:"topFraction"`
	DayIndex    int     `json:"dayIndex"`
}
