// Package slots holds the school's fixed daily period table.
package slots

import (
	"strconv"
	"strings"
)

// TimeSlot is one 45-minute teaching period, wall-clock "H:MM".
type TimeSlot struct {
	Start string
	End   string
}

// Unavailable is shown for lessons that fall outside the table.
const Unavailable = "N/A"

var table = [...]TimeSlot{
	{"7:15", "8:00"},
	{"8:05", "8:50"},
	{"8:55", "9:40"},
	{"9:45", "10:30"},
	{"10:35", "11:20"},
	{"11:25", "12:10"},
	{"12:15", "13:00"},
	{"13:05", "13:50"},
	{"13:55", "14:40"},
	{"14:45", "15:30"},
	{"15:35", "16:20"},
	{"16:25", "17:10"},
	{"17:15", "18:00"},
	{"18:05", "18:50"},
	{"18:55", "19:40"},
	{"19:45", "20:30"},
}

// Count is the number of slots per day.
const Count = len(table)

// Visible daily window in minutes since midnight.
const (
	WindowStart = 7*60 + 15
	WindowEnd   = 20*60 + 30
)

// Lookup returns the 1-based slot i.
func Lookup(i int) (TimeSlot, bool) {
	if i < 1 || i > Count {
		return TimeSlot{}, false
	}
	return table[i-1], true
}

// Range formats the wall-clock span of a lesson, e.g. "7:15-8:50", or
// Unavailable when any part of it lies outside the table.
func Range(slot, duration int) string {
	first, ok := Lookup(slot)
	if !ok {
		return Unavailable
	}
	last, ok := Lookup(slot + duration - 1)
	if !ok || duration < 1 {
		return Unavailable
	}
	return first.Start + "-" + last.End
}

// Minutes converts "H:MM" to minutes since midnight.
func Minutes(clock string) (int, bool) {
	h, m, found := strings.Cut(clock, ":")
	if !found {
		return 0, false
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// Bounds returns start and end minutes since midnight for a lesson span.
func Bounds(slot, duration int) (start, end int, ok bool) {
	first, ok1 := Lookup(slot)
	last, ok2 := Lookup(slot + duration - 1)
	if !ok1 || !ok2 || duration < 1 {
		return 0, 0, false
	}
	start, _ = Minutes(first.Start)
	end, _ = Minutes(last.End)
	return start, end, true
}
