package layout

import (
	"time"

	"urnik/internal/model"
)

// ArrangeDay runs the grid layout for one day: lessons are sorted by start
// slot (stable), clustered, and laned. The day itself is left untouched.
func ArrangeDay(day model.Day) []model.LanedLesson {
	lessons := make([]model.Lesson, len(day.Lessons))
	copy(lessons, day.Lessons)
	sortBySlot(lessons)

	out := make([]model.LanedLesson, 0, len(lessons))
	for _, c := range Cluster(lessons) {
		out = append(out, AssignLanes(c)...)
	}
	return out
}

// Arrange lays out every day of a timetable. now is used only to flag the
// day whose label date is today.
func Arrange(tt model.Timetable, now time.Time) []model.DayLayout {
	out := make([]model.DayLayout, 0, len(tt.Days))
	for _, d := range tt.Days {
		out = append(out, model.DayLayout{
			Label:   d.Label,
			Note:    d.Note,
			Today:   d.IsToday(now),
			Lessons: ArrangeDay(d),
		})
	}
	return out
}
