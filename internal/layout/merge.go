package layout

import (
	"sort"

	"urnik/internal/model"
)

// CombinedOwnerLabel is the owner label of a merged timetable.
const CombinedOwnerLabel = "Professor View"

// Resolve turns an upstream payload into the timetable to display. A single
// timetable is returned as is; a list is merged.
func Resolve(p model.Payload) model.Timetable {
	if p.Single != nil {
		return *p.Single
	}
	return Merge(p.Multi)
}

// Merge combines timetables of the same week into one. The first
// timetable's days form the skeleton; days of later timetables whose label
// is not in the skeleton are dropped. Every lesson is copied and tagged
// with the owner label of the timetable it came from, and each day is
// stably sorted by start slot so ties keep input order.
//
// A one-element slice is still tagged and relabeled. To show a single
// timetable untouched, pass it to Resolve as Payload.Single.
//
// The inputs are not modified.
func Merge(tts []model.Timetable) model.Timetable {
	if len(tts) == 0 {
		return model.Timetable{Days: []model.Day{}}
	}

	days := make([]model.Day, len(tts[0].Days))
	byLabel := make(map[string]int, len(days))
	for i, d := range tts[0].Days {
		days[i] = model.Day{Label: d.Label, Note: d.Note, Lessons: []model.Lesson{}}
		// First occurrence wins, as a linear find would.
		if _, dup := byLabel[d.Label]; !dup {
			byLabel[d.Label] = i
		}
	}

	for _, tt := range tts {
		for _, d := range tt.Days {
			idx, ok := byLabel[d.Label]
			if !ok {
				continue
			}
			for _, l := range d.Lessons {
				l.SourceName = tt.OwnerLabel
				days[idx].Lessons = append(days[idx].Lessons, l)
			}
		}
	}

	for i := range days {
		sortBySlot(days[i].Lessons)
	}

	return model.Timetable{
		OwnerLabel: CombinedOwnerLabel,
		WeekLabel:  tts[0].WeekLabel,
		Days:       days,
	}
}

func sortBySlot(lessons []model.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].Slot < lessons[j].Slot
	})
}
