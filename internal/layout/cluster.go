package layout

import "urnik/internal/model"

// Cluster splits lessons sorted by start slot into maximal runs of
// transitively overlapping lessons. A lesson opens a new cluster when it
// starts at or after the latest end seen in the current one.
func Cluster(lessons []model.Lesson) [][]model.Lesson {
	if len(lessons) == 0 {
		return nil
	}

	var clusters [][]model.Lesson
	current := []model.Lesson{lessons[0]}
	maxEnd := lessons[0].End()

	for _, l := range lessons[1:] {
		if l.Slot >= maxEnd {
			clusters = append(clusters, current)
			current = []model.Lesson{l}
			maxEnd = l.End()
			continue
		}
		current = append(current, l)
		if e := l.End(); e > maxEnd {
			maxEnd = e
		}
	}
	return append(clusters, current)
}
