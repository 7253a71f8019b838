package layout

import "urnik/internal/model"

// AssignLanes places the lessons of one cluster into lanes, first fit: a
// lesson goes into the lowest lane whose last lesson has ended by the time
// it starts, otherwise it opens a new lane. All returned lessons carry the
// cluster's total lane count.
func AssignLanes(cluster []model.Lesson) []model.LanedLesson {
	out := make([]model.LanedLesson, len(cluster))
	// laneEnd[i] is the exclusive end of the last lesson in lane i.
	var laneEnd []int

	for i, l := range cluster {
		lane := -1
		for j, end := range laneEnd {
			if end <= l.Slot {
				lane = j
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnd)
			laneEnd = append(laneEnd, 0)
		}
		laneEnd[lane] = l.End()

		out[i] = model.LanedLesson{
			Lesson:  l,
			EndSlot: l.End(),
			Lane:    lane,
		}
	}

	for i := range out {
		out[i].LaneCount = len(laneEnd)
	}
	return out
}
