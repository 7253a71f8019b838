package indicator

import (
	"time"

	"urnik/internal/model"
	"urnik/internal/slots"
)

// Compute places "now" on the grid. It returns nil when now is outside the
// visible window [07:15, 20:30) or when today's Monday-first column is not
// among the dayCount displayed days.
func Compute(now time.Time, dayCount int) *model.TimeIndicator {
	minutes := now.Hour()*60 + now.Minute()
	if minutes < slots.WindowStart || minutes >= slots.WindowEnd {
		return nil
	}

	col := Column(now.Weekday())
	if col < 0 || col >= dayCount {
		return nil
	}

	return &model.TimeIndicator{
		TopFraction: float64(minutes-slots.WindowStart) / float64(slots.WindowEnd-slots.WindowStart),
		DayIndex:    col,
	}
}

// Column maps a weekday to a Monday-first column index; Sunday is 6.
func Column(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}
