package model

// Filter narrows a class timetable to chosen groups and subjects.
// Groups maps a subject name to the group number attended.
type Filter struct {
	Groups   map[string]int `json:"groups"`
	Subjects []string       `json:"subjects"`
}

// Empty reports whether the filter selects nothing, in which case the
// unfiltered timetable is requested.
func (f Filter) Empty() bool {
	return len(f.Groups) == 0 && len(f.Subjects) == 0
}
