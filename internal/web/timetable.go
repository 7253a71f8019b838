package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"urnik/internal/indicator"
	"urnik/internal/layout"
	appLog "urnik/internal/log"
	"urnik/internal/metrics"
	"urnik/internal/model"
	"urnik/internal/prefs"
)

var (
	errMissingEntity = errors.New("no class or professor selected")
	errPrefs         = errors.New("preferences unavailable")
)

// Query selects one timetable. Empty fields are filled from preferences
// and the current week.
type Query struct {
	Mode        prefs.Mode
	Week        string
	ClassID     string
	ProfessorID string
}

func queryFromRequest(r *http.Request) Query {
	q := r.URL.Query()
	return Query{
		Mode:        prefs.Mode(q.Get("mode")),
		Week:        q.Get("week"),
		ClassID:     q.Get("class"),
		ProfessorID: q.Get("professor"),
	}
}

// TimetableResponse is what /api/timetable returns: the resolved query,
// the timetable as fetched (or merged), its grid layout and the indicator.
type TimetableResponse struct {
	Mode        prefs.Mode           `json:"mode"`
	Week        string               `json:"week"`
	WeekLabel   string               `json:"weekLabel"`
	ClassID     string               `json:"classId,omitempty"`
	ProfessorID string               `json:"professorId,omitempty"`
	Timetable   model.Timetable      `json:"timetable"`
	Days        []model.DayLayout    `json:"layout"`
	Indicator   *model.TimeIndicator `json:"indicator"`

	Prefs   prefs.Preferences `json:"-"`
	Options model.Options     `json:"-"`
}

// resolve fills the query's gaps. It returns errMissingEntity when neither
// the request nor preferences name something to show.
func (s *Server) resolve(ctx context.Context, q Query) (Query, prefs.Preferences, model.Options, error) {
	p, err := s.prefs.Load()
	if err != nil {
		return q, p, model.Options{}, fmt.Errorf("%w: %v", errPrefs, err)
	}
	opts, err := s.options(ctx)
	if err != nil {
		return q, p, opts, err
	}

	if q.Mode == "" {
		switch {
		case q.ProfessorID != "":
			q.Mode = prefs.ModeProfessor
		case q.ClassID != "":
			q.Mode = prefs.ModeClass
		case p.Mode != "":
			q.Mode = p.Mode
		default:
			q.Mode = prefs.ModeClass
		}
	}
	if q.Week == "" {
		if w, ok := opts.CurrentWeek(); ok {
			q.Week = string(w.Value)
		} else if len(opts.Weeks) > 0 {
			q.Week = string(opts.Weeks[0].Value)
		}
	}

	switch q.Mode {
	case prefs.ModeProfessor:
		if q.ProfessorID == "" {
			q.ProfessorID = p.ProfessorID
		}
		if q.ProfessorID == "" {
			return q, p, opts, errMissingEntity
		}
	default:
		q.Mode = prefs.ModeClass
		if q.ClassID == "" {
			q.ClassID = p.ClassID
		}
		if q.ClassID == "" {
			return q, p, opts, errMissingEntity
		}
	}
	return q, p, opts, nil
}

// classFilter is the stored filter for classID. Groups are stored for the
// selected class only.
func classFilter(p prefs.Preferences, classID string) model.Filter {
	if p.ClassID == classID {
		return p.Filter()
	}
	return model.Filter{Subjects: p.SubjectsFor(classID)}
}

// fetch loads the timetable a resolved query names. Professor mode merges
// the per-class timetables into one.
func (s *Server) fetch(ctx context.Context, q Query, p prefs.Preferences) (model.Timetable, error) {
	if q.Mode == prefs.ModeProfessor {
		tts, err := s.api.ProfessorTimetables(ctx, q.Week, q.ProfessorID)
		if err != nil {
			return model.Timetable{}, err
		}
		return layout.Resolve(model.Payload{Multi: tts}), nil
	}

	tt, err := s.api.ClassTimetable(ctx, q.Week, q.ClassID, classFilter(p, q.ClassID))
	if err != nil {
		return model.Timetable{}, err
	}
	return layout.Resolve(model.Payload{Single: &tt}), nil
}

// Snapshot resolves, fetches and lays out one timetable.
func (s *Server) Snapshot(ctx context.Context, q Query) (TimetableResponse, error) {
	q, p, opts, err := s.resolve(ctx, q)
	if err != nil {
		return TimetableResponse{}, err
	}
	tt, err := s.fetch(ctx, q, p)
	if err != nil {
		return TimetableResponse{}, err
	}

	now := s.now().In(s.loc)
	start := time.Now()
	days := layout.Arrange(tt, now)
	metrics.ObserveSince(metrics.LayoutSeconds, start)

	resp := TimetableResponse{
		Mode:        q.Mode,
		Week:        q.Week,
		WeekLabel:   tt.WeekLabel,
		ClassID:     q.ClassID,
		ProfessorID: q.ProfessorID,
		Timetable:   tt,
		Days:        days,
		Indicator:   indicator.Compute(now, len(days)),
		Prefs:       p,
		Options:     opts,
	}
	if resp.WeekLabel == "" {
		for _, w := range opts.Weeks {
			if string(w.Value) == q.Week {
				resp.WeekLabel = w.Label
				break
			}
		}
	}
	appLog.Debug("timetable laid out", "mode", q.Mode, "week", q.Week, "days", len(days))
	return resp, nil
}

func (s *Server) handleTimetable(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Snapshot(r.Context(), queryFromRequest(r))
	if err != nil {
		s.snapshotError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) snapshotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errMissingEntity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errPrefs):
		appLog.Error("load preferences failed", err)
		writeError(w, http.StatusInternalServerError, errPrefs.Error())
	default:
		s.upstreamError(w, "timetable", err)
	}
}
