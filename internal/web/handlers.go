package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"urnik/internal/api"
	appLog "urnik/internal/log"
	"urnik/internal/model"
	"urnik/internal/prefs"
)

type optionsResponse struct {
	model.Options
	CurrentWeek string `json:"currentWeek"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r.Context())
	if err != nil {
		s.upstreamError(w, "options", err)
		return
	}
	resp := optionsResponse{Options: opts}
	if wk, ok := opts.CurrentWeek(); ok {
		resp.CurrentWeek = string(wk.Value)
	}
	writeJSON(w, http.StatusOK, resp)
}

type prefsResponse struct {
	prefs.Preferences
	NeedsOnboarding bool `json:"needsOnboarding"`
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, _ *http.Request) {
	p, err := s.prefs.Load()
	if err != nil {
		appLog.Error("load preferences failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefsResponse{Preferences: p, NeedsOnboarding: p.NeedsOnboarding()})
}

func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	var in prefs.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	switch in.Mode {
	case prefs.ModeClass:
		if in.ClassID == "" {
			writeError(w, http.StatusBadRequest, "classId is required")
			return
		}
	case prefs.ModeProfessor:
		if in.ProfessorID == "" {
			writeError(w, http.StatusBadRequest, "professorId is required")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "mode must be class or professor")
		return
	}

	p, err := s.prefs.Load()
	if err != nil {
		appLog.Error("load preferences failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	p.Apply(in)
	if err := s.prefs.Save(p); err != nil {
		appLog.Error("save preferences failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	appLog.Info("preferences saved", "mode", p.Mode, "class", p.ClassID, "professor", p.ProfessorID)

	p, _ = s.prefs.Load()
	writeJSON(w, http.StatusOK, prefsResponse{Preferences: p, NeedsOnboarding: p.NeedsOnboarding()})
}

type selectClassResponse struct {
	ClassID  string   `json:"classId"`
	Subjects []string `json:"subjects"`
}

// handleSelectClass switches the displayed class from the header and
// returns that class's stored subject selection.
func (s *Server) handleSelectClass(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classID")
	p, err := s.prefs.Load()
	if err != nil {
		appLog.Error("load preferences failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	subjects := p.SelectClass(classID)
	if err := s.prefs.Save(p); err != nil {
		appLog.Error("save preferences failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	if subjects == nil {
		subjects = []string{}
	}
	appLog.Info("class selected", "class", classID, "subjects", len(subjects))
	writeJSON(w, http.StatusOK, selectClassResponse{ClassID: classID, Subjects: subjects})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.api.Groups(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		s.upstreamError(w, "groups", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

type subjectsResponse struct {
	Subjects []model.Subject `json:"subjects"`
	// Selected marks the subjects checked by default.
	Selected map[string]bool `json:"selected"`
}

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classID")
	subjects, err := s.api.Subjects(r.Context(), classID)
	if err != nil {
		s.upstreamError(w, "subjects", err)
		return
	}
	p, err := s.prefs.Load()
	if err != nil {
		appLog.Error("load preferences failed", err)
	}
	writeJSON(w, http.StatusOK, subjectsResponse{
		Subjects: subjects,
		Selected: prefs.DefaultSubjectSelection(subjects, p.SubjectsFor(classID)),
	})
}

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type subscribeRequest struct {
	Email   string `json:"email"`
	ClassID string `json:"classId"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var in subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !emailPattern.MatchString(in.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if in.ClassID == "" {
		writeError(w, http.StatusBadRequest, "classId is required")
		return
	}

	p, err := s.prefs.Load()
	if err != nil {
		appLog.Error("load preferences failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}

	if err := s.api.Subscribe(r.Context(), in.ClassID, in.Email, classFilter(p, in.ClassID)); err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Message != "" {
			appLog.Warn("subscribe rejected", "class", in.ClassID, "status", se.Code, "message", se.Message)
			writeError(w, http.StatusBadRequest, se.Message)
			return
		}
		s.upstreamError(w, "subscribe", err)
		return
	}
	appLog.Info("subscribed", "class", in.ClassID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
