package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"urnik/internal/export"
	appLog "urnik/internal/log"
	"urnik/internal/metrics"
	"urnik/internal/prefs"
)

const maxRepeatWeeks = 52

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	repeat := 1
	if v := r.URL.Query().Get("repeat"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRepeatWeeks {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("repeat must be between 1 and %d", maxRepeatWeeks))
			return
		}
		repeat = n
	}

	q := queryFromRequest(r)
	q.Mode = prefs.ModeClass
	snap, err := s.Snapshot(r.Context(), q)
	if err != nil {
		metrics.Exports.WithLabelValues("ics", "error").Inc()
		s.snapshotError(w, err)
		return
	}

	name := snap.Options.ClassName(snap.ClassID)
	if name == "" {
		name = snap.Timetable.OwnerLabel
	}
	data, n, err := export.BuildICS(snap.Timetable, export.ICSOptions{
		Reference: s.now(),
		Location:  s.loc,
		Repeat:    repeat,
		Name:      name,
	})
	if err != nil {
		metrics.Exports.WithLabelValues("ics", "error").Inc()
		appLog.Error("ics build failed", err, "class", snap.ClassID, "week", snap.Week)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}
	metrics.Exports.WithLabelValues("ics", "ok").Inc()
	appLog.Info("ics exported", "class", snap.ClassID, "week", snap.Week, "events", n, "repeat", repeat)

	writeCalendar(w, data, icsFileName(snap.ClassID, snap.Week))
}

// handleExportUpstreamICS passes the upstream's own calendar export
// through, after checking it parses.
func (s *Server) handleExportUpstreamICS(w http.ResponseWriter, r *http.Request) {
	q := queryFromRequest(r)
	q.Mode = prefs.ModeClass
	q, p, _, err := s.resolve(r.Context(), q)
	if err != nil {
		s.snapshotError(w, err)
		return
	}

	data, err := s.api.Calendar(r.Context(), q.Week, q.ClassID, classFilter(p, q.ClassID))
	if err != nil {
		metrics.Exports.WithLabelValues("upstream_ics", "error").Inc()
		s.upstreamError(w, "calendar", err)
		return
	}
	if events, err := export.ParseICS(data); err != nil {
		appLog.Warn("upstream calendar did not parse", "class", q.ClassID, "week", q.Week, "err", err)
	} else {
		w.Header().Set("X-Event-Count", strconv.Itoa(len(events)))
		w.Header().Set("X-Occurrence-Count", strconv.Itoa(countOccurrences(events)))
	}
	metrics.Exports.WithLabelValues("upstream_ics", "ok").Inc()

	writeCalendar(w, data, icsFileName(q.ClassID, q.Week))
}

// countOccurrences expands recurring events. Events whose rule does not
// parse count once.
func countOccurrences(events []export.Event) int {
	n := 0
	for _, ev := range events {
		occ, err := export.Occurrences(ev)
		if err != nil || len(occ) == 0 {
			n++
			continue
		}
		n += len(occ)
	}
	return n
}

func icsFileName(classID, week string) string {
	return fmt.Sprintf("urnik_%s_%s.ics", safeFilePart(classID), safeFilePart(week))
}

func writeCalendar(w http.ResponseWriter, data []byte, filename string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleExportPDF prints the grid view with headless Chromium. Professor
// timetables fall back to the upstream rendering when printing fails.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, _, _, err := s.resolve(ctx, queryFromRequest(r))
	if err != nil {
		s.snapshotError(w, err)
		return
	}

	var pdf []byte
	if s.printer != nil {
		pdf, err = s.printer.PrintPDF(ctx, s.printURL(q))
		if err != nil {
			appLog.Error("pdf print failed", err, "mode", q.Mode, "week", q.Week)
			pdf = nil
		}
	}

	if pdf == nil {
		if q.Mode != prefs.ModeProfessor {
			metrics.Exports.WithLabelValues("pdf", "error").Inc()
			writeError(w, http.StatusServiceUnavailable, "pdf rendering unavailable")
			return
		}
		pdf, err = s.api.ProfessorPDF(ctx, q.Week, q.ProfessorID)
		if err != nil {
			metrics.Exports.WithLabelValues("pdf", "error").Inc()
			s.upstreamError(w, "professor_pdf", err)
			return
		}
		metrics.Exports.WithLabelValues("pdf", "upstream").Inc()
	} else {
		metrics.Exports.WithLabelValues("pdf", "ok").Inc()
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="urnik.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// printURL is the /view address the headless browser opens.
func (s *Server) printURL(q Query) string {
	v := url.Values{}
	v.Set("mode", string(q.Mode))
	v.Set("week", q.Week)
	if q.Mode == prefs.ModeProfessor {
		v.Set("professor", q.ProfessorID)
	} else {
		v.Set("class", q.ClassID)
	}
	v.Set("type", "grid")
	v.Set("token", s.printToken)
	return s.cfg.EffectiveViewURL() + "/view?" + v.Encode()
}
