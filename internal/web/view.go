package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	appLog "urnik/internal/log"
	"urnik/internal/model"
	"urnik/internal/palette"
	"urnik/internal/prefs"
	"urnik/internal/slots"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const (
	gridBorderDarken = 60
	listBorderDarken = 40
)

type viewLesson struct {
	Subject     string
	Teacher     string
	Classroom   string
	Note        string
	SpecialNote string
	Source      string
	// Group is 0 for lessons not split into groups.
	Group       int
	Time        string
	Color       string
	Border      string

	// Grid placement in percent of the day column.
	Top, Height, Left, Width float64
}

type viewDay struct {
	Label   string
	Note    string
	Today   bool
	Lessons []viewLesson
}

type viewSlot struct {
	Number int
	Range  string
	Top    float64
}

type viewData struct {
	Title     string
	WeekLabel string
	Grid      bool
	Message   string
	Days      []viewDay
	Slots     []viewSlot
	Indicator *model.TimeIndicator
	// IndicatorTop is Indicator.TopFraction in percent.
	IndicatorTop float64
}

const windowMinutes = float64(slots.WindowEnd - slots.WindowStart)

func percentOfWindow(minutes int) float64 {
	return float64(minutes-slots.WindowStart) / windowMinutes * 100
}

// handleView renders the grid or the compact list server-side. The root
// element carries data-ready="true" once rendered, which the PDF printer
// waits for.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshot(r.Context(), queryFromRequest(r))
	if err != nil {
		if errors.Is(err, errMissingEntity) {
			s.renderView(w, http.StatusOK, viewData{Title: "Urnik", Message: "Izberi razred ali profesorja."})
			return
		}
		if errors.Is(err, errPrefs) {
			appLog.Error("load preferences failed", err)
			s.renderView(w, http.StatusInternalServerError, viewData{Title: "Urnik", Message: "Nastavitev ni mogoče naložiti."})
			return
		}
		appLog.Error("view fetch failed", err)
		s.renderView(w, http.StatusBadGateway, viewData{Title: "Urnik", Message: "Urnik trenutno ni dosegljiv."})
		return
	}

	grid := snap.Prefs.TimetableType == prefs.ViewGrid
	switch r.URL.Query().Get("type") {
	case "grid":
		grid = true
	case "list":
		grid = false
	}

	s.renderView(w, http.StatusOK, buildViewData(snap, grid))
}

func buildViewData(snap TimetableResponse, grid bool) viewData {
	title := snap.Timetable.OwnerLabel
	if snap.Mode == prefs.ModeProfessor {
		if name := snap.Options.ProfessorName(snap.ProfessorID); name != "" {
			title = name
		}
	} else if name := snap.Options.ClassName(snap.ClassID); name != "" {
		title = name
	}

	data := viewData{
		Title:     title,
		WeekLabel: snap.WeekLabel,
		Grid:      grid,
		Indicator: snap.Indicator,
	}
	if snap.Indicator != nil {
		data.IndicatorTop = snap.Indicator.TopFraction * 100
	}

	if grid {
		for i := 1; i <= slots.Count; i++ {
			start, _, _ := slots.Bounds(i, 1)
			data.Slots = append(data.Slots, viewSlot{
				Number: i,
				Range:  slots.Range(i, 1),
				Top:    percentOfWindow(start),
			})
		}
	}

	darken := listBorderDarken
	if grid {
		darken = gridBorderDarken
	}

	for _, d := range snap.Days {
		vd := viewDay{Label: d.Label, Today: d.Today}
		if d.Note != nil {
			vd.Note = *d.Note
		}
		for _, l := range d.Lessons {
			color := l.Color
			if color == "" {
				color = palette.ForString(l.Subject)
			}
			vl := viewLesson{
				Subject:     l.Subject,
				Teacher:     l.Teacher,
				Classroom:   l.Classroom,
				Note:        l.Note,
				SpecialNote: l.SpecialNote,
				Source:      l.SourceName,
				Time:        slots.Range(l.Slot, l.Duration),
				Color:       color,
				Border:      palette.Darken(color, darken),
			}
			if l.Group != nil {
				vl.Group = *l.Group
			}
			if grid {
				start, end := gridBounds(l.Slot, l.Duration)
				lanes := l.LaneCount
				if lanes < 1 {
					lanes = 1
				}
				vl.Top = percentOfWindow(start)
				vl.Height = float64(end-start) / windowMinutes * 100
				vl.Width = 100 / float64(lanes)
				vl.Left = float64(l.Lane) * vl.Width
			}
			vd.Lessons = append(vd.Lessons, vl)
		}
		data.Days = append(data.Days, vd)
	}
	return data
}

// gridBounds places a lesson in the grid. Lessons reaching outside the slot
// table are clamped to it; their time still reads slots.Unavailable.
func gridBounds(slot, duration int) (start, end int) {
	first := min(max(slot, 1), slots.Count)
	last := min(max(slot+duration-1, first), slots.Count)
	start, end, _ = slots.Bounds(first, last-first+1)
	return start, end
}

type emailData struct {
	Success bool
}

// handleEmailResult is where the upstream sends the browser after an
// unsubscribe link was followed. The page returns home after five seconds.
func (s *Server) handleEmailResult(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, http.StatusOK, "email.html", emailData{Success: r.URL.Query().Get("success") == "true"})
}

func (s *Server) renderView(w http.ResponseWriter, status int, data viewData) {
	s.renderTemplate(w, status, "view.html", data)
}

func (s *Server) renderTemplate(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		appLog.Error("view render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
