// Package export turns timetables into calendar files and printable PDFs.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "urnik/internal/log"
	"urnik/internal/model"
	"urnik/internal/slots"
)

const productID = "-//urnik//timetable//SL"

// uidNamespace seeds deterministic event UIDs so re-exporting the same week
// updates events in the subscriber's calendar instead of duplicating them.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urnik"))

// ICSOptions controls calendar generation.
type ICSOptions struct {
	// Reference is the moment the export is made. Day labels carry only
	// day and month; the year is chosen relative to Reference.
	Reference time.Time
	Location  *time.Location
	// Repeat > 1 adds a weekly RRULE with that many occurrences.
	Repeat int
	Name   string
}

// BuildICS renders every lesson whose day label carries a date and whose
// slot range is known. It returns the calendar and the number of events.
func BuildICS(tt model.Timetable, opts ICSOptions) ([]byte, int, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	ref := opts.Reference
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.In(loc)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	name := opts.Name
	if name == "" {
		name = tt.OwnerLabel
	}
	if name != "" {
		cal.SetName(name)
		cal.SetXWRCalName(name)
	}
	cal.SetXWRTimezone(loc.String())

	count := 0
	for _, day := range tt.Days {
		date, ok := dayDate(day, ref, loc)
		if !ok {
			appLog.Debug("ics: day without date skipped", "day", day.Label)
			continue
		}
		for _, l := range day.Lessons {
			startMin, endMin, ok := slots.Bounds(l.Slot, l.Duration)
			if !ok {
				appLog.Debug("ics: lesson outside slot table skipped", "day", day.Label, "subject", l.Subject, "slot", l.Slot)
				continue
			}
			start := date.Add(time.Duration(startMin) * time.Minute)
			end := date.Add(time.Duration(endMin) * time.Minute)

			ev := cal.AddEvent(eventUID(tt.OwnerLabel, start, l))
			ev.SetDtStampTime(ref)
			ev.SetStartAt(start)
			ev.SetEndAt(end)
			ev.SetSummary(summary(l))
			if l.Classroom != "" {
				ev.SetLocation(l.Classroom)
			}
			if d := description(l); d != "" {
				ev.SetDescription(d)
			}
			if opts.Repeat > 1 {
				rule, err := weekly(start, opts.Repeat)
				if err != nil {
					return nil, 0, err
				}
				ev.AddRrule(rule)
			}
			count++
		}
	}

	return []byte(cal.Serialize()), count, nil
}

// dayDate places the label's day and month in the year closest to ref, so
// a January week exported in late December lands in the next year.
func dayDate(day model.Day, ref time.Time, loc *time.Location) (time.Time, bool) {
	t, ok := day.Date(ref.Year(), loc)
	if !ok {
		return time.Time{}, false
	}
	switch diff := int(t.Month()) - int(ref.Month()); {
	case diff < -6:
		t = t.AddDate(1, 0, 0)
	case diff > 6:
		t = t.AddDate(-1, 0, 0)
	}
	return t, true
}

func weekly(start time.Time, count int) (string, error) {
	opt := rrule.ROption{
		Freq:    rrule.WEEKLY,
		Count:   count,
		Dtstart: start,
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("ics: weekly rule: %w", err)
	}
	return opt.RRuleString(), nil
}

func eventUID(owner string, start time.Time, l model.Lesson) string {
	key := strings.Join([]string{owner, l.SourceName, start.UTC().Format(time.RFC3339), l.Subject, l.Classroom}, "|")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@urnik"
}

func summary(l model.Lesson) string {
	s := l.Subject
	if l.Group != nil {
		s = fmt.Sprintf("%s (skupina %d)", s, *l.Group)
	}
	return s
}

func description(l model.Lesson) string {
	var parts []string
	if l.Teacher != "" {
		parts = append(parts, l.Teacher)
	}
	if l.SourceName != "" {
		parts = append(parts, l.SourceName)
	}
	if l.Note != "" {
		parts = append(parts, l.Note)
	}
	if l.SpecialNote != "" {
		parts = append(parts, l.SpecialNote)
	}
	return strings.Join(parts, "\n")
}

// Event is the subset of a VEVENT the service inspects.
type Event struct {
	UID      string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
	RRule    string
}

// ParseICS reads the events of a calendar. Events without UID or start are
// skipped.
func ParseICS(body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0)
	for _, ve := range cal.Events() {
		var ev Event
		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			ev.UID = p.Value
		}
		start, err := ve.GetStartAt()
		if ev.UID == "" || err != nil {
			appLog.Debug("ics: vevent skipped", "uid", ev.UID)
			continue
		}
		ev.Start = start
		ev.End, _ = ve.GetEndAt()
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			ev.Summary = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
			ev.Location = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
			ev.RRule = p.Value
		}
		events = append(events, ev)
	}
	return events, nil
}

// Occurrences expands an event's weekly rule. Events without a rule occur
// once.
func Occurrences(ev Event) ([]time.Time, error) {
	if ev.RRule == "" {
		return []time.Time{ev.Start}, nil
	}
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, err
	}
	r.DTStart(ev.Start)
	return r.All(), nil
}
