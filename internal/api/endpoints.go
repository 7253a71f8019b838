package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"urnik/internal/model"
)

func decode[T any](op string, data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%s: decode: %w", op, err)
	}
	return v, nil
}

func seg(s string) string {
	return url.PathEscape(s)
}

// Options returns the weeks, classes and professors the upstream knows.
func (c *Client) Options(ctx context.Context) (model.Options, error) {
	data, err := c.get(ctx, "options", "/options")
	if err != nil {
		return model.Options{}, err
	}
	return decode[model.Options]("options", data)
}

// ClassTimetable fetches one class for one week. A non-empty filter is
// posted so the upstream only returns the chosen groups and subjects.
func (c *Client) ClassTimetable(ctx context.Context, week, classID string, f model.Filter) (model.Timetable, error) {
	const op = "class_timetable"
	path := "/timetable/" + seg(week) + "/" + seg(classID)

	var (
		data []byte
		err  error
	)
	if f.Empty() {
		data, err = c.get(ctx, op, path)
	} else {
		data, err = c.send(ctx, op, http.MethodPost, path, f)
	}
	if err != nil {
		return model.Timetable{}, err
	}
	return decode[model.Timetable](op, data)
}

// ProfessorTimetables returns one timetable per class the professor
// teaches in that week.
func (c *Client) ProfessorTimetables(ctx context.Context, week, professorID string) ([]model.Timetable, error) {
	const op = "professor_timetables"
	data, err := c.get(ctx, op, "/timetable/professor/"+seg(week)+"/"+seg(professorID))
	if err != nil {
		return nil, err
	}
	return decode[[]model.Timetable](op, data)
}

// Groups lists the group numbers per subject of a class.
func (c *Client) Groups(ctx context.Context, classID string) ([]model.SubjectGroups, error) {
	data, err := c.get(ctx, "groups", "/groups/"+seg(classID))
	if err != nil {
		return nil, err
	}
	return decode[[]model.SubjectGroups]("groups", data)
}

// Subjects lists the subjects of a class.
func (c *Client) Subjects(ctx context.Context, classID string) ([]model.Subject, error) {
	data, err := c.get(ctx, "subjects", "/options/subjects/"+seg(classID))
	if err != nil {
		return nil, err
	}
	return decode[[]model.Subject]("subjects", data)
}

// Calendar returns the upstream's own ICS export.
func (c *Client) Calendar(ctx context.Context, week, classID string, f model.Filter) ([]byte, error) {
	return c.send(ctx, "calendar", http.MethodPost, "/calendar/"+seg(week)+"/"+seg(classID), f)
}

// ProfessorPDF returns the upstream-rendered professor timetable.
func (c *Client) ProfessorPDF(ctx context.Context, week, professorID string) ([]byte, error) {
	return c.send(ctx, "professor_pdf", http.MethodGet,
		"/timetable/professor/"+seg(week)+"/"+seg(professorID)+"/pdf", nil)
}

type subscribeRequest struct {
	Email    string         `json:"email"`
	Subjects []string       `json:"subjects"`
	Groups   map[string]int `json:"groups"`
}

// Subscribe registers email for timetable change mails of a class.
func (c *Client) Subscribe(ctx context.Context, classID, email string, f model.Filter) error {
	body := subscribeRequest{Email: email, Subjects: f.Subjects, Groups: f.Groups}
	if body.Subjects == nil {
		body.Subjects = []string{}
	}
	if body.Groups == nil {
		body.Groups = map[string]int{}
	}
	_, err := c.send(ctx, "subscribe", http.MethodPost, "/mailing/subscribe/"+seg(classID), body)
	return err
}
