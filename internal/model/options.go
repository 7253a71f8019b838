package model

import (
	"bytes"
	"encoding/json"
)

// ID accepts both JSON strings and numbers; the upstream mixes them.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

type Week struct {
	Value     ID     `json:"value"`
	Label     string `json:"label"`
	IsCurrent bool   `json:"isCurrent"`
}

// Entity is a class or a professor.
type Entity struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type Options struct {
	Weeks      []Week   `json:"weeks"`
	Classes    []Entity `json:"classes"`
	Professors []Entity `json:"professors"`
}

// CurrentWeek returns the week flagged as current, if any.
func (o Options) CurrentWeek() (Week, bool) {
	for _, w := range o.Weeks {
		if w.IsCurrent {
			return w, true
		}
	}
	return Week{}, false
}

func (o Options) ClassName(id string) string {
	return entityName(o.Classes, id)
}

func (o Options) ProfessorName(id string) string {
	return entityName(o.Professors, id)
}

func entityName(list []Entity, id string) string {
	for _, e := range list {
		if string(e.ID) == id {
			return e.Name
		}
	}
	return ""
}

// SubjectGroups lists the group numbers available for one subject.
type SubjectGroups struct {
	Subject string `json:"subject"`
	Groups  []int  `json:"groups"`
}

type Subject struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}
