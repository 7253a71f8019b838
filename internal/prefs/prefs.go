// Package prefs persists the viewer's choices: mode, selected class or
// professor, group and subject filters, and the preferred layout.
package prefs

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"urnik/internal/config"
	"urnik/internal/model"
)

type Mode string

const (
	ModeClass     Mode = "class"
	ModeProfessor Mode = "professor"
)

// ViewType selects the compact day list or the grid.
type ViewType string

const (
	ViewList ViewType = "default"
	ViewGrid ViewType = "timetable"
)

// GroupChoice is the group attended for one subject.
type GroupChoice struct {
	Name  string `yaml:"name" json:"name"`
	Group int    `yaml:"group" json:"group"`
}

type Preferences struct {
	// Mode is empty until the user finished onboarding.
	Mode        Mode          `yaml:"view_mode" json:"mode"`
	ClassID     string        `yaml:"class_id" json:"classId"`
	ProfessorID string        `yaml:"professor_id" json:"professorId"`
	Groups      []GroupChoice `yaml:"groups" json:"groups"`
	// Subjects holds the selected subjects per class id.
	Subjects      map[string][]string `yaml:"subjects" json:"subjects"`
	TimetableType ViewType            `yaml:"timetable_type" json:"timetableType"`
}

// Settings is what the settings and onboarding dialogs submit.
type Settings struct {
	Mode          Mode          `json:"mode"`
	ClassID       string        `json:"classId"`
	ProfessorID   string        `json:"professorId"`
	Groups        []GroupChoice `json:"groups"`
	Subjects      []string      `json:"subjects"`
	TimetableType ViewType      `json:"timetableType"`
}

func (p *Preferences) normalize() {
	switch p.Mode {
	case ModeClass, ModeProfessor, "":
	default:
		p.Mode = ""
	}
	if p.TimetableType != ViewGrid {
		p.TimetableType = ViewList
	}
	if p.Subjects == nil {
		p.Subjects = map[string][]string{}
	}
	if p.Groups == nil {
		p.Groups = []GroupChoice{}
	}
}

// NeedsOnboarding is true until a mode has been chosen.
func (p Preferences) NeedsOnboarding() bool {
	return p.Mode == ""
}

// SubjectsFor returns the stored subject selection of a class.
func (p Preferences) SubjectsFor(classID string) []string {
	if classID == "" {
		return nil
	}
	return p.Subjects[classID]
}

// Filter builds the upstream filter for the selected class.
func (p Preferences) Filter() model.Filter {
	f := model.Filter{Subjects: p.SubjectsFor(p.ClassID)}
	if len(p.Groups) > 0 {
		f.Groups = make(map[string]int, len(p.Groups))
		for _, g := range p.Groups {
			f.Groups[g.Name] = g.Group
		}
	}
	return f
}

// Apply stores submitted settings. Professor settings only replace the
// professor; class settings replace class, groups and that class's
// subjects. Groups with a non-positive number are discarded.
func (p *Preferences) Apply(s Settings) {
	p.Mode = s.Mode
	p.TimetableType = s.TimetableType
	if p.TimetableType == "" {
		p.TimetableType = ViewList
	}

	switch {
	case s.Mode == ModeProfessor && s.ProfessorID != "":
		p.ProfessorID = s.ProfessorID
	case s.Mode == ModeClass && s.ClassID != "":
		p.ClassID = s.ClassID
		groups := make([]GroupChoice, 0, len(s.Groups))
		for _, g := range s.Groups {
			if g.Group > 0 {
				groups = append(groups, g)
			}
		}
		p.Groups = groups
		if p.Subjects == nil {
			p.Subjects = map[string][]string{}
		}
		subjects := s.Subjects
		if subjects == nil {
			subjects = []string{}
		}
		p.Subjects[s.ClassID] = subjects
	}
	p.normalize()
}

// SelectClass switches the displayed class and returns its stored subjects.
func (p *Preferences) SelectClass(classID string) []string {
	p.ClassID = classID
	return p.SubjectsFor(classID)
}

// DefaultSubjectSelection marks which available subjects start checked:
// the stored selection if there is one, otherwise all of them.
func DefaultSubjectSelection(available []model.Subject, stored []string) map[string]bool {
	out := make(map[string]bool, len(available))
	keep := make(map[string]bool, len(stored))
	for _, s := range stored {
		keep[s] = true
	}
	for _, s := range available {
		out[s.Name] = len(stored) == 0 || keep[s.Name]
	}
	return out
}

// Store loads and saves preferences.
type Store interface {
	Load() (Preferences, error)
	Save(Preferences) error
}

// FileStore keeps preferences in a YAML file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns empty (onboarding) preferences if the file does not exist.
func (s *FileStore) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p Preferences
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.normalize()
			return p, nil
		}
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, err
	}
	p.normalize()
	return p, nil
}

func (s *FileStore) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.normalize()
	data, err := yaml.Marshal(&p)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(s.path, data, ".urnik-prefs-*.tmp")
}

// MemoryStore is a Store without persistence.
type MemoryStore struct {
	mu sync.Mutex
	p  Preferences
}

func NewMemoryStore(initial Preferences) *MemoryStore {
	initial.normalize()
	return &MemoryStore{p: clone(initial)}
}

func (s *MemoryStore) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.p), nil
}

func (s *MemoryStore) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.normalize()
	s.p = clone(p)
	return nil
}

func clone(p Preferences) Preferences {
	out := p
	out.Groups = append(make([]GroupChoice, 0, len(p.Groups)), p.Groups...)
	out.Subjects = make(map[string][]string, len(p.Subjects))
	for k, v := range p.Subjects {
		out.Subjects[k] = append([]string(nil), v...)
	}
	return out
}
