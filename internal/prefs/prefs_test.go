package prefs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"urnik/internal/model"
)

func TestFileStoreMissingFileNeedsOnboarding(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "prefs.yaml"))
	p, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.NeedsOnboarding() {
		t.Error("fresh preferences should need onboarding")
	}
	if p.TimetableType != ViewList {
		t.Errorf("TimetableType = %q, want %q", p.TimetableType, ViewList)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "prefs.yaml")
	s := NewFileStore(path)

	var p Preferences
	p.Apply(Settings{
		Mode:          ModeClass,
		ClassID:       "7",
		Groups:        []GroupChoice{{Name: "MAT", Group: 2}, {Name: "FIZ", Group: 0}},
		Subjects:      []string{"MAT", "FIZ"},
		TimetableType: ViewGrid,
	})
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Mode != ModeClass || got.ClassID != "7" || got.TimetableType != ViewGrid {
		t.Errorf("unexpected prefs %+v", got)
	}
	if want := []GroupChoice{{Name: "MAT", Group: 2}}; !reflect.DeepEqual(got.Groups, want) {
		t.Errorf("Groups = %+v, want %+v", got.Groups, want)
	}
	if !reflect.DeepEqual(got.SubjectsFor("7"), []string{"MAT", "FIZ"}) {
		t.Errorf("SubjectsFor(7) = %v", got.SubjectsFor("7"))
	}
}

func TestFileStoreBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	if err := os.WriteFile(path, []byte("groups: {"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestApplyProfessorKeepsClassChoices(t *testing.T) {
	p := Preferences{
		Mode:     ModeClass,
		ClassID:  "7",
		Groups:   []GroupChoice{{Name: "MAT", Group: 1}},
		Subjects: map[string][]string{"7": {"MAT"}},
	}
	p.Apply(Settings{Mode: ModeProfessor, ProfessorID: "p9"})

	if p.Mode != ModeProfessor || p.ProfessorID != "p9" {
		t.Errorf("professor not applied: %+v", p)
	}
	if p.ClassID != "7" || len(p.Groups) != 1 || len(p.SubjectsFor("7")) != 1 {
		t.Errorf("class choices should survive: %+v", p)
	}
	if p.TimetableType != ViewList {
		t.Errorf("missing type should default to list, got %q", p.TimetableType)
	}
}

func TestSelectClassLoadsItsSubjects(t *testing.T) {
	p := Preferences{Subjects: map[string][]string{"1": {"A"}, "2": {"B", "C"}}}
	if got := p.SelectClass("2"); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("SelectClass(2) = %v", got)
	}
	if p.ClassID != "2" {
		t.Error("class not switched")
	}
	if got := p.SelectClass("3"); len(got) != 0 {
		t.Errorf("unknown class subjects = %v", got)
	}
}

func TestFilter(t *testing.T) {
	p := Preferences{
		ClassID:  "7",
		Groups:   []GroupChoice{{Name: "MAT", Group: 2}},
		Subjects: map[string][]string{"7": {"MAT"}},
	}
	f := p.Filter()
	if f.Empty() || f.Groups["MAT"] != 2 || len(f.Subjects) != 1 {
		t.Errorf("unexpected filter %+v", f)
	}
	if !(Preferences{ClassID: "8"}).Filter().Empty() {
		t.Error("class without choices should give an empty filter")
	}
}

func TestDefaultSubjectSelection(t *testing.T) {
	available := []model.Subject{{ID: "1", Name: "MAT"}, {ID: "2", Name: "FIZ"}}

	all := DefaultSubjectSelection(available, nil)
	if !all["MAT"] || !all["FIZ"] {
		t.Errorf("no stored selection should check everything: %v", all)
	}
	some := DefaultSubjectSelection(available, []string{"FIZ"})
	if some["MAT"] || !some["FIZ"] {
		t.Errorf("stored selection not honored: %v", some)
	}
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	s := NewMemoryStore(Preferences{Mode: ModeClass, Subjects: map[string][]string{"7": {"MAT"}}})
	p, _ := s.Load()
	p.Subjects["7"][0] = "changed"

	again, _ := s.Load()
	if again.Subjects["7"][0] != "MAT" {
		t.Error("Load must return a copy")
	}
}
