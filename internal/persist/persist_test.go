package persist

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")

	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("tmp file left behind")
	}
}

func TestSaveAndLoadProfileAndRoster(t *testing.T) {
	s := testStore(t)
	p := DefaultProfile("cs101")
	p.Git.Organization = "cs101-fall"
	r := &model.Roster{
		Students: []model.Member{{ID: "s1", Name: "Alice", Email: "alice@example.com", Status: model.StatusActive}},
	}

	if err := s.SaveProfileAndRoster(p, r); err != nil {
		t.Fatal(err)
	}

	// No .bak or .tmp survivors after a clean commit.
	for _, suffix := range []string{".tmp", ".bak"} {
		for _, path := range []string{s.profilePath("cs101"), s.rosterPath("cs101")} {
			if _, err := os.Stat(path + suffix); !os.IsNotExist(err) {
				t.Errorf("%s%s left behind", path, suffix)
			}
		}
	}

	got, err := s.LoadProfile("cs101")
	if err != nil {
		t.Fatal(err)
	}
	if got.Git.Organization != "cs101-fall" {
		t.Errorf("profile = %+v", got)
	}

	roster, err := s.LoadRoster("cs101")
	if err != nil {
		t.Fatal(err)
	}
	if len(roster.Students) != 1 || roster.Students[0].Name != "Alice" {
		t.Errorf("roster = %+v", roster)
	}
}

func TestSaveProfileOnlyKeepsRoster(t *testing.T) {
	s := testStore(t)
	p := DefaultProfile("cs101")
	r := &model.Roster{Students: []model.Member{{ID: "s1", Name: "Alice"}}}
	if err := s.SaveProfileAndRoster(p, r); err != nil {
		t.Fatal(err)
	}

	p.Git.Organization = "changed"
	if err := s.SaveProfileAndRoster(p, nil); err != nil {
		t.Fatal(err)
	}

	roster, err := s.LoadRoster("cs101")
	if err != nil {
		t.Fatal(err)
	}
	if len(roster.Students) != 1 {
		t.Errorf("roster lost on profile-only save: %+v", roster)
	}
}

func TestPairedSwapRollsBackOnFailure(t *testing.T) {
	s := testStore(t)
	p := DefaultProfile("cs101")
	p.Git.Organization = "original"
	if err := s.SaveProfileAndRoster(p, &model.Roster{}); err != nil {
		t.Fatal(err)
	}

	// Replacing the rosters directory with a plain file makes the roster
	// temp write fail, so the whole swap must abort.
	rostersDir := filepath.Join(s.Dir(), "rosters")
	if err := os.RemoveAll(rostersDir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rostersDir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p.Git.Organization = "updated"
	if err := s.SaveProfileAndRoster(p, &model.Roster{}); err == nil {
		t.Fatal("expected swap to fail")
	}

	got, err := s.LoadProfile("cs101")
	if err != nil {
		t.Fatal(err)
	}
	if got.Git.Organization != "original" {
		t.Errorf("profile mutated by failed swap: %+v", got)
	}
	for _, suffix := range []string{".tmp", ".bak"} {
		if _, err := os.Stat(s.profilePath("cs101") + suffix); !os.IsNotExist(err) {
			t.Errorf("%s file left behind", suffix)
		}
	}
}

func TestLoadProfileLenient(t *testing.T) {
	var logBuf bytes.Buffer
	s := NewStore(t.TempDir(), slog.New(slog.NewTextHandler(&logBuf, nil)))

	// Unknown field, mistyped private, missing repos.layout.
	raw := `{
		"git": {"organization": "cs101-fall", "flavor": "strawberry"},
		"repos": {"private": "yes please", "name_template": "hw-{group}"}
	}`
	if err := os.MkdirAll(filepath.Join(s.Dir(), "profiles"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.profilePath("cs101"), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := s.LoadProfile("cs101")
	if err != nil {
		t.Fatal(err)
	}
	if p.Git.Organization != "cs101-fall" {
		t.Errorf("stored field dropped: %+v", p.Git)
	}
	if p.Repos.NameTemplate != "hw-{group}" {
		t.Errorf("stored template dropped: %q", p.Repos.NameTemplate)
	}
	if !p.Repos.Private {
		t.Error("mistyped private should fall back to default true")
	}
	if p.Repos.Layout != "flat" {
		t.Errorf("missing layout should default: %q", p.Repos.Layout)
	}

	logs := logBuf.String()
	if !strings.Contains(logs, "git.flavor") {
		t.Errorf("unknown field not warned:\n%s", logs)
	}
	if !strings.Contains(logs, "repos.private") {
		t.Errorf("mistyped field not warned:\n%s", logs)
	}
}

func TestLoadProfileNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.LoadProfile("ghost")
	if !errors.As(err, &apperr.NotFound{}) {
		t.Errorf("err = %v", err)
	}
}

func TestActiveProfile(t *testing.T) {
	s := testStore(t)

	name, err := s.ActiveProfile()
	if err != nil || name != "" {
		t.Fatalf("empty store active = %q, %v", name, err)
	}

	if err := s.SetActiveProfile("ghost"); err == nil {
		t.Error("setting a missing profile should fail")
	}

	if err := s.SaveProfileAndRoster(DefaultProfile("cs101"), nil); err != nil {
		t.Fatal(err)
	}
	if err := s.SetActiveProfile("cs101"); err != nil {
		t.Fatal(err)
	}
	name, err = s.ActiveProfile()
	if err != nil || name != "cs101" {
		t.Errorf("active = %q, %v", name, err)
	}
}

func TestListProfiles(t *testing.T) {
	s := testStore(t)
	for _, name := range []string{"zeta", "alpha"} {
		if err := s.SaveProfileAndRoster(DefaultProfile(name), nil); err != nil {
			t.Fatal(err)
		}
	}
	names, err := s.ListProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("names = %v", names)
	}
}

func TestConfigDirOverride(t *testing.T) {
	t.Setenv("REPOBEE_CONFIG_DIR", "/custom/dir")
	if got := ConfigDir(); got != "/custom/dir" {
		t.Errorf("ConfigDir = %q", got)
	}
}
