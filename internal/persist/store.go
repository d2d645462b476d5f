package persist

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/naming"
	"github.com/edulab/reporover/internal/validation"
)

// LMSSettings holds the course connection half of a profile.
type LMSSettings struct {
	Kind     string `json:"kind"` // "canvas" or "moodle"
	BaseURL  string `json:"base_url"`
	CourseID string `json:"course_id"`
}

// GitSettings holds the hosting side of a profile. Tokens are never stored
// here; they come from the environment.
type GitSettings struct {
	Platform     string `json:"platform"`
	BaseURL      string `json:"base_url"`
	Organization string `json:"organization"`
	User         string `json:"user"`
}

// RepoSettings parameterizes bulk repo operations.
type RepoSettings struct {
	NameTemplate string `json:"name_template"`
	TargetDir    string `json:"target_dir"`
	Layout       string `json:"layout"`
	Private      bool   `json:"private"`
	IdentityMode string `json:"identity_mode"`
}

// Profile is the persisted settings document for one course.
type Profile struct {
	Name  string       `json:"name"`
	LMS   LMSSettings  `json:"lms"`
	Git   GitSettings  `json:"git"`
	Repos RepoSettings `json:"repos"`
}

// DefaultProfile returns the settings a fresh profile starts with and the
// fallback values the lenient loader substitutes field by field.
func DefaultProfile(name string) Profile {
	return Profile{
		Name: name,
		Repos: RepoSettings{
			NameTemplate: naming.DefaultRepoNameTemplate,
			Layout:       "flat",
			Private:      true,
			IdentityMode: string(validation.IdentityEmail),
		},
	}
}

// Store reads and writes profiles and rosters under one config directory.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore opens a store rooted at dir. A nil logger falls back to the
// process default.
func NewStore(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, log: log}
}

// Open opens the store at the resolved config directory.
func Open(log *slog.Logger) *Store {
	return NewStore(ConfigDir(), log)
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) profilePath(name string) string {
	return filepath.Join(s.dir, "profiles", name+".json")
}

func (s *Store) rosterPath(name string) string {
	return filepath.Join(s.dir, "rosters", name+".json")
}

func (s *Store) activePath() string {
	return filepath.Join(s.dir, "active-profile.txt")
}

// SaveProfileAndRoster commits the profile and, when non-nil, the roster in
// one paired swap: both land on disk or neither does.
func (s *Store) SaveProfileAndRoster(p Profile, r *model.Roster) error {
	profileData, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return apperr.NewFile("encoding profile "+p.Name, err)
	}
	files := []*swapFile{{path: s.profilePath(p.Name), data: profileData}}

	if r != nil {
		rosterData, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return apperr.NewFile("encoding roster "+p.Name, err)
		}
		files = append(files, &swapFile{path: s.rosterPath(p.Name), data: rosterData})
	}
	return swapAll(files)
}

// LoadProfile reads a profile leniently: unknown fields are dropped with a
// warning, missing or mistyped fields take the default.
func (s *Store) LoadProfile(name string) (Profile, error) {
	data, err := os.ReadFile(s.profilePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, apperr.NewNotFound("profile " + name + " not found")
		}
		return Profile{}, apperr.NewFile("reading profile "+name, err)
	}

	var stored map[string]any
	if err := json.Unmarshal(data, &stored); err != nil {
		return Profile{}, apperr.NewFile("parsing profile "+name, err)
	}

	merged, err := mergeSettings(DefaultProfile(name), stored, s.log)
	if err != nil {
		return Profile{}, err
	}
	merged.Name = name
	return merged, nil
}

// LoadRoster reads the roster persisted alongside a profile.
func (s *Store) LoadRoster(name string) (*model.Roster, error) {
	data, err := os.ReadFile(s.rosterPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NewNotFound("roster " + name + " not found")
		}
		return nil, apperr.NewFile("reading roster "+name, err)
	}
	var r model.Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, apperr.NewFile("parsing roster "+name, err)
	}
	return &r, nil
}

// ListProfiles returns the stored profile names, sorted.
func (s *Store) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "profiles"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewFile("listing profiles", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// ActiveProfile returns the active profile name, or "" when none is set.
func (s *Store) ActiveProfile() (string, error) {
	data, err := os.ReadFile(s.activePath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", apperr.NewFile("reading active profile", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetActiveProfile records name as the active profile. The profile must
// already exist.
func (s *Store) SetActiveProfile(name string) error {
	if _, err := os.Stat(s.profilePath(name)); err != nil {
		return apperr.NewNotFound("profile " + name + " not found")
	}
	return WriteFileAtomic(s.activePath(), []byte(name+"\n"))
}
