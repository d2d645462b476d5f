package repoops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/platform"
)

// fakePlatform keeps repos in a map and records calls.
type fakePlatform struct {
	repos      map[string]platform.Repo
	failCreate map[string]bool
	deleted    []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{repos: map[string]platform.Repo{}, failCreate: map[string]bool{}}
}

func (f *fakePlatform) CreateTeam(ctx context.Context, name string, members []string, p platform.Permission) (platform.Team, error) {
	return platform.Team{Name: name}, nil
}
func (f *fakePlatform) DeleteTeam(ctx context.Context, t platform.Team) error { return nil }
func (f *fakePlatform) GetTeams(ctx context.Context, names []string) ([]platform.Team, error) {
	return nil, nil
}
func (f *fakePlatform) AssignRepo(ctx context.Context, t platform.Team, r platform.Repo, p platform.Permission) error {
	return nil
}
func (f *fakePlatform) AssignMembers(ctx context.Context, t platform.Team, members []string) error {
	return nil
}

func (f *fakePlatform) CreateRepo(ctx context.Context, name, description string, private bool, team *platform.Team) (platform.Repo, bool, error) {
	if f.failCreate[name] {
		return platform.Repo{}, false, apperr.NewAPI("create "+name+" failed", 500, "")
	}
	if repo, ok := f.repos[name]; ok {
		return repo, false, nil
	}
	repo := platform.Repo{Name: name, Private: private, CloneURL: "https://host/org/" + name + ".git"}
	f.repos[name] = repo
	return repo, true, nil
}

func (f *fakePlatform) DeleteRepo(ctx context.Context, repo platform.Repo) error {
	delete(f.repos, repo.Name)
	f.deleted = append(f.deleted, repo.Name)
	return nil
}

func (f *fakePlatform) GetRepos(ctx context.Context, urlFilter string) ([]platform.Repo, error) {
	return nil, nil
}

func (f *fakePlatform) GetRepo(ctx context.Context, name string, team *platform.Team) (platform.Repo, error) {
	if repo, ok := f.repos[name]; ok {
		return repo, nil
	}
	return platform.Repo{}, apperr.NewNotFound(name + " not found")
}

func (f *fakePlatform) GetTeamRepos(ctx context.Context, t platform.Team) ([]platform.Repo, error) {
	return nil, nil
}
func (f *fakePlatform) CreateIssue(ctx context.Context, r platform.Repo, title, body string) (platform.Issue, error) {
	return platform.Issue{}, nil
}
func (f *fakePlatform) CloseIssue(ctx context.Context, r platform.Repo, number int) error {
	return nil
}
func (f *fakePlatform) GetRepoIssues(ctx context.Context, r platform.Repo, state platform.IssueState) ([]platform.Issue, error) {
	return nil, nil
}
func (f *fakePlatform) GetRepoURLs(a []string, org string, teams []string, auth bool) ([]string, error) {
	return nil, nil
}
func (f *fakePlatform) InsertAuth(url string) (string, error) { return url, nil }
func (f *fakePlatform) ExtractRepoName(url string) string     { return url }
func (f *fakePlatform) ForOrganization(org string) platform.Platform {
	return f
}
func (f *fakePlatform) VerifySettings(ctx context.Context) error { return nil }
func (f *fakePlatform) OrgName() string                          { return "course" }
func (f *fakePlatform) User() string                             { return "teacher" }
func (f *fakePlatform) BaseURL() string                          { return "https://host" }

func opsRoster() *model.Roster {
	return &model.Roster{
		Students: []model.Member{
			{ID: "s1", Name: "Alice", Status: model.StatusActive},
			{ID: "s2", Name: "Bob", Status: model.StatusActive},
		},
		Groups: []model.Group{
			{ID: "g1", Name: "Team A", MemberIDs: []string{"s1"}},
			{ID: "g2", Name: "Team B", MemberIDs: []string{"s2"}},
			{ID: "g3", Name: "Empty", MemberIDs: nil},
		},
		GroupSets: []model.GroupSet{
			{ID: "gs1", Name: "sections", GroupIDs: []string{"g1", "g2", "g3"}},
		},
		Assignments: []model.Assignment{
			{ID: "a1", Name: "Lab 1", GroupSetID: "gs1", Selection: model.SelectAll()},
		},
	}
}

func TestCreateReposProgressProtocol(t *testing.T) {
	p := newFakePlatform()
	r := opsRoster()

	var events []Event
	result, err := CreateRepos(context.Background(), p, r, "a1", Config{}, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Succeeded != 2 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != SkipEmptyGroup {
		t.Errorf("skipped = %+v", result.Skipped)
	}
	if _, ok := p.repos["lab-1-team-a"]; !ok {
		t.Errorf("expected repo lab-1-team-a, have %v", p.repos)
	}

	// Exactly one Started, monotonic Progress, one Completed.
	if events[0].Kind != EventStarted || events[len(events)-1].Kind != EventCompleted {
		t.Fatalf("event protocol violated: %+v", events)
	}
	current := 0
	for _, e := range events[1 : len(events)-1] {
		if e.Kind != EventProgress {
			t.Errorf("unexpected event %+v", e)
		}
		if e.Current <= current {
			t.Errorf("progress not monotonic: %d after %d", e.Current, current)
		}
		current = e.Current
	}
	if events[len(events)-1].Result == nil {
		t.Error("completed event missing result")
	}
}

func TestCreateReposSkipsExisting(t *testing.T) {
	p := newFakePlatform()
	r := opsRoster()

	if _, err := CreateRepos(context.Background(), p, r, "a1", Config{}, nil); err != nil {
		t.Fatal(err)
	}
	result, err := CreateRepos(context.Background(), p, r, "a1", Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 0 {
		t.Errorf("succeeded = %d, want 0", result.Succeeded)
	}
	exists := 0
	for _, s := range result.Skipped {
		if s.Reason == SkipRepoExists {
			exists++
		}
	}
	if exists != 2 {
		t.Errorf("repo_exists skips = %d, want 2", exists)
	}
}

func TestCreateReposFailureDoesNotAbort(t *testing.T) {
	p := newFakePlatform()
	p.failCreate["lab-1-team-a"] = true
	r := opsRoster()

	result, err := CreateRepos(context.Background(), p, r, "a1", Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 || result.Succeeded != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].RepoName != "lab-1-team-a" {
		t.Errorf("errors = %+v", result.Errors)
	}
	if result.AllOK() {
		t.Error("AllOK must be false when failed > 0")
	}
}

func TestPreflightCreate(t *testing.T) {
	p := newFakePlatform()
	p.repos["lab-1-team-a"] = platform.Repo{Name: "lab-1-team-a"}
	r := opsRoster()

	result, err := PreflightCreate(context.Background(), p, r, "a1", Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Collisions) != 1 || result.Collisions[0].Kind != CollisionAlreadyExists {
		t.Errorf("collisions = %+v", result.Collisions)
	}
	if result.ReadyCount != 1 {
		t.Errorf("ready = %d, want 1", result.ReadyCount)
	}
}

func TestPreflightClone(t *testing.T) {
	p := newFakePlatform()
	p.repos["lab-1-team-a"] = platform.Repo{Name: "lab-1-team-a"}
	r := opsRoster()

	result, err := PreflightClone(context.Background(), p, r, "a1", Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Collisions) != 1 || result.Collisions[0].Kind != CollisionNotFound {
		t.Errorf("collisions = %+v", result.Collisions)
	}
	if result.Collisions[0].RepoName != "lab-1-team-b" {
		t.Errorf("collision repo = %q", result.Collisions[0].RepoName)
	}
}

func TestDeleteRepos(t *testing.T) {
	p := newFakePlatform()
	p.repos["lab-1-team-a"] = platform.Repo{Name: "lab-1-team-a"}
	r := opsRoster()

	result, err := DeleteRepos(context.Background(), p, r, "a1", Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", result.Succeeded)
	}
	notFound := 0
	for _, s := range result.Skipped {
		if s.Reason == SkipRepoNotFound {
			notFound++
		}
	}
	if notFound != 1 {
		t.Errorf("repo_not_found skips = %d, want 1", notFound)
	}
	if len(p.deleted) != 1 || p.deleted[0] != "lab-1-team-a" {
		t.Errorf("deleted = %v", p.deleted)
	}
}

func TestClonePathLayouts(t *testing.T) {
	cfg := Config{TargetDir: "/grading"}
	tgt := target{group: model.Group{Name: "Team A"}, repoName: "lab-1-team-a"}

	tests := []struct {
		layout Layout
		want   string
	}{
		{LayoutFlat, filepath.Join("/grading", "lab-1-team-a")},
		{LayoutByTeam, filepath.Join("/grading", "team-a", "lab-1-team-a")},
		{LayoutByTask, filepath.Join("/grading", "lab-1", "lab-1-team-a")},
	}
	for _, tt := range tests {
		cfg.Layout = tt.layout
		if got := clonePath(cfg, "Lab 1", tgt); got != tt.want {
			t.Errorf("clonePath(%s) = %q, want %q", tt.layout, got, tt.want)
		}
	}
}

func TestCloneReposSkipsExistingDestination(t *testing.T) {
	p := newFakePlatform()
	r := opsRoster()
	dir := t.TempDir()

	// Pre-create team A's destination; the batch must skip it and still
	// attempt team B (whose repo does not exist upstream → also skipped).
	if err := os.MkdirAll(filepath.Join(dir, "lab-1-team-a"), 0o755); err != nil {
		t.Fatal(err)
	}
	p.repos["lab-1-team-a"] = platform.Repo{Name: "lab-1-team-a", CloneURL: "x"}

	result, err := CloneRepos(context.Background(), p, r, "a1", Config{TargetDir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var reasons []SkipReason
	for _, s := range result.Skipped {
		reasons = append(reasons, s.Reason)
	}
	wantExists, wantMissing := false, false
	for _, reason := range reasons {
		if reason == SkipRepoExists {
			wantExists = true
		}
		if reason == SkipRepoNotFound {
			wantMissing = true
		}
	}
	if !wantExists || !wantMissing {
		t.Errorf("skip reasons = %v", reasons)
	}
	if result.Failed != 0 {
		t.Errorf("failed = %d, want 0", result.Failed)
	}
}
