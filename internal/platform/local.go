package platform

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/gitcmd"
)

// localClient is the filesystem-backed test double. Entities live as one
// JSON file each under <root>/orgs/<org>/{teams,repos,issues}, and created
// repos are real bare git repositories, so clone operations work against
// them unchanged.
type localClient struct {
	params Params
	root   string
}

func newLocal(p Params) (*localClient, error) {
	root := strings.TrimPrefix(p.BaseURL, "file://")
	if root == "" {
		return nil, apperr.NewInvalidURL("local platform needs a root directory")
	}
	return &localClient{params: p, root: root}, nil
}

func (c *localClient) orgDir() string {
	return filepath.Join(c.root, "orgs", c.params.Organization)
}

func (c *localClient) teamPath(name string) string {
	return filepath.Join(c.orgDir(), "teams", name+".json")
}

func (c *localClient) repoMetaPath(name string) string {
	return filepath.Join(c.orgDir(), "repos", name+".json")
}

func (c *localClient) repoDir(name string) string {
	return filepath.Join(c.orgDir(), name)
}

type localTeam struct {
	Name       string   `json:"name"`
	Members    []string `json:"members"`
	Permission string   `json:"permission"`
}

type localRepo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

func (r localRepo) toRepo(dir string) Repo {
	return Repo{
		Name:        r.Name,
		Description: r.Description,
		Private:     r.Private,
		HTMLURL:     dir,
		CloneURL:    dir,
	}
}

func writeEntity(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.NewFile("creating "+filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.NewUnexpected("encoding "+path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.NewFile("writing "+path, err)
	}
	return nil
}

func readEntity(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return apperr.NewNotFound(path + " not found")
	}
	if err != nil {
		return apperr.NewFile("reading "+path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.NewUnexpected("decoding "+path, err)
	}
	return nil
}

func (c *localClient) CreateTeam(ctx context.Context, name string, members []string, permission Permission) (Team, error) {
	t := localTeam{Name: name, Members: members, Permission: string(permission)}
	if err := writeEntity(c.teamPath(name), t); err != nil {
		return Team{}, err
	}
	return Team{ID: name, Name: name, Slug: name}, nil
}

func (c *localClient) DeleteTeam(ctx context.Context, team Team) error {
	if err := os.Remove(c.teamPath(team.Name)); err != nil && !os.IsNotExist(err) {
		return apperr.NewFile("deleting team "+team.Name, err)
	}
	return nil
}

func (c *localClient) GetTeams(ctx context.Context, names []string) ([]Team, error) {
	entries, err := os.ReadDir(filepath.Join(c.orgDir(), "teams"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewFile("listing teams", err)
	}
	var all []Team
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		all = append(all, Team{ID: name, Name: name, Slug: name})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return filterTeams(all, names), nil
}

// AssignRepo records the assignment as a [team:<name>] tag on the repo's
// description. Crude, but deterministic and easy to assert on in tests.
func (c *localClient) AssignRepo(ctx context.Context, team Team, repo Repo, permission Permission) error {
	var meta localRepo
	if err := readEntity(c.repoMetaPath(repo.Name), &meta); err != nil {
		return err
	}
	tag := "[team:" + team.Name + "]"
	if !strings.Contains(meta.Description, tag) {
		meta.Description = strings.TrimSpace(meta.Description + " " + tag)
	}
	return writeEntity(c.repoMetaPath(repo.Name), meta)
}

func (c *localClient) AssignMembers(ctx context.Context, team Team, members []string) error {
	var t localTeam
	if err := readEntity(c.teamPath(team.Name), &t); err != nil {
		return err
	}
	present := make(map[string]bool, len(t.Members))
	for _, m := range t.Members {
		present[m] = true
	}
	for _, m := range members {
		if !present[m] {
			t.Members = append(t.Members, m)
		}
	}
	return writeEntity(c.teamPath(team.Name), t)
}

func (c *localClient) CreateRepo(ctx context.Context, name, description string, private bool, team *Team) (Repo, bool, error) {
	existing, err := c.GetRepo(ctx, name, nil)
	created := false
	if err == nil {
		// Exists; fall through to permission application.
	} else {
		if !errors.As(err, &apperr.NotFound{}) {
			return Repo{}, false, err
		}
		meta := localRepo{Name: name, Description: description, Private: private}
		if err := writeEntity(c.repoMetaPath(name), meta); err != nil {
			return Repo{}, false, err
		}
		if err := gitcmd.InitBare(ctx, c.repoDir(name)); err != nil {
			return Repo{}, false, err
		}
		existing = meta.toRepo(c.repoDir(name))
		created = true
	}

	if team != nil {
		if err := c.AssignRepo(ctx, *team, existing, PermissionPush); err != nil {
			return existing, created, err
		}
	}
	return existing, created, nil
}

func (c *localClient) DeleteRepo(ctx context.Context, repo Repo) error {
	if err := os.Remove(c.repoMetaPath(repo.Name)); err != nil && !os.IsNotExist(err) {
		return apperr.NewFile("deleting repo metadata for "+repo.Name, err)
	}
	if err := os.RemoveAll(c.repoDir(repo.Name)); err != nil {
		return apperr.NewFile("deleting repo "+repo.Name, err)
	}
	os.RemoveAll(filepath.Join(c.orgDir(), "issues", repo.Name))
	return nil
}

func (c *localClient) GetRepos(ctx context.Context, urlFilter string) ([]Repo, error) {
	entries, err := os.ReadDir(filepath.Join(c.orgDir(), "repos"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewFile("listing repos", err)
	}
	var out []Repo
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		repo, err := c.GetRepo(ctx, name, nil)
		if err != nil {
			return nil, err
		}
		if urlFilter == "" || strings.Contains(repo.HTMLURL, urlFilter) {
			out = append(out, repo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *localClient) GetRepo(ctx context.Context, name string, team *Team) (Repo, error) {
	if team != nil {
		name = team.Name + "-" + name
	}
	var meta localRepo
	if err := readEntity(c.repoMetaPath(name), &meta); err != nil {
		return Repo{}, err
	}
	return meta.toRepo(c.repoDir(name)), nil
}

func (c *localClient) GetTeamRepos(ctx context.Context, team Team) ([]Repo, error) {
	all, err := c.GetRepos(ctx, "")
	if err != nil {
		return nil, err
	}
	tag := "[team:" + team.Name + "]"
	var out []Repo
	for _, r := range all {
		if strings.Contains(r.Description, tag) {
			out = append(out, r)
		}
	}
	return out, nil
}

type localIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
}

func (c *localClient) issueDir(repo string) string {
	return filepath.Join(c.orgDir(), "issues", repo)
}

func (c *localClient) CreateIssue(ctx context.Context, repo Repo, title, body string) (Issue, error) {
	dir := c.issueDir(repo.Name)
	issues, err := c.readIssues(repo.Name)
	if err != nil {
		return Issue{}, err
	}
	number := 0
	for _, i := range issues {
		if i.Number > number {
			number = i.Number
		}
	}
	number++
	issue := localIssue{Number: number, Title: title, Body: body, State: string(IssueOpen)}
	if err := writeEntity(filepath.Join(dir, strconv.Itoa(number)+".json"), issue); err != nil {
		return Issue{}, err
	}
	return Issue{Number: number, Title: title, Body: body, State: IssueOpen}, nil
}

func (c *localClient) CloseIssue(ctx context.Context, repo Repo, number int) error {
	path := filepath.Join(c.issueDir(repo.Name), strconv.Itoa(number)+".json")
	var issue localIssue
	if err := readEntity(path, &issue); err != nil {
		return err
	}
	issue.State = string(IssueClosed)
	return writeEntity(path, issue)
}

func (c *localClient) readIssues(repo string) ([]localIssue, error) {
	entries, err := os.ReadDir(c.issueDir(repo))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewFile("listing issues for "+repo, err)
	}
	var out []localIssue
	for _, e := range entries {
		var issue localIssue
		if err := readEntity(filepath.Join(c.issueDir(repo), e.Name()), &issue); err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (c *localClient) GetRepoIssues(ctx context.Context, repo Repo, state IssueState) ([]Issue, error) {
	raw, err := c.readIssues(repo.Name)
	if err != nil {
		return nil, err
	}
	var out []Issue
	for _, i := range raw {
		if state != IssueAll && state != "" && i.State != string(state) {
			continue
		}
		out = append(out, Issue{Number: i.Number, Title: i.Title, Body: i.Body, State: IssueState(i.State)})
	}
	return out, nil
}

func (c *localClient) GetRepoURLs(assignmentNames []string, org string, teamNames []string, insertAuth bool) ([]string, error) {
	if org == "" {
		org = c.params.Organization
	}
	base := filepath.Join(c.root, "orgs")
	var out []string
	for _, assignment := range assignmentNames {
		names := []string{assignment}
		if len(teamNames) > 0 {
			names = names[:0]
			for _, team := range teamNames {
				names = append(names, team+"-"+assignment)
			}
		}
		for _, name := range names {
			out = append(out, filepath.Join(base, org, name))
		}
	}
	return out, nil
}

// InsertAuth is the identity on the local platform.
func (c *localClient) InsertAuth(rawURL string) (string, error) {
	return rawURL, nil
}

func (c *localClient) ExtractRepoName(rawURL string) string {
	return extractRepoName(rawURL)
}

func (c *localClient) ForOrganization(org string) Platform {
	params := c.params
	params.Organization = org
	return &localClient{params: params, root: c.root}
}

func (c *localClient) VerifySettings(ctx context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return apperr.NewFile("local platform root "+c.root, err)
	}
	if !info.IsDir() {
		return apperr.NewFile(c.root + " is not a directory")
	}
	return nil
}

func (c *localClient) OrgName() string { return c.params.Organization }
func (c *localClient) User() string    { return c.params.User }
func (c *localClient) BaseURL() string { return c.root }
