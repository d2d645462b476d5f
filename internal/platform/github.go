package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/httpclient"
)

const githubPageSize = 100

// githubClient targets the GitHub REST API, either github.com or an
// enterprise instance (which serves the API under /api/v3).
type githubClient struct {
	params  Params
	apiBase string
	http    *httpclient.Client
}

func newGitHub(p Params, hc *httpclient.Client) *githubClient {
	base := strings.TrimRight(p.BaseURL, "/")
	apiBase := base + "/api/v3"
	if strings.Contains(strings.ToLower(base), "github.com") {
		apiBase = "https://api.github.com"
	}
	transport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.Token}),
	}
	return &githubClient{
		params:  p,
		apiBase: apiBase,
		http:    hc.WithTransport(transport),
	}
}

func (c *githubClient) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/vnd.github.v3+json")
	return h
}

// getPaged fetches ?per_page=100&page=N until a page comes back short.
func (c *githubClient) getPaged(ctx context.Context, path string, decodePage func(body string) (int, error)) error {
	for page := 1; ; page++ {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		url := fmt.Sprintf("%s%s%sper_page=%d&page=%d", c.apiBase, path, sep, githubPageSize, page)
		resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, URL: url, Header: c.header()})
		if err != nil {
			return err
		}
		n, err := decodePage(resp.Body)
		if err != nil {
			return apperr.NewUnexpected("decoding github response from "+url, err)
		}
		if n < githubPageSize {
			return nil
		}
	}
}

type githubTeam struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
	Slug string      `json:"slug"`
}

func (t githubTeam) toTeam() Team {
	return Team{ID: t.ID.String(), Name: t.Name, Slug: t.Slug}
}

type githubRepo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	HTMLURL     string `json:"html_url"`
	CloneURL    string `json:"clone_url"`
}

func (r githubRepo) toRepo() Repo {
	return Repo{
		Name:        r.Name,
		Description: r.Description,
		Private:     r.Private,
		HTMLURL:     r.HTMLURL,
		CloneURL:    r.CloneURL,
	}
}

func (c *githubClient) CreateTeam(ctx context.Context, name string, members []string, permission Permission) (Team, error) {
	var created githubTeam
	body := map[string]any{"name": name, "permission": string(permission), "privacy": "closed"}
	err := c.http.DoJSON(ctx, http.MethodPost, c.apiBase+"/orgs/"+c.params.Organization+"/teams", c.header(), body, &created)
	if err != nil {
		return Team{}, err
	}
	team := created.toTeam()
	if len(members) > 0 {
		if err := c.AssignMembers(ctx, team, members); err != nil {
			return team, err
		}
	}
	return team, nil
}

func (c *githubClient) DeleteTeam(ctx context.Context, team Team) error {
	url := c.apiBase + "/orgs/" + c.params.Organization + "/teams/" + team.Slug
	_, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodDelete, URL: url, Header: c.header()})
	return err
}

func (c *githubClient) GetTeams(ctx context.Context, names []string) ([]Team, error) {
	var all []Team
	err := c.getPaged(ctx, "/orgs/"+c.params.Organization+"/teams", func(body string) (int, error) {
		var page []githubTeam
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return 0, err
		}
		for _, t := range page {
			all = append(all, t.toTeam())
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return filterTeams(all, names), nil
}

func filterTeams(teams []Team, names []string) []Team {
	if len(names) == 0 {
		return teams
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Team
	for _, t := range teams {
		if want[t.Name] || want[t.Slug] {
			out = append(out, t)
		}
	}
	return out
}

// teamBySlug resolves a team by name to its slug form used in URLs.
func (c *githubClient) teamBySlug(ctx context.Context, team Team) (Team, error) {
	if team.Slug != "" {
		return team, nil
	}
	teams, err := c.GetTeams(ctx, []string{team.Name})
	if err != nil {
		return Team{}, err
	}
	if len(teams) == 0 {
		return Team{}, apperr.NewNotFound("team " + team.Name + " not found")
	}
	return teams[0], nil
}

func (c *githubClient) AssignRepo(ctx context.Context, team Team, repo Repo, permission Permission) error {
	team, err := c.teamBySlug(ctx, team)
	if err != nil {
		return err
	}
	org := c.params.Organization
	url := c.apiBase + "/orgs/" + org + "/teams/" + team.Slug + "/repos/" + org + "/" + repo.Name
	body, _ := json.Marshal(map[string]string{"permission": string(permission)})
	_, err = c.http.Do(ctx, httpclient.Request{Method: http.MethodPut, URL: url, Header: c.header(), Body: body})
	return err
}

func (c *githubClient) AssignMembers(ctx context.Context, team Team, members []string) error {
	team, err := c.teamBySlug(ctx, team)
	if err != nil {
		return err
	}
	for _, username := range members {
		url := c.apiBase + "/orgs/" + c.params.Organization + "/teams/" + team.Slug + "/memberships/" + username
		if _, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodPut, URL: url, Header: c.header()}); err != nil {
			return err
		}
	}
	return nil
}

func (c *githubClient) CreateRepo(ctx context.Context, name, description string, private bool, team *Team) (Repo, bool, error) {
	existing, err := c.GetRepo(ctx, name, nil)
	created := false
	switch {
	case err == nil:
		// Exists; permissions are still (re)applied below.
	case errors.As(err, &apperr.NotFound{}):
		var raw githubRepo
		body := map[string]any{"name": name, "description": description, "private": private}
		if err := c.http.DoJSON(ctx, http.MethodPost, c.apiBase+"/orgs/"+c.params.Organization+"/repos", c.header(), body, &raw); err != nil {
			return Repo{}, false, err
		}
		existing = raw.toRepo()
		created = true
	default:
		return Repo{}, false, err
	}

	if team != nil {
		if err := c.AssignRepo(ctx, *team, existing, PermissionPush); err != nil {
			return existing, created, err
		}
	}
	return existing, created, nil
}

func (c *githubClient) DeleteRepo(ctx context.Context, repo Repo) error {
	url := c.apiBase + "/repos/" + c.params.Organization + "/" + repo.Name
	_, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodDelete, URL: url, Header: c.header()})
	return err
}

func (c *githubClient) GetRepos(ctx context.Context, urlFilter string) ([]Repo, error) {
	var out []Repo
	err := c.getPaged(ctx, "/orgs/"+c.params.Organization+"/repos", func(body string) (int, error) {
		var page []githubRepo
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return 0, err
		}
		for _, r := range page {
			if urlFilter == "" || strings.Contains(r.HTMLURL, urlFilter) {
				out = append(out, r.toRepo())
			}
		}
		return len(page), nil
	})
	return out, err
}

func (c *githubClient) GetRepo(ctx context.Context, name string, team *Team) (Repo, error) {
	if team != nil {
		name = team.Name + "-" + name
	}
	var raw githubRepo
	err := c.http.GetJSON(ctx, c.apiBase+"/repos/"+c.params.Organization+"/"+name, c.header(), &raw)
	if err != nil {
		return Repo{}, err
	}
	return raw.toRepo(), nil
}

func (c *githubClient) GetTeamRepos(ctx context.Context, team Team) ([]Repo, error) {
	team, err := c.teamBySlug(ctx, team)
	if err != nil {
		return nil, err
	}
	var out []Repo
	err = c.getPaged(ctx, "/orgs/"+c.params.Organization+"/teams/"+team.Slug+"/repos", func(body string) (int, error) {
		var page []githubRepo
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return 0, err
		}
		for _, r := range page {
			out = append(out, r.toRepo())
		}
		return len(page), nil
	})
	return out, err
}

type githubIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
}

func (c *githubClient) CreateIssue(ctx context.Context, repo Repo, title, body string) (Issue, error) {
	var raw githubIssue
	payload := map[string]string{"title": title, "body": body}
	url := c.apiBase + "/repos/" + c.params.Organization + "/" + repo.Name + "/issues"
	if err := c.http.DoJSON(ctx, http.MethodPost, url, c.header(), payload, &raw); err != nil {
		return Issue{}, err
	}
	return Issue{Number: raw.Number, Title: raw.Title, Body: raw.Body, State: IssueState(raw.State)}, nil
}

func (c *githubClient) CloseIssue(ctx context.Context, repo Repo, number int) error {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.apiBase, c.params.Organization, repo.Name, number)
	return c.http.DoJSON(ctx, http.MethodPatch, url, c.header(), map[string]string{"state": "closed"}, nil)
}

func (c *githubClient) GetRepoIssues(ctx context.Context, repo Repo, state IssueState) ([]Issue, error) {
	if state == "" {
		state = IssueOpen
	}
	var out []Issue
	path := fmt.Sprintf("/repos/%s/%s/issues?state=%s", c.params.Organization, repo.Name, state)
	err := c.getPaged(ctx, path, func(body string) (int, error) {
		var page []githubIssue
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return 0, err
		}
		for _, i := range page {
			out = append(out, Issue{Number: i.Number, Title: i.Title, Body: i.Body, State: IssueState(i.State)})
		}
		return len(page), nil
	})
	return out, err
}

func (c *githubClient) GetRepoURLs(assignmentNames []string, org string, teamNames []string, insertAuth bool) ([]string, error) {
	if org == "" {
		org = c.params.Organization
	}
	var auth func(string) (string, error)
	if insertAuth {
		auth = c.InsertAuth
	}
	return repoURLs(c.params.BaseURL, org, assignmentNames, teamNames, auth)
}

func (c *githubClient) InsertAuth(rawURL string) (string, error) {
	return insertUserInfo(rawURL, "oauth2", c.params.Token)
}

func (c *githubClient) ExtractRepoName(rawURL string) string {
	return extractRepoName(rawURL)
}

func (c *githubClient) ForOrganization(org string) Platform {
	params := c.params
	params.Organization = org
	return &githubClient{params: params, apiBase: c.apiBase, http: c.http}
}

func (c *githubClient) VerifySettings(ctx context.Context) error {
	var self struct {
		Login string `json:"login"`
	}
	if err := c.http.GetJSON(ctx, c.apiBase+"/user", c.header(), &self); err != nil {
		return err
	}
	var org struct {
		Login string `json:"login"`
	}
	if err := c.http.GetJSON(ctx, c.apiBase+"/orgs/"+c.params.Organization, c.header(), &org); err != nil {
		return err
	}
	return nil
}

func (c *githubClient) OrgName() string { return c.params.Organization }
func (c *githubClient) User() string    { return c.params.User }
func (c *githubClient) BaseURL() string { return c.params.BaseURL }
