package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/httpclient"
)

const giteaPageSize = 50

// giteaClient targets the Gitea API under /api/v1. The configured base URL
// may or may not carry the /api/v1 suffix; the HTML base for clone URLs is
// derived by stripping it.
type giteaClient struct {
	params   Params
	apiBase  string
	htmlBase string
	http     *httpclient.Client
}

func newGitea(p Params, hc *httpclient.Client) *giteaClient {
	base := strings.TrimRight(p.BaseURL, "/")
	htmlBase := strings.TrimSuffix(base, "/api/v1")
	return &giteaClient{
		params:   p,
		apiBase:  htmlBase + "/api/v1",
		htmlBase: htmlBase,
		http:     hc,
	}
}

func (c *giteaClient) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "token "+c.params.Token)
	h.Set("Accept", "application/json")
	return h
}

func (c *giteaClient) getPaged(ctx context.Context, path string, decodePage func(body string) (int, error)) error {
	for page := 1; ; page++ {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		endpoint := fmt.Sprintf("%s%s%spage=%d&limit=%d", c.apiBase, path, sep, page, giteaPageSize)
		resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, URL: endpoint, Header: c.header()})
		if err != nil {
			return err
		}
		n, err := decodePage(resp.Body)
		if err != nil {
			return apperr.NewUnexpected("decoding gitea response from "+endpoint, err)
		}
		if n < giteaPageSize {
			return nil
		}
	}
}

type giteaTeam struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

func (t giteaTeam) toTeam() Team {
	return Team{ID: t.ID.String(), Name: t.Name, Slug: t.Name}
}

type giteaRepo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	HTMLURL     string `json:"html_url"`
	CloneURL    string `json:"clone_url"`
}

func (r giteaRepo) toRepo() Repo {
	return Repo{
		Name:        r.Name,
		Description: r.Description,
		Private:     r.Private,
		HTMLURL:     r.HTMLURL,
		CloneURL:    r.CloneURL,
	}
}

func (c *giteaClient) CreateTeam(ctx context.Context, name string, members []string, permission Permission) (Team, error) {
	var created giteaTeam
	body := map[string]any{
		"name":       name,
		"permission": string(permission),
		"units":      []string{"repo.code", "repo.issues", "repo.pulls"},
	}
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

func (c *giteaClient) DeleteTeam(ctx context.Context, team Team) error {
	_, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		URL:    c.apiBase + "/teams/" + team.ID,
		Header: c.header(),
	})
	return err
}

func (c *giteaClient) GetTeams(ctx context.Context, names []string) ([]Team, error) {
	var all []Team
	err := c.getPaged(ctx, "/orgs/"+c.params.Organization+"/teams", func(body string) (int, error) {
		var page []giteaTeam
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

func (c *giteaClient) teamByID(ctx context.Context, team Team) (Team, error) {
	if team.ID != "" {
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

func (c *giteaClient) AssignRepo(ctx context.Context, team Team, repo Repo, permission Permission) error {
	team, err := c.teamByID(ctx, team)
	if err != nil {
		return err
	}
	endpoint := c.apiBase + "/teams/" + team.ID + "/repos/" + c.params.Organization + "/" + repo.Name
	_, err = c.http.Do(ctx, httpclient.Request{Method: http.MethodPut, URL: endpoint, Header: c.header()})
	return err
}

func (c *giteaClient) AssignMembers(ctx context.Context, team Team, members []string) error {
	team, err := c.teamByID(ctx, team)
	if err != nil {
		return err
	}
	for _, username := range members {
		endpoint := c.apiBase + "/teams/" + team.ID + "/members/" + username
		if _, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodPut, URL: endpoint, Header: c.header()}); err != nil {
			return err
		}
	}
	return nil
}

func (c *giteaClient) CreateRepo(ctx context.Context, name, description string, private bool, team *Team) (Repo, bool, error) {
	existing, err := c.GetRepo(ctx, name, nil)
	created := false
	switch {
	case err == nil:
	case errors.As(err, &apperr.NotFound{}):
		var raw giteaRepo
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

func (c *giteaClient) DeleteRepo(ctx context.Context, repo Repo) error {
	_, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		URL:    c.apiBase + "/repos/" + c.params.Organization + "/" + repo.Name,
		Header: c.header(),
	})
	return err
}

func (c *giteaClient) GetRepos(ctx context.Context, urlFilter string) ([]Repo, error) {
	var out []Repo
	err := c.getPaged(ctx, "/orgs/"+c.params.Organization+"/repos", func(body string) (int, error) {
		var page []giteaRepo
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

func (c *giteaClient) GetRepo(ctx context.Context, name string, team *Team) (Repo, error) {
	if team != nil {
		name = team.Name + "-" + name
	}
	var raw giteaRepo
	err := c.http.GetJSON(ctx, c.apiBase+"/repos/"+c.params.Organization+"/"+name, c.header(), &raw)
	if err != nil {
		return Repo{}, err
	}
	return raw.toRepo(), nil
}

func (c *giteaClient) GetTeamRepos(ctx context.Context, team Team) ([]Repo, error) {
	team, err := c.teamByID(ctx, team)
	if err != nil {
		return nil, err
	}
	var out []Repo
	err = c.getPaged(ctx, "/teams/"+team.ID+"/repos", func(body string) (int, error) {
		var page []giteaRepo
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

type giteaIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
}

func (c *giteaClient) CreateIssue(ctx context.Context, repo Repo, title, body string) (Issue, error) {
	var raw giteaIssue
	payload := map[string]string{"title": title, "body": body}
	endpoint := c.apiBase + "/repos/" + c.params.Organization + "/" + repo.Name + "/issues"
	if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, c.header(), payload, &raw); err != nil {
		return Issue{}, err
	}
	return Issue{Number: raw.Number, Title: raw.Title, Body: raw.Body, State: IssueState(raw.State)}, nil
}

func (c *giteaClient) CloseIssue(ctx context.Context, repo Repo, number int) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.apiBase, c.params.Organization, repo.Name, number)
	return c.http.DoJSON(ctx, http.MethodPatch, endpoint, c.header(), map[string]string{"state": "closed"}, nil)
}

func (c *giteaClient) GetRepoIssues(ctx context.Context, repo Repo, state IssueState) ([]Issue, error) {
	if state == "" {
		state = IssueOpen
	}
	path := fmt.Sprintf("/repos/%s/%s/issues?state=%s", c.params.Organization, repo.Name, state)
	var out []Issue
	err := c.getPaged(ctx, path, func(body string) (int, error) {
		var page []giteaIssue
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

func (c *giteaClient) GetRepoURLs(assignmentNames []string, org string, teamNames []string, insertAuth bool) ([]string, error) {
	if org == "" {
		org = c.params.Organization
	}
	var auth func(string) (string, error)
	if insertAuth {
		auth = c.InsertAuth
	}
	return repoURLs(c.htmlBase, org, assignmentNames, teamNames, auth)
}

func (c *giteaClient) InsertAuth(rawURL string) (string, error) {
	user := c.params.User
	if user == "" {
		user = "reporover"
	}
	return insertUserInfo(rawURL, user, c.params.Token)
}

func (c *giteaClient) ExtractRepoName(rawURL string) string {
	return extractRepoName(rawURL)
}

func (c *giteaClient) ForOrganization(org string) Platform {
	params := c.params
	params.Organization = org
	return &giteaClient{params: params, apiBase: c.apiBase, htmlBase: c.htmlBase, http: c.http}
}

func (c *giteaClient) VerifySettings(ctx context.Context) error {
	var self struct {
		Login string `json:"login"`
	}
	if err := c.http.GetJSON(ctx, c.apiBase+"/user", c.header(), &self); err != nil {
		return err
	}
	var org struct {
		Username string `json:"username"`
	}
	return c.http.GetJSON(ctx, c.apiBase+"/orgs/"+c.params.Organization, c.header(), &org)
}

func (c *giteaClient) OrgName() string { return c.params.Organization }
func (c *giteaClient) User() string    { return c.params.User }
func (c *giteaClient) BaseURL() string { return c.htmlBase }
