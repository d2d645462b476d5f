package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/httpclient"
)

const gitlabPageSize = 100

// gitlabClient targets the GitLab REST API under /api/v4. The organization
// maps to a GitLab group, teams map to subgroups, and projects are addressed
// by their URL-encoded full path.
type gitlabClient struct {
	params  Params
	apiBase string
	http    *httpclient.Client
}

func newGitLab(p Params, hc *httpclient.Client) *gitlabClient {
	return &gitlabClient{
		params:  p,
		apiBase: strings.TrimRight(p.BaseURL, "/") + "/api/v4",
		http:    hc,
	}
}

func (c *gitlabClient) header() http.Header {
	h := http.Header{}
	h.Set("PRIVATE-TOKEN", c.params.Token)
	return h
}

// projectPath addresses a project by URL-encoded org/name.
func (c *gitlabClient) projectPath(name string) string {
	return url.PathEscape(c.params.Organization + "/" + name)
}

func (c *gitlabClient) getPaged(ctx context.Context, path string, decodePage func(body string) (int, error)) error {
	for page := 1; ; page++ {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		endpoint := fmt.Sprintf("%s%s%sper_page=%d&page=%d", c.apiBase, path, sep, gitlabPageSize, page)
		resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, URL: endpoint, Header: c.header()})
		if err != nil {
			return err
		}
		n, err := decodePage(resp.Body)
		if err != nil {
			return apperr.NewUnexpected("decoding gitlab response from "+endpoint, err)
		}
		if n < gitlabPageSize {
			return nil
		}
	}
}

type gitlabGroup struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
	Path string      `json:"path"`
}

func (g gitlabGroup) toTeam() Team {
	return Team{ID: g.ID.String(), Name: g.Name, Slug: g.Path}
}

type gitlabProject struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Visibility  string      `json:"visibility"`
	WebURL      string      `json:"web_url"`
	HTTPURL     string      `json:"http_url_to_repo"`
}

func (p gitlabProject) toRepo() Repo {
	return Repo{
		Name:        p.Name,
		Description: p.Description,
		Private:     p.Visibility == "private",
		HTMLURL:     p.WebURL,
		CloneURL:    p.HTTPURL,
	}
}

// orgGroupID resolves the organization group's numeric ID.
func (c *gitlabClient) orgGroupID(ctx context.Context) (string, error) {
	var group gitlabGroup
	err := c.http.GetJSON(ctx, c.apiBase+"/groups/"+url.PathEscape(c.params.Organization), c.header(), &group)
	if err != nil {
		return "", err
	}
	return group.ID.String(), nil
}

func (c *gitlabClient) CreateTeam(ctx context.Context, name string, members []string, permission Permission) (Team, error) {
	parentID, err := c.orgGroupID(ctx)
	if err != nil {
		return Team{}, err
	}
	var created gitlabGroup
	body := map[string]any{"name": name, "path": name, "parent_id": parentID}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.apiBase+"/groups", c.header(), body, &created); err != nil {
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

func (c *gitlabClient) DeleteTeam(ctx context.Context, team Team) error {
	_, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		URL:    c.apiBase + "/groups/" + team.ID,
		Header: c.header(),
	})
	return err
}

func (c *gitlabClient) GetTeams(ctx context.Context, names []string) ([]Team, error) {
	var all []Team
	err := c.getPaged(ctx, "/groups/"+url.PathEscape(c.params.Organization)+"/subgroups", func(body string) (int, error) {
		var page []gitlabGroup
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return 0, err
		}
		for _, g := range page {
			all = append(all, g.toTeam())
		}
		return len(page), nil
	})
	if err != nil {
		return nil, err
	}
	return filterTeams(all, names), nil
}

// gitlabAccessLevel maps permissions onto GitLab numeric access levels.
func gitlabAccessLevel(p Permission) int {
	switch p {
	case PermissionPull:
		return 20 // reporter
	case PermissionAdmin:
		return 40 // maintainer
	default:
		return 30 // developer
	}
}

func (c *gitlabClient) AssignRepo(ctx context.Context, team Team, repo Repo, permission Permission) error {
	path := c.apiBase + "/projects/" + c.projectPath(repo.Name) + "/share"
	body := map[string]any{"group_id": team.ID, "group_access": gitlabAccessLevel(permission)}
	return c.http.DoJSON(ctx, http.MethodPost, path, c.header(), body, nil)
}

func (c *gitlabClient) AssignMembers(ctx context.Context, team Team, members []string) error {
	for _, username := range members {
		userID, err := c.userID(ctx, username)
		if err != nil {
			return err
		}
		body := map[string]any{"user_id": userID, "access_level": gitlabAccessLevel(PermissionPush)}
		if err := c.http.DoJSON(ctx, http.MethodPost, c.apiBase+"/groups/"+team.ID+"/members", c.header(), body, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *gitlabClient) userID(ctx context.Context, username string) (string, error) {
	var users []struct {
		ID json.Number `json:"id"`
	}
	err := c.http.GetJSON(ctx, c.apiBase+"/users?username="+url.QueryEscape(username), c.header(), &users)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", apperr.NewNotFound("gitlab user " + username + " not found")
	}
	return users[0].ID.String(), nil
}

func (c *gitlabClient) CreateRepo(ctx context.Context, name, description string, private bool, team *Team) (Repo, bool, error) {
	existing, err := c.GetRepo(ctx, name, nil)
	created := false
	switch {
	case err == nil:
	case errors.As(err, &apperr.NotFound{}):
		namespaceID, err := c.orgGroupID(ctx)
		if err != nil {
			return Repo{}, false, err
		}
		visibility := "public"
		if private {
			visibility = "private"
		}
		var raw gitlabProject
		body := map[string]any{
			"name": name, "path": name, "description": description,
			"visibility": visibility, "namespace_id": namespaceID,
		}
		if err := c.http.DoJSON(ctx, http.MethodPost, c.apiBase+"/projects", c.header(), body, &raw); err != nil {
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

func (c *gitlabClient) DeleteRepo(ctx context.Context, repo Repo) error {
	_, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		URL:    c.apiBase + "/projects/" + c.projectPath(repo.Name),
		Header: c.header(),
	})
	return err
}

func (c *gitlabClient) GetRepos(ctx context.Context, urlFilter string) ([]Repo, error) {
	var out []Repo
	err := c.getPaged(ctx, "/groups/"+url.PathEscape(c.params.Organization)+"/projects", func(body string) (int, error) {
		var page []gitlabProject
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return 0, err
		}
		for _, p := range page {
			if urlFilter == "" || strings.Contains(p.WebURL, urlFilter) {
				out = append(out, p.toRepo())
			}
		}
		return len(page), nil
	})
	return out, err
}

func (c *gitlabClient) GetRepo(ctx context.Context, name string, team *Team) (Repo, error) {
	if team != nil {
		name = team.Name + "-" + name
	}
	var raw gitlabProject
	err := c.http.GetJSON(ctx, c.apiBase+"/projects/"+c.projectPath(name), c.header(), &raw)
	if err != nil {
		return Repo{}, err
	}
	return raw.toRepo(), nil
}

func (c *gitlabClient) GetTeamRepos(ctx context.Context, team Team) ([]Repo, error) {
	var out []Repo
	err := c.getPaged(ctx, "/groups/"+team.ID+"/projects", func(body string) (int, error) {
		var page []gitlabProject
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return 0, err
		}
		for _, p := range page {
			out = append(out, p.toRepo())
		}
		return len(page), nil
	})
	return out, err
}

type gitlabIssue struct {
	IID   int    `json:"iid"`
	Title string `json:"title"`
	Desc  string `json:"description"`
	State string `json:"state"`
}

func (i gitlabIssue) toIssue() Issue {
	state := IssueClosed
	if i.State == "opened" {
		state = IssueOpen
	}
	return Issue{Number: i.IID, Title: i.Title, Body: i.Desc, State: state}
}

func (c *gitlabClient) CreateIssue(ctx context.Context, repo Repo, title, body string) (Issue, error) {
	var raw gitlabIssue
	payload := map[string]string{"title": title, "description": body}
	endpoint := c.apiBase + "/projects/" + c.projectPath(repo.Name) + "/issues"
	if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, c.header(), payload, &raw); err != nil {
		return Issue{}, err
	}
	return raw.toIssue(), nil
}

func (c *gitlabClient) CloseIssue(ctx context.Context, repo Repo, number int) error {
	endpoint := fmt.Sprintf("%s/projects/%s/issues/%d", c.apiBase, c.projectPath(repo.Name), number)
	return c.http.DoJSON(ctx, http.MethodPut, endpoint, c.header(), map[string]string{"state_event": "close"}, nil)
}

func (c *gitlabClient) GetRepoIssues(ctx context.Context, repo Repo, state IssueState) ([]Issue, error) {
	path := "/projects/" + c.projectPath(repo.Name) + "/issues"
	switch state {
	case IssueOpen:
		path += "?state=opened"
	case IssueClosed:
		path += "?state=closed"
	}
	var out []Issue
	err := c.getPaged(ctx, path, func(body string) (int, error) {
		var page []gitlabIssue
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return 0, err
		}
		for _, i := range page {
			out = append(out, i.toIssue())
		}
		return len(page), nil
	})
	return out, err
}

func (c *gitlabClient) GetRepoURLs(assignmentNames []string, org string, teamNames []string, insertAuth bool) ([]string, error) {
	if org == "" {
		org = c.params.Organization
	}
	var auth func(string) (string, error)
	if insertAuth {
		auth = c.InsertAuth
	}
	return repoURLs(c.params.BaseURL, org, assignmentNames, teamNames, auth)
}

func (c *gitlabClient) InsertAuth(rawURL string) (string, error) {
	user := c.params.User
	if user == "" {
		user = "oauth2"
	}
	return insertUserInfo(rawURL, user, c.params.Token)
}

func (c *gitlabClient) ExtractRepoName(rawURL string) string {
	return extractRepoName(rawURL)
}

func (c *gitlabClient) ForOrganization(org string) Platform {
	params := c.params
	params.Organization = org
	return &gitlabClient{params: params, apiBase: c.apiBase, http: c.http}
}

func (c *gitlabClient) VerifySettings(ctx context.Context) error {
	var self struct {
		Username string `json:"username"`
	}
	if err := c.http.GetJSON(ctx, c.apiBase+"/user", c.header(), &self); err != nil {
		return err
	}
	_, err := c.orgGroupID(ctx)
	return err
}

func (c *gitlabClient) OrgName() string { return c.params.Organization }
func (c *gitlabClient) User() string    { return c.params.User }
func (c *gitlabClient) BaseURL() string { return c.params.BaseURL }
