// Package platform abstracts the git hosting backends. Four implementations
// share one capability set: GitHub, GitLab, Gitea, and a filesystem-backed
// Local platform used in tests. The factory detects the platform from the
// base URL when the caller does not name one explicitly.
package platform

import (
	"context"
	"net/url"
	"strings"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/httpclient"
)

// Type tags a platform implementation.
type Type string

const (
	TypeGitHub Type = "github"
	TypeGitLab Type = "gitlab"
	TypeGitea  Type = "gitea"
	TypeLocal  Type = "local"
)

// Permission is the access level granted to a team on a repo.
type Permission string

const (
	PermissionPull  Permission = "pull"
	PermissionPush  Permission = "push"
	PermissionAdmin Permission = "admin"
)

// Team is a hosting-side team.
type Team struct {
	ID   string
	Name string
	Slug string
}

// Repo is a hosting-side repository.
type Repo struct {
	Name        string
	Description string
	Private     bool
	HTMLURL     string
	CloneURL    string
}

// IssueState filters issue listings.
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
	IssueAll    IssueState = "all"
)

// Issue is a hosting-side issue.
type Issue struct {
	Number int
	Title  string
	Body   string
	State  IssueState
}

// Platform is the uniform capability set over git hosting backends.
type Platform interface {
	CreateTeam(ctx context.Context, name string, members []string, permission Permission) (Team, error)
	DeleteTeam(ctx context.Context, team Team) error
	GetTeams(ctx context.Context, names []string) ([]Team, error)
	AssignRepo(ctx context.Context, team Team, repo Repo, permission Permission) error
	AssignMembers(ctx context.Context, team Team, members []string) error

	// CreateRepo is idempotent: when the repo already exists it is returned
	// with created=false and permissions are still applied.
	CreateRepo(ctx context.Context, name, description string, private bool, team *Team) (Repo, bool, error)
	DeleteRepo(ctx context.Context, repo Repo) error
	GetRepos(ctx context.Context, urlFilter string) ([]Repo, error)
	GetRepo(ctx context.Context, name string, team *Team) (Repo, error)
	GetTeamRepos(ctx context.Context, team Team) ([]Repo, error)

	CreateIssue(ctx context.Context, repo Repo, title, body string) (Issue, error)
	CloseIssue(ctx context.Context, repo Repo, number int) error
	GetRepoIssues(ctx context.Context, repo Repo, state IssueState) ([]Issue, error)

	// GetRepoURLs synthesizes clone URLs without touching the network, by
	// the convention {html_base}/{org}/{team-}{assignment}.git.
	GetRepoURLs(assignmentNames []string, org string, teamNames []string, insertAuth bool) ([]string, error)
	InsertAuth(rawURL string) (string, error)
	ExtractRepoName(rawURL string) string

	ForOrganization(org string) Platform
	VerifySettings(ctx context.Context) error

	OrgName() string
	User() string
	BaseURL() string
}

// Params holds what every platform needs to connect.
type Params struct {
	BaseURL      string
	Token        string
	Organization string
	User         string
}

// New builds a platform client. When explicit is nil the type is detected
// from the base URL: local paths and file:// URLs select the Local platform,
// and the hostname selects the hosted ones.
func New(explicit *Type, p Params, hc *httpclient.Client) (Platform, error) {
	if hc == nil {
		hc = httpclient.NewDefault()
	}
	t := detectType(explicit, p.BaseURL)
	switch t {
	case TypeGitHub:
		return newGitHub(p, hc), nil
	case TypeGitLab:
		return newGitLab(p, hc), nil
	case TypeGitea:
		return newGitea(p, hc), nil
	case TypeLocal:
		return newLocal(p)
	default:
		return nil, apperr.NewInvalidURL("cannot detect platform type from " + p.BaseURL)
	}
}

func detectType(explicit *Type, baseURL string) Type {
	if explicit != nil {
		return *explicit
	}
	if strings.HasPrefix(baseURL, "/") || strings.HasPrefix(baseURL, "file://") {
		return TypeLocal
	}
	lower := strings.ToLower(baseURL)
	switch {
	case strings.Contains(lower, "github"):
		return TypeGitHub
	case strings.Contains(lower, "gitlab"):
		return TypeGitLab
	case strings.Contains(lower, "gitea"):
		return TypeGitea
	default:
		return ""
	}
}

// repoURLs implements the shared clone-URL grammar.
func repoURLs(htmlBase, org string, assignmentNames, teamNames []string, auth func(string) (string, error)) ([]string, error) {
	base := strings.TrimRight(htmlBase, "/")
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
			raw := base + "/" + org + "/" + name + ".git"
			if auth != nil {
				withAuth, err := auth(raw)
				if err != nil {
					return nil, err
				}
				raw = withAuth
			}
			out = append(out, raw)
		}
	}
	return out, nil
}

// extractRepoName returns the last path segment with a .git suffix removed.
func extractRepoName(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSuffix(trimmed, ".git")
}

// insertUserInfo rewrites an https URL to carry credentials.
func insertUserInfo(rawURL, username, secret string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", apperr.NewInvalidURL("cannot parse "+rawURL, err)
	}
	if parsed.Host == "" {
		return "", apperr.NewInvalidURL("cannot insert credentials into " + rawURL)
	}
	parsed.User = url.UserPassword(username, secret)
	return parsed.String(), nil
}
