package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/edulab/reporover/internal/httpclient"
)

func fastHTTP() *httpclient.Client {
	return httpclient.New(httpclient.RetryConfig{MaxAttempts: 1})
}

// testGitHub points a github client at an httptest server. The server URL
// does not contain "github.com", so the client uses the enterprise /api/v3
// layout.
func testGitHub(t *testing.T, mux *http.ServeMux) *githubClient {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return newGitHub(Params{BaseURL: srv.URL, Token: "TOK", Organization: "course"}, fastHTTP())
}

func TestGitHubCreateRepoIdempotent(t *testing.T) {
	var posts int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/course/lab1", func(w http.ResponseWriter, r *http.Request) {
		if posts == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(githubRepo{Name: "lab1", Private: true, HTMLURL: "https://x/course/lab1"})
	})
	mux.HandleFunc("POST /api/v3/orgs/course/repos", func(w http.ResponseWriter, r *http.Request) {
		posts++
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "lab1" || body["private"] != true {
			t.Errorf("create body = %v", body)
		}
		json.NewEncoder(w).Encode(githubRepo{Name: "lab1", Private: true, HTMLURL: "https://x/course/lab1"})
	})
	c := testGitHub(t, mux)

	_, created, err := c.CreateRepo(context.Background(), "lab1", "", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first create should report created=true")
	}

	_, created, err = c.CreateRepo(context.Background(), "lab1", "", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second create should report created=false")
	}
	if posts != 1 {
		t.Errorf("POST count = %d, want 1", posts)
	}
}

func TestGitHubPaginationStopsShort(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/orgs/course/repos", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if r.URL.Query().Get("per_page") != "100" {
			t.Errorf("per_page = %q", r.URL.Query().Get("per_page"))
		}
		var repos []githubRepo
		count := githubPageSize
		if page == 2 {
			count = 3
		}
		if page > 2 {
			t.Errorf("fetched page %d after a short page", page)
		}
		for i := 0; i < count; i++ {
			repos = append(repos, githubRepo{Name: fmt.Sprintf("repo-%d-%d", page, i), HTMLURL: "https://x/r"})
		}
		json.NewEncoder(w).Encode(repos)
	})
	c := testGitHub(t, mux)

	repos, err := c.GetRepos(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(repos) != githubPageSize+3 {
		t.Errorf("got %d repos, want %d", len(repos), githubPageSize+3)
	}
}

func TestGitHubAuthHeader(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/course/lab1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer TOK" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(githubRepo{Name: "lab1"})
	})
	c := testGitHub(t, mux)

	if _, err := c.GetRepo(context.Background(), "lab1", nil); err != nil {
		t.Fatal(err)
	}
}

func TestGitHubTeamBySlug(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/orgs/course/teams", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]githubTeam{
			{ID: "1", Name: "Team Alpha", Slug: "team-alpha"},
		})
	})
	var assigned string
	mux.HandleFunc("PUT /api/v3/orgs/course/teams/team-alpha/repos/course/lab1", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assigned = body["permission"]
		w.WriteHeader(http.StatusNoContent)
	})
	c := testGitHub(t, mux)

	err := c.AssignRepo(context.Background(), Team{Name: "Team Alpha"}, Repo{Name: "lab1"}, PermissionPush)
	if err != nil {
		t.Fatal(err)
	}
	if assigned != "push" {
		t.Errorf("permission = %q, want push", assigned)
	}
}

func TestGitHubForOrganization(t *testing.T) {
	c := newGitHub(Params{BaseURL: "https://github.com", Token: "T", Organization: "a"}, fastHTTP())
	other := c.ForOrganization("b")
	if other.OrgName() != "b" || c.OrgName() != "a" {
		t.Errorf("ForOrganization should not mutate the original")
	}
}
