package lms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edulab/reporover/internal/httpclient"
	"github.com/edulab/reporover/internal/model"
)

func testHTTP() *httpclient.Client {
	return httpclient.New(httpclient.RetryConfig{MaxAttempts: 1})
}

func newTestCanvas(t *testing.T, handler http.Handler) (*canvasClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Connection{Type: TypeCanvas, BaseURL: srv.URL, Token: "tok"}, testHTTP(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return c.(*canvasClient), srv
}

func TestCanvasPagination(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("per_page") != "100" {
			t.Errorf("per_page = %q, want 100", r.URL.Query().Get("per_page"))
		}
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", `<`+srv.URL+`/api/v1/courses?page=2&per_page=100>; rel="next", <x>; rel="last"`)
			w.Write([]byte(`[{"id":1,"name":"Course One","course_code":"C1"}]`))
		case "2":
			w.Write([]byte(`[{"id":2,"name":"Course Two","course_code":"C2"}]`))
		}
	})
	c, server := newTestCanvas(t, mux)
	srv = server

	courses, err := c.GetCourses(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 2 {
		t.Fatalf("got %d courses, want 2 across pages", len(courses))
	}
	if courses[0].ID != "1" || courses[1].Code != "C2" {
		t.Errorf("courses = %+v", courses)
	}
}

func TestCanvasGetUsers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/7/users", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q["enrollment_type[]"]; len(got) != 5 {
			t.Errorf("enrollment_type[] = %v, want all five", got)
		}
		if q["include[]"][0] != "enrollments" {
			t.Errorf("include[] = %v", q["include[]"])
		}
		w.Write([]byte(`[
			{"id":10,"name":"Alice","email":"alice@example.com","sis_user_id":"123",
			 "enrollments":[{"type":"StudentEnrollment"}]},
			{"id":11,"name":"Prof X","email":"x@example.com",
			 "enrollments":[{"type":"TeacherEnrollment"}]}
		]`))
	})
	c, _ := newTestCanvas(t, mux)

	var events []ProgressKind
	c.progress = func(e ProgressEvent) { events = append(events, e.Kind) }

	users, err := c.GetUsers(context.Background(), "7")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users", len(users))
	}
	if users[0].EnrollmentType != model.EnrollStudent || users[1].EnrollmentType != model.EnrollTeacher {
		t.Errorf("enrollment types = %s, %s", users[0].EnrollmentType, users[1].EnrollmentType)
	}
	if users[0].StudentNumber != "123" {
		t.Errorf("student number = %q", users[0].StudentNumber)
	}
	if len(events) != 2 || events[0] != ProgressFetchingUsers || events[1] != ProgressFetchedUsers {
		t.Errorf("progress events = %v", events)
	}
}

func TestCanvasCategoriesFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/7/group_categories", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/api/v1/courses/7/groups", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query()["include[]"][0] != "group_category" {
			t.Errorf("fallback must request include[]=group_category")
		}
		w.Write([]byte(`[
			{"id":1,"name":"g1","group_category_id":5,"group_category":{"id":5,"name":"Sections"}},
			{"id":2,"name":"g2","group_category_id":5,"group_category":{"id":5,"name":"Sections"}}
		]`))
	})
	c, _ := newTestCanvas(t, mux)

	cats, err := c.GetGroupCategories(context.Background(), "7")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].ID != "5" || cats[0].Name != "Sections" {
		t.Errorf("categories = %+v, want deduped [Sections]", cats)
	}
}

func TestCanvasGroupMembers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/groups/3/memberships", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":100,"user_id":10},{"id":101,"user_id":11}]`))
	})
	c, _ := newTestCanvas(t, mux)

	members, err := c.GetGroupMembers(context.Background(), Group{ID: "3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0].UserID != "10" {
		t.Errorf("members = %+v", members)
	}
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{`<https://x/api?page=2>; rel="next"`, "https://x/api?page=2"},
		{`<https://x/a>; rel="current", <https://x/b>; rel="next"`, "https://x/b"},
		{`<https://x/a>; rel="last"`, ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := nextLink(tt.link); got != tt.want {
			t.Errorf("nextLink(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}
