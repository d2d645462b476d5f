package lms

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
	"github.com/edulab/reporover/internal/model"
)

// canvasClient speaks the Canvas REST API under /api/v1. All list endpoints
// are paginated via the Link header; pages are followed until no rel="next"
// remains.
type canvasClient struct {
	apiBase  string
	token    string
	http     *httpclient.Client
	progress ProgressFunc
}

func newCanvas(baseURL, token string, hc *httpclient.Client, progress ProgressFunc) *canvasClient {
	return &canvasClient{
		apiBase:  baseURL + "/api/v1",
		token:    token,
		http:     hc,
		progress: progress,
	}
}

func (c *canvasClient) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("Accept", "application/json")
	return h
}

// getPages fetches every page of a list endpoint, appending each page's JSON
// array into out (a pointer to a slice).
func (c *canvasClient) getPages(ctx context.Context, rawURL string, decodePage func(body string) error) error {
	next := rawURL
	for next != "" {
		resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, URL: next, Header: c.header()})
		if err != nil {
			return err
		}
		if err := decodePage(resp.Body); err != nil {
			return apperr.NewUnexpected("decoding canvas response from "+next, err)
		}
		next = nextLink(resp.Header.Get("Link"))
	}
	return nil
}

// nextLink extracts the rel="next" URL from a Link header, or "".
func nextLink(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}

func (c *canvasClient) listURL(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("per_page", "100")
	return c.apiBase + path + "?" + params.Encode()
}

type canvasCourse struct {
	ID         json.Number `json:"id"`
	Name       string      `json:"name"`
	CourseCode string      `json:"course_code"`
}

func (cc canvasCourse) toCourse() Course {
	return Course{ID: cc.ID.String(), Name: cc.Name, Code: cc.CourseCode}
}

func (c *canvasClient) GetCourses(ctx context.Context) ([]Course, error) {
	var out []Course
	err := c.getPages(ctx, c.listURL("/courses", nil), func(body string) error {
		var page []canvasCourse
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return err
		}
		for _, cc := range page {
			out = append(out, cc.toCourse())
		}
		return nil
	})
	return out, err
}

func (c *canvasClient) GetCourse(ctx context.Context, courseID string) (Course, error) {
	var cc canvasCourse
	err := c.http.GetJSON(ctx, c.apiBase+"/courses/"+courseID, c.header(), &cc)
	if err != nil {
		return Course{}, err
	}
	return cc.toCourse(), nil
}

type canvasUser struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	SisUserID   string      `json:"sis_user_id"`
	Enrollments []struct {
		Type string `json:"type"`
	} `json:"enrollments"`
}

func canvasEnrollmentType(t string) model.EnrollmentType {
	switch t {
	case "StudentEnrollment":
		return model.EnrollStudent
	case "TeacherEnrollment":
		return model.EnrollTeacher
	case "TaEnrollment":
		return model.EnrollTa
	case "DesignerEnrollment":
		return model.EnrollDesigner
	case "ObserverEnrollment":
		return model.EnrollObserver
	default:
		return model.EnrollOther
	}
}

func (c *canvasClient) GetUsers(ctx context.Context, courseID string) ([]User, error) {
	c.progress.emit(ProgressEvent{Kind: ProgressFetchingUsers})

	params := url.Values{}
	params.Add("include[]", "enrollments")
	for _, t := range []string{
		"StudentEnrollment", "TeacherEnrollment", "TaEnrollment",
		"DesignerEnrollment", "ObserverEnrollment",
	} {
		params.Add("enrollment_type[]", t)
	}

	var out []User
	err := c.getPages(ctx, c.listURL("/courses/"+courseID+"/users", params), func(body string) error {
		var page []canvasUser
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return err
		}
		for _, cu := range page {
			enrollment := model.EnrollOther
			if len(cu.Enrollments) > 0 {
				enrollment = canvasEnrollmentType(cu.Enrollments[0].Type)
			}
			out = append(out, User{
				ID:             cu.ID.String(),
				Name:           cu.Name,
				Email:          cu.Email,
				StudentNumber:  cu.SisUserID,
				EnrollmentType: enrollment,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.progress.emit(ProgressEvent{Kind: ProgressFetchedUsers, Count: len(out)})
	return out, nil
}

type canvasGroup struct {
	ID            json.Number `json:"id"`
	Name          string      `json:"name"`
	CategoryID    json.Number `json:"group_category_id"`
	MembersCount  int         `json:"members_count"`
	GroupCategory *struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"group_category"`
}

func (cg canvasGroup) toGroup() Group {
	return Group{
		ID:          cg.ID.String(),
		Name:        cg.Name,
		CategoryID:  cg.CategoryID.String(),
		MemberCount: cg.MembersCount,
	}
}

func (c *canvasClient) getGroups(ctx context.Context, rawURL string) ([]canvasGroup, error) {
	var out []canvasGroup
	err := c.getPages(ctx, rawURL, func(body string) error {
		var page []canvasGroup
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return err
		}
		out = append(out, page...)
		return nil
	})
	return out, err
}

func (c *canvasClient) GetGroups(ctx context.Context, courseID string) ([]Group, error) {
	c.progress.emit(ProgressEvent{Kind: ProgressFetchingGroups})
	raw, err := c.getGroups(ctx, c.listURL("/courses/"+courseID+"/groups", nil))
	if err != nil {
		return nil, err
	}
	out := make([]Group, 0, len(raw))
	for _, cg := range raw {
		out = append(out, cg.toGroup())
	}
	c.progress.emit(ProgressEvent{Kind: ProgressFetchedGroups, Count: len(out)})
	return out, nil
}

func (c *canvasClient) GetGroupCategories(ctx context.Context, courseID string) ([]GroupCategory, error) {
	var out []GroupCategory
	err := c.getPages(ctx, c.listURL("/courses/"+courseID+"/group_categories", nil), func(body string) error {
		var page []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		}
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return err
		}
		for _, cat := range page {
			out = append(out, GroupCategory{ID: cat.ID.String(), Name: cat.Name})
		}
		return nil
	})
	if err == nil {
		return out, nil
	}

	// Some tokens cannot list categories directly; derive them from the
	// groups instead.
	var authErr apperr.Auth
	if !errors.As(err, &authErr) {
		return nil, err
	}
	params := url.Values{}
	params.Add("include[]", "group_category")
	raw, err := c.getGroups(ctx, c.listURL("/courses/"+courseID+"/groups", params))
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out = nil
	for _, cg := range raw {
		if cg.GroupCategory == nil {
			continue
		}
		id := cg.GroupCategory.ID.String()
		if !seen[id] {
			seen[id] = true
			out = append(out, GroupCategory{ID: id, Name: cg.GroupCategory.Name})
		}
	}
	return out, nil
}

func (c *canvasClient) GetGroupsForCategory(ctx context.Context, courseID, categoryID string) ([]Group, error) {
	if categoryID == "" {
		return c.GetGroups(ctx, courseID)
	}
	raw, err := c.getGroups(ctx, c.listURL("/group_categories/"+categoryID+"/groups", nil))
	if err != nil {
		return nil, err
	}
	out := make([]Group, 0, len(raw))
	for _, cg := range raw {
		out = append(out, cg.toGroup())
	}
	return out, nil
}

func (c *canvasClient) GetGroupMembers(ctx context.Context, group Group) ([]Membership, error) {
	var out []Membership
	err := c.getPages(ctx, c.listURL("/groups/"+group.ID+"/memberships", nil), func(body string) error {
		var page []struct {
			ID     json.Number `json:"id"`
			UserID json.Number `json:"user_id"`
		}
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return err
		}
		for _, m := range page {
			out = append(out, Membership{ID: m.ID.String(), UserID: m.UserID.String()})
		}
		return nil
	})
	return out, err
}

func (c *canvasClient) GetAssignments(ctx context.Context, courseID string) ([]Assignment, error) {
	var out []Assignment
	err := c.getPages(ctx, c.listURL("/courses/"+courseID+"/assignments", nil), func(body string) error {
		var page []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		}
		if err := json.Unmarshal([]byte(body), &page); err != nil {
			return err
		}
		for _, a := range page {
			out = append(out, Assignment{ID: a.ID.String(), Name: a.Name})
		}
		return nil
	})
	return out, err
}

func (c *canvasClient) ValidateToken(ctx context.Context) error {
	var self struct {
		ID json.Number `json:"id"`
	}
	if err := c.http.GetJSON(ctx, c.apiBase+"/users/self", c.header(), &self); err != nil {
		return err
	}
	if self.ID.String() == "" {
		return apperr.NewAuth(fmt.Sprintf("canvas token rejected by %s", c.apiBase))
	}
	return nil
}
