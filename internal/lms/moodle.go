package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/httpclient"
	"github.com/edulab/reporover/internal/model"
)

// moodleClient speaks the Moodle Web Services REST protocol. Every call is a
// GET against /webservice/rest/server.php with the function name and token in
// the query string. Moodle reports errors in the response body, not with
// HTTP status codes, so every payload is screened for an exception object
// before decoding.
type moodleClient struct {
	baseURL  string
	token    string
	http     *httpclient.Client
	progress ProgressFunc
}

func newMoodle(baseURL, token string, hc *httpclient.Client, progress ProgressFunc) *moodleClient {
	return &moodleClient{baseURL: baseURL, token: token, http: hc, progress: progress}
}

type moodleError struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

func (c *moodleClient) call(ctx context.Context, wsfunction string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("wstoken", c.token)
	params.Set("wsfunction", wsfunction)
	params.Set("moodlewsrestformat", "json")
	endpoint := c.baseURL + "/webservice/rest/server.php?" + params.Encode()

	resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, URL: endpoint})
	if err != nil {
		return err
	}

	var moodleErr moodleError
	if json.Unmarshal([]byte(resp.Body), &moodleErr) == nil && moodleErr.Exception != "" {
		msg := fmt.Sprintf("moodle %s: %s", wsfunction, moodleErr.Message)
		switch moodleErr.ErrorCode {
		case "invalidtoken", "accessexception":
			return apperr.NewAuth(msg)
		default:
			return apperr.NewAPI(msg, http.StatusOK, resp.Body)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(resp.Body), out); err != nil {
		return apperr.NewUnexpected("decoding moodle response for "+wsfunction, err)
	}
	return nil
}

type moodleSiteInfo struct {
	UserID   json.Number `json:"userid"`
	SiteName string      `json:"sitename"`
}

func (c *moodleClient) siteInfo(ctx context.Context) (moodleSiteInfo, error) {
	var info moodleSiteInfo
	err := c.call(ctx, "core_webservice_get_site_info", nil, &info)
	return info, err
}

type moodleCourse struct {
	ID        json.Number `json:"id"`
	FullName  string      `json:"fullname"`
	ShortName string      `json:"shortname"`
}

func (c *moodleClient) GetCourses(ctx context.Context) ([]Course, error) {
	info, err := c.siteInfo(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("userid", info.UserID.String())
	var raw []moodleCourse
	if err := c.call(ctx, "core_enrol_get_users_courses", params, &raw); err != nil {
		return nil, err
	}

	out := make([]Course, 0, len(raw))
	for _, mc := range raw {
		out = append(out, Course{ID: mc.ID.String(), Name: mc.FullName, Code: mc.ShortName})
	}
	return out, nil
}

func (c *moodleClient) GetCourse(ctx context.Context, courseID string) (Course, error) {
	courses, err := c.GetCourses(ctx)
	if err != nil {
		return Course{}, err
	}
	for _, course := range courses {
		if course.ID == courseID {
			return course, nil
		}
	}
	return Course{}, apperr.NewNotFound("course " + courseID + " not found")
}

func moodleEnrollmentType(role string) model.EnrollmentType {
	switch role {
	case "student":
		return model.EnrollStudent
	case "editingteacher":
		return model.EnrollTeacher
	case "teacher":
		return model.EnrollTa
	default:
		return model.EnrollOther
	}
}

func (c *moodleClient) GetUsers(ctx context.Context, courseID string) ([]User, error) {
	c.progress.emit(ProgressEvent{Kind: ProgressFetchingUsers})

	params := url.Values{}
	params.Set("courseid", courseID)
	var raw []struct {
		ID       json.Number `json:"id"`
		FullName string      `json:"fullname"`
		Email    string      `json:"email"`
		IDNumber string      `json:"idnumber"`
		Roles    []struct {
			ShortName string `json:"shortname"`
		} `json:"roles"`
	}
	if err := c.call(ctx, "core_enrol_get_enrolled_users", params, &raw); err != nil {
		return nil, err
	}

	out := make([]User, 0, len(raw))
	for _, mu := range raw {
		enrollment := model.EnrollOther
		if len(mu.Roles) > 0 {
			enrollment = moodleEnrollmentType(mu.Roles[0].ShortName)
		}
		out = append(out, User{
			ID:             mu.ID.String(),
			Name:           mu.FullName,
			Email:          mu.Email,
			StudentNumber:  mu.IDNumber,
			EnrollmentType: enrollment,
		})
	}
	c.progress.emit(ProgressEvent{Kind: ProgressFetchedUsers, Count: len(out)})
	return out, nil
}

type moodleGrouping struct {
	ID     json.Number `json:"id"`
	Name   string      `json:"name"`
	Groups []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"groups"`
}

func (c *moodleClient) groupings(ctx context.Context, courseID string, withGroups bool) ([]moodleGrouping, error) {
	params := url.Values{}
	params.Set("courseid", courseID)
	if withGroups {
		params.Set("returngroups", "1")
	}
	var raw []moodleGrouping
	if err := c.call(ctx, "core_group_get_course_groupings", params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *moodleClient) GetGroups(ctx context.Context, courseID string) ([]Group, error) {
	c.progress.emit(ProgressEvent{Kind: ProgressFetchingGroups})

	params := url.Values{}
	params.Set("courseid", courseID)
	var raw []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	}
	if err := c.call(ctx, "core_group_get_course_groups", params, &raw); err != nil {
		return nil, err
	}

	out := make([]Group, 0, len(raw))
	for _, mg := range raw {
		out = append(out, Group{ID: mg.ID.String(), Name: mg.Name})
	}
	c.progress.emit(ProgressEvent{Kind: ProgressFetchedGroups, Count: len(out)})
	return out, nil
}

func (c *moodleClient) GetGroupCategories(ctx context.Context, courseID string) ([]GroupCategory, error) {
	raw, err := c.groupings(ctx, courseID, false)
	if err != nil {
		return nil, err
	}
	out := make([]GroupCategory, 0, len(raw))
	for _, g := range raw {
		out = append(out, GroupCategory{ID: g.ID.String(), Name: g.Name})
	}
	return out, nil
}

func (c *moodleClient) GetGroupsForCategory(ctx context.Context, courseID, categoryID string) ([]Group, error) {
	if categoryID == "" {
		return c.GetGroups(ctx, courseID)
	}
	raw, err := c.groupings(ctx, courseID, true)
	if err != nil {
		return nil, err
	}
	for _, grouping := range raw {
		if grouping.ID.String() != categoryID {
			continue
		}
		out := make([]Group, 0, len(grouping.Groups))
		for _, g := range grouping.Groups {
			out = append(out, Group{ID: g.ID.String(), Name: g.Name, CategoryID: categoryID})
		}
		return out, nil
	}
	return nil, apperr.NewNotFound("grouping " + categoryID + " not found")
}

func (c *moodleClient) GetGroupMembers(ctx context.Context, group Group) ([]Membership, error) {
	params := url.Values{}
	params.Set("groupids[0]", group.ID)
	var raw []struct {
		GroupID json.Number   `json:"groupid"`
		UserIDs []json.Number `json:"userids"`
	}
	if err := c.call(ctx, "core_group_get_group_members", params, &raw); err != nil {
		return nil, err
	}

	var out []Membership
	for _, entry := range raw {
		if entry.GroupID.String() != group.ID {
			continue
		}
		for _, uid := range entry.UserIDs {
			// Moodle has no membership entity, so the ID is synthesized and
			// stable across fetches.
			out = append(out, Membership{
				ID:     group.ID + "-" + uid.String(),
				UserID: uid.String(),
			})
		}
	}
	return out, nil
}

func (c *moodleClient) GetAssignments(ctx context.Context, courseID string) ([]Assignment, error) {
	params := url.Values{}
	params.Set("courseids[0]", courseID)
	var raw struct {
		Courses []struct {
			ID          json.Number `json:"id"`
			Assignments []struct {
				ID   json.Number `json:"id"`
				Name string      `json:"name"`
			} `json:"assignments"`
		} `json:"courses"`
	}
	if err := c.call(ctx, "mod_assign_get_assignments", params, &raw); err != nil {
		return nil, err
	}

	var out []Assignment
	for _, course := range raw.Courses {
		if course.ID.String() != courseID {
			continue
		}
		for _, a := range course.Assignments {
			out = append(out, Assignment{ID: a.ID.String(), Name: a.Name})
		}
	}
	return out, nil
}

func (c *moodleClient) ValidateToken(ctx context.Context) error {
	_, err := c.siteInfo(ctx)
	return err
}
