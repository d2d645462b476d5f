// Package lms talks to learning management systems. Two backends are
// supported, Canvas (REST) and Moodle (Web Services); both expose the same
// capability set through Client so the import operations never know which
// one they are driving.
package lms

import (
	"context"
	"strings"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/httpclient"
	"github.com/edulab/reporover/internal/model"
)

// Type tags the LMS backend.
type Type string

const (
	TypeCanvas Type = "canvas"
	TypeMoodle Type = "moodle"
)

// Connection holds what is needed to reach an LMS.
type Connection struct {
	Type    Type   `json:"type"`
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
}

// Course is an LMS course.
type Course struct {
	ID   string
	Name string
	Code string
}

// User is an LMS course participant. The ID is the LMS-side user ID, kept
// separate from roster member IDs.
type User struct {
	ID             string
	Name           string
	Email          string
	StudentNumber  string
	EnrollmentType model.EnrollmentType
}

// GroupCategory is an LMS group set (Canvas group category, Moodle grouping).
type GroupCategory struct {
	ID   string
	Name string
}

// Group is an LMS group.
type Group struct {
	ID          string
	Name        string
	CategoryID  string
	MemberCount int
}

// Membership is one user's membership in a group.
type Membership struct {
	ID     string
	UserID string
}

// Assignment is an LMS assignment, fetched for display only.
type Assignment struct {
	ID   string
	Name string
}

// ProgressKind tags a progress event.
type ProgressKind string

const (
	ProgressFetchingUsers        ProgressKind = "fetching_users"
	ProgressFetchedUsers         ProgressKind = "fetched_users"
	ProgressFetchingGroups       ProgressKind = "fetching_groups"
	ProgressFetchedGroups        ProgressKind = "fetched_groups"
	ProgressFetchingGroupMembers ProgressKind = "fetching_group_members"
)

// ProgressEvent reports progress of a long-running fetch.
type ProgressEvent struct {
	Kind      ProgressKind
	Count     int
	Current   int
	Total     int
	GroupName string
}

// ProgressFunc observes fetch progress. May be nil.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(e ProgressEvent) {
	if f != nil {
		f(e)
	}
}

// Client is the uniform LMS capability set.
type Client interface {
	GetCourses(ctx context.Context) ([]Course, error)
	GetCourse(ctx context.Context, courseID string) (Course, error)
	GetUsers(ctx context.Context, courseID string) ([]User, error)
	GetGroups(ctx context.Context, courseID string) ([]Group, error)
	GetGroupCategories(ctx context.Context, courseID string) ([]GroupCategory, error)
	GetGroupsForCategory(ctx context.Context, courseID, categoryID string) ([]Group, error)
	GetGroupMembers(ctx context.Context, group Group) ([]Membership, error)
	GetAssignments(ctx context.Context, courseID string) ([]Assignment, error)
	ValidateToken(ctx context.Context) error
}

// NewClient builds the client for a connection. The progress callback may be
// nil.
func NewClient(conn Connection, hc *httpclient.Client, progress ProgressFunc) (Client, error) {
	if hc == nil {
		hc = httpclient.NewDefault()
	}
	base := strings.TrimRight(conn.BaseURL, "/")
	switch conn.Type {
	case TypeCanvas:
		return newCanvas(base, conn.Token, hc, progress), nil
	case TypeMoodle:
		return newMoodle(base, conn.Token, hc, progress), nil
	default:
		return nil, apperr.NewValidation("unknown lms type", string(conn.Type))
	}
}
