// Package lmsops merges LMS data into the roster: connection verification,
// student import with conflict detection, and group import with strict
// member resolution. Imports are all-or-nothing; a conflict or an
// unresolvable member leaves the roster untouched.
package lmsops

import (
	"context"
	"fmt"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/httpclient"
	"github.com/edulab/reporover/internal/lms"
	"github.com/edulab/reporover/internal/model"
)

// VerifyResult reports whether an LMS connection works.
type VerifyResult struct {
	Success bool
	LmsType lms.Type
	Message string
}

// VerifyConnection builds a client for the connection and lists courses.
func VerifyConnection(ctx context.Context, conn lms.Connection, hc *httpclient.Client) VerifyResult {
	client, err := lms.NewClient(conn, hc, nil)
	if err != nil {
		return VerifyResult{LmsType: conn.Type, Message: err.Error()}
	}
	courses, err := client.GetCourses(ctx)
	if err != nil {
		return VerifyResult{LmsType: conn.Type, Message: err.Error()}
	}
	return VerifyResult{
		Success: true,
		LmsType: conn.Type,
		Message: fmt.Sprintf("connected, %d courses visible", len(courses)),
	}
}

// ImportSummary counts the outcome of a student import.
type ImportSummary struct {
	Added        int
	Updated      int
	Unchanged    int
	MissingEmail int
}

// ImportStudents fetches the course's users and reconciles them into the
// roster. Matching prefers the stored LMS user ID, falling back to the
// normalized email. Before any write, the whole batch is checked for
// identity conflicts: an email that already belongs to a member synced from
// a different LMS user fails the import.
func ImportStudents(ctx context.Context, client lms.Client, courseID string, r *model.Roster, source string) (ImportSummary, error) {
	var summary ImportSummary

	users, err := client.GetUsers(ctx, courseID)
	if err != nil {
		return summary, err
	}

	var conflicts []string
	for _, u := range users {
		email := model.NormalizeEmail(u.Email)
		if email == "" {
			continue
		}
		if m := memberByEmail(r, email); m != nil && m.LmsUserID != "" && m.LmsUserID != u.ID {
			conflicts = append(conflicts, fmt.Sprintf(
				"%s (%s) is already linked to lms user %s, incoming %s", m.Name, m.Email, m.LmsUserID, u.ID))
		}
	}
	if len(conflicts) > 0 {
		return summary, apperr.NewValidation("lms identity conflicts", conflicts...)
	}

	for _, u := range users {
		if model.NormalizeEmail(u.Email) == "" {
			summary.MissingEmail++
		}
		applyUser(r, u, source, &summary)
	}
	return summary, nil
}

func memberByEmail(r *model.Roster, normalized string) *model.Member {
	for _, seq := range [][]model.Member{r.Students, r.Staff} {
		for i := range seq {
			if model.NormalizeEmail(seq[i].Email) == normalized {
				return &seq[i]
			}
		}
	}
	return nil
}

func memberByLmsID(r *model.Roster, lmsID string) *model.Member {
	for _, seq := range [][]model.Member{r.Students, r.Staff} {
		for i := range seq {
			if seq[i].LmsUserID == lmsID {
				return &seq[i]
			}
		}
	}
	return nil
}

func applyUser(r *model.Roster, u lms.User, source string, summary *ImportSummary) {
	existing := memberByLmsID(r, u.ID)
	if existing == nil {
		if email := model.NormalizeEmail(u.Email); email != "" {
			existing = memberByEmail(r, email)
		}
	}

	if existing != nil {
		changed := false
		if u.Name != "" && existing.Name != u.Name {
			existing.Name = u.Name
			changed = true
		}
		if email := model.NormalizeEmail(u.Email); email != "" && model.NormalizeEmail(existing.Email) != email {
			existing.Email = email
			changed = true
		}
		if u.StudentNumber != "" && existing.StudentNumber != u.StudentNumber {
			existing.StudentNumber = u.StudentNumber
			changed = true
		}
		if existing.LmsUserID != u.ID {
			existing.LmsUserID = u.ID
			changed = true
		}
		if changed {
			summary.Updated++
		} else {
			summary.Unchanged++
		}
		return
	}

	member := model.Member{
		ID:                model.NewID(),
		Name:              u.Name,
		Email:             model.NormalizeEmail(u.Email),
		StudentNumber:     u.StudentNumber,
		GitUsernameStatus: model.GitUsernameUnknown,
		Status:            model.StatusActive,
		EnrollmentType:    u.EnrollmentType,
		LmsUserID:         u.ID,
		Source:            source,
	}
	if u.EnrollmentType.IsStaff() {
		r.Staff = append(r.Staff, member)
	} else {
		r.Students = append(r.Students, member)
	}
	summary.Added++
}
