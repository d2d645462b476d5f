// Package model defines the roster data model: members, groups, group sets,
// assignments, and the selection/connection tagged variants, together with
// the lookup helpers used by every other component.
//
// The roster is a plain value. Mutating operations take a roster and return
// a new one; nothing here maintains persistent indices.
package model

import "strings"

// MemberStatus tracks enrollment state of a member.
type MemberStatus string

const (
	StatusActive     MemberStatus = "active"
	StatusDropped    MemberStatus = "dropped"
	StatusIncomplete MemberStatus = "incomplete"
)

// GitUsernameStatus records whether a member's git username has been checked
// against the hosting platform.
type GitUsernameStatus string

const (
	GitUsernameUnknown GitUsernameStatus = "unknown"
	GitUsernameValid   GitUsernameStatus = "valid"
	GitUsernameInvalid GitUsernameStatus = "invalid"
)

// EnrollmentType mirrors the LMS enrollment role of a member. It determines
// whether a member lives in the roster's students or staff sequence.
type EnrollmentType string

const (
	EnrollStudent  EnrollmentType = "student"
	EnrollTeacher  EnrollmentType = "teacher"
	EnrollTa       EnrollmentType = "ta"
	EnrollDesigner EnrollmentType = "designer"
	EnrollObserver EnrollmentType = "observer"
	EnrollOther    EnrollmentType = "other"
)

// IsStaff reports whether the enrollment type places a member on the staff
// sequence rather than the student sequence.
func (e EnrollmentType) IsStaff() bool {
	switch e {
	case EnrollTeacher, EnrollTa, EnrollDesigner:
		return true
	default:
		return false
	}
}

// Member is a person on the roster.
type Member struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	StudentNumber     string            `json:"student_number,omitempty"`
	GitUsername       string            `json:"git_username,omitempty"`
	GitUsernameStatus GitUsernameStatus `json:"git_username_status"`
	Status            MemberStatus      `json:"status"`
	EnrollmentType    EnrollmentType    `json:"enrollment_type"`
	LmsUserID         string            `json:"lms_user_id,omitempty"`
	Source            string            `json:"source"`
	Custom            map[string]string `json:"custom,omitempty"`
}

// GroupOrigin records where a group came from.
type GroupOrigin string

const (
	OriginLocal  GroupOrigin = "local"
	OriginLms    GroupOrigin = "lms"
	OriginSystem GroupOrigin = "system"
)

// Group is a named, ordered collection of member IDs, unique within the group.
type Group struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	MemberIDs  []string    `json:"member_ids"`
	Origin     GroupOrigin `json:"origin"`
	LmsGroupID string      `json:"lms_group_id,omitempty"`
}

// SystemSetType identifies one of the two system-maintained group sets.
type SystemSetType string

const (
	SystemSetIndividualStudents SystemSetType = "individual_students"
	SystemSetStaff              SystemSetType = "staff"
)

// GroupSet is a named, ordered collection of group IDs with an optional
// upstream connection and a default selection.
type GroupSet struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	GroupIDs   []string            `json:"group_ids"`
	Connection *GroupSetConnection `json:"connection,omitempty"`
	Selection  GroupSelection      `json:"group_selection"`
}

// AssignmentType distinguishes assignments every active student must be in
// from optional ones.
type AssignmentType string

const (
	AssignmentClassWide AssignmentType = "class_wide"
	AssignmentOptional  AssignmentType = "optional"
)

// Assignment references a group set and narrows it with a selection.
type Assignment struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        AssignmentType `json:"assignment_type"`
	GroupSetID  string         `json:"group_set_id"`
	Selection   GroupSelection `json:"group_selection"`
}

// Roster aggregates the whole model for one course/profile. Students and
// staff are separate ordered sequences; a member belongs to exactly one,
// determined by its enrollment type.
type Roster struct {
	Students    []Member     `json:"students"`
	Staff       []Member     `json:"staff"`
	Groups      []Group      `json:"groups"`
	GroupSets   []GroupSet   `json:"group_sets"`
	Assignments []Assignment `json:"assignments"`
	Source      string       `json:"source,omitempty"`
}

// NormalizeEmail is the merge key normalization used everywhere emails are
// compared: trim then lowercase.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName collapses internal whitespace and lowercases, the comparison
// form for group and assignment names.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
