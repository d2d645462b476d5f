// Package validation checks roster and per-assignment integrity. Every check
// returns a list of typed issues rather than failing on the first finding,
// so the CLI can show everything at once.
package validation

import (
	"fmt"
	"strings"

	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/naming"
)

// Kind identifies one class of integrity finding.
type Kind string

const (
	KindDuplicateMemberID       Kind = "duplicate_member_id"
	KindMissingEmail            Kind = "missing_email"
	KindInvalidEmail            Kind = "invalid_email"
	KindDuplicateEmail          Kind = "duplicate_email"
	KindDuplicateAssignmentName Kind = "duplicate_assignment_name"

	KindDuplicateGroupID       Kind = "duplicate_group_id"
	KindDuplicateGroupName     Kind = "duplicate_group_name"
	KindMemberInMultipleGroups Kind = "member_in_multiple_groups"
	KindOrphanMemberRef        Kind = "orphan_member_ref"
	KindEmptyGroup             Kind = "empty_group"
	KindUnassignedStudents     Kind = "unassigned_students"
	KindMissingGitUsername     Kind = "missing_git_username"
	KindInvalidGitUsername     Kind = "invalid_git_username"
	KindDuplicateRepoName      Kind = "duplicate_repo_name"
)

// Blocking reports whether findings of this kind must stop an operation.
// Missing emails and git-username problems are warnings; everything else
// blocks.
func (k Kind) Blocking() bool {
	switch k {
	case KindMissingEmail, KindMissingGitUsername, KindInvalidGitUsername:
		return false
	default:
		return true
	}
}

// Issue is one integrity finding.
type Issue struct {
	Kind     Kind
	Blocking bool
	IDs      []string
	Context  string
}

func (i Issue) String() string {
	severity := "warning"
	if i.Blocking {
		severity = "error"
	}
	msg := fmt.Sprintf("[%s] %s", severity, i.Kind)
	if i.Context != "" {
		msg += ": " + i.Context
	}
	if len(i.IDs) > 0 {
		msg += " (" + strings.Join(i.IDs, ", ") + ")"
	}
	return msg
}

func newIssue(kind Kind, context string, ids ...string) Issue {
	return Issue{Kind: kind, Blocking: kind.Blocking(), IDs: ids, Context: context}
}

// HasBlocking reports whether any issue in the list is blocking.
func HasBlocking(issues []Issue) bool {
	for _, i := range issues {
		if i.Blocking {
			return true
		}
	}
	return false
}

// GitIdentityMode selects how members are addressed in Git-space.
type GitIdentityMode string

const (
	IdentityEmail    GitIdentityMode = "email"
	IdentityUsername GitIdentityMode = "username"
)

// AssignmentOptions parameterizes per-assignment checks.
type AssignmentOptions struct {
	IdentityMode     GitIdentityMode
	RepoNameTemplate string
}

// ValidEmail implements the "local@domain.tld" rule: exactly one '@',
// non-empty parts, a '.' strictly inside the domain, no space in the local
// part.
func ValidEmail(email string) bool {
	at := strings.Count(email, "@")
	if at != 1 {
		return false
	}
	idx := strings.Index(email, "@")
	local, domain := email[:idx], email[idx+1:]
	if local == "" || domain == "" {
		return false
	}
	if strings.Contains(local, " ") {
		return false
	}
	dot := strings.Index(domain, ".")
	if dot <= 0 || dot >= len(domain)-1 {
		// A dot must exist and be strictly inside the domain.
		return false
	}
	return true
}

// CheckRoster runs the roster-level checks.
func CheckRoster(r *model.Roster) []Issue {
	var issues []Issue

	all := make([]model.Member, 0, len(r.Students)+len(r.Staff))
	all = append(all, r.Students...)
	all = append(all, r.Staff...)

	seenID := map[string][]string{}
	seenEmail := map[string][]string{}
	for _, m := range all {
		seenID[m.ID] = append(seenID[m.ID], m.Name)
		email := strings.TrimSpace(m.Email)
		if email == "" {
			issues = append(issues, newIssue(KindMissingEmail, m.Name, m.ID))
			continue
		}
		if !ValidEmail(email) {
			issues = append(issues, newIssue(KindInvalidEmail, email, m.ID))
			continue
		}
		seenEmail[model.NormalizeEmail(email)] = append(seenEmail[model.NormalizeEmail(email)], m.ID)
	}
	for id, names := range seenID {
		if len(names) > 1 {
			issues = append(issues, newIssue(KindDuplicateMemberID, strings.Join(names, ", "), id))
		}
	}
	for email, ids := range seenEmail {
		if len(ids) > 1 {
			issues = append(issues, newIssue(KindDuplicateEmail, email, ids...))
		}
	}

	seenAssignment := map[string][]string{}
	for _, a := range r.Assignments {
		norm := model.NormalizeName(a.Name)
		seenAssignment[norm] = append(seenAssignment[norm], a.ID)
	}
	for name, ids := range seenAssignment {
		if len(ids) > 1 {
			issues = append(issues, newIssue(KindDuplicateAssignmentName, name, ids...))
		}
	}

	return issues
}

// CheckAssignment runs the per-assignment checks over the groups the
// assignment resolves to. groups must already be resolved (selection applied)
// in group-set order.
func CheckAssignment(r *model.Roster, assignment *model.Assignment, groups []model.Group, opts AssignmentOptions) []Issue {
	var issues []Issue

	seenGroupID := map[string]int{}
	seenGroupName := map[string][]string{}
	memberGroups := map[string][]string{}
	repoNames := map[string][]string{}

	for _, g := range groups {
		seenGroupID[g.ID]++
		norm := model.NormalizeName(g.Name)
		seenGroupName[norm] = append(seenGroupName[norm], g.ID)

		active := 0
		seenInGroup := map[string]bool{}
		for _, mid := range g.MemberIDs {
			m := r.FindMember(mid)
			if m == nil {
				issues = append(issues, newIssue(KindOrphanMemberRef, g.Name, mid))
				continue
			}
			if seenInGroup[mid] {
				continue
			}
			seenInGroup[mid] = true
			if m.Status == model.StatusActive {
				active++
			}
			memberGroups[mid] = append(memberGroups[mid], g.Name)

			if opts.IdentityMode == IdentityUsername && !m.EnrollmentType.IsStaff() {
				switch {
				case m.GitUsername == "":
					issues = append(issues, newIssue(KindMissingGitUsername, m.Name, mid))
				case m.GitUsernameStatus == model.GitUsernameInvalid:
					issues = append(issues, newIssue(KindInvalidGitUsername, m.GitUsername, mid))
				}
			}
		}
		if active == 0 {
			issues = append(issues, newIssue(KindEmptyGroup, g.Name, g.ID))
		}

		repo := naming.ExpandRepoTemplate(opts.RepoNameTemplate, assignment.Name, g.Name)
		repoNames[repo] = append(repoNames[repo], g.ID)
	}

	for id, count := range seenGroupID {
		if count > 1 {
			issues = append(issues, newIssue(KindDuplicateGroupID, assignment.Name, id))
		}
	}
	for name, ids := range seenGroupName {
		if len(ids) > 1 {
			issues = append(issues, newIssue(KindDuplicateGroupName, name, ids...))
		}
	}
	for mid, names := range memberGroups {
		if len(names) > 1 {
			issues = append(issues, newIssue(KindMemberInMultipleGroups, strings.Join(names, ", "), mid))
		}
	}
	for repo, ids := range repoNames {
		if len(ids) > 1 {
			issues = append(issues, newIssue(KindDuplicateRepoName, repo, ids...))
		}
	}

	if assignment.Type == model.AssignmentClassWide {
		assigned := map[string]bool{}
		for _, g := range groups {
			for _, mid := range g.MemberIDs {
				assigned[mid] = true
			}
		}
		var unassigned []string
		for _, s := range r.Students {
			if s.Status == model.StatusActive && !assigned[s.ID] {
				unassigned = append(unassigned, s.ID)
			}
		}
		if len(unassigned) > 0 {
			issues = append(issues, newIssue(KindUnassignedStudents, assignment.Name, unassigned...))
		}
	}

	return issues
}
