// Package repoops drives the bulk repository lifecycle: preflight checks
// and create/clone/delete batches over the groups an assignment resolves
// to. Per-group failures never abort a batch; they are collected and the
// caller decides what the aggregate outcome means.
package repoops

import (
	"context"
	"errors"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/naming"
	"github.com/edulab/reporover/internal/platform"
	"github.com/edulab/reporover/internal/resolve"
)

// Layout selects where clones land below the target directory.
type Layout string

const (
	LayoutFlat   Layout = "flat"    // target/<repo>
	LayoutByTeam Layout = "by_team" // target/<group>/<repo>
	LayoutByTask Layout = "by_task" // target/<assignment>/<repo>
)

// Config parameterizes one bulk operation.
type Config struct {
	RepoNameTemplate string
	TargetDir        string
	Layout           Layout
	Private          bool
}

// CollisionKind says why a group's repo fails preflight.
type CollisionKind string

const (
	CollisionAlreadyExists CollisionKind = "already_exists"
	CollisionNotFound      CollisionKind = "not_found"
)

// Collision is one group whose repo is in the wrong state for the pending
// operation.
type Collision struct {
	GroupID   string
	GroupName string
	RepoName  string
	Kind      CollisionKind
}

// PreflightResult reports what a bulk operation would run into.
type PreflightResult struct {
	Collisions []Collision
	ReadyCount int
}

// SkipReason says why a group was skipped inside a batch.
type SkipReason string

const (
	SkipEmptyGroup   SkipReason = "empty_group"
	SkipRepoExists   SkipReason = "repo_exists"
	SkipRepoNotFound SkipReason = "repo_not_found"
)

// SkippedGroup is one group a batch did not operate on.
type SkippedGroup struct {
	GroupName string
	RepoName  string
	Reason    SkipReason
	Context   string
}

// OpError is one per-group failure inside a batch.
type OpError struct {
	RepoName string
	Message  string
}

// Result aggregates a finished batch.
type Result struct {
	Succeeded int
	Failed    int
	Skipped   []SkippedGroup
	Errors    []OpError
}

// AllOK reports full or skip-only success.
func (r Result) AllOK() bool { return r.Failed == 0 }

// EventKind tags a progress event.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
)

// Event is one progress notification. Completed events carry the result.
type Event struct {
	Kind    EventKind
	Current int
	Total   int
	Message string
	Result  *Result
}

// ProgressFunc observes batch progress. May be nil.
type ProgressFunc func(Event)

func (f ProgressFunc) emit(e Event) {
	if f != nil {
		f(e)
	}
}

// target is one group with its computed repo name.
type target struct {
	group    model.Group
	repoName string
}

// plan resolves the assignment and splits its groups into operable targets
// and empty groups.
func plan(r *model.Roster, assignmentID string, cfg Config) (assignment *model.Assignment, valid []target, empty []model.Group, err error) {
	assignment = r.FindAssignment(assignmentID)
	if assignment == nil {
		return nil, nil, nil, apperr.NewNotFound("assignment " + assignmentID + " not found")
	}

	template := cfg.RepoNameTemplate
	if template == "" {
		template = naming.DefaultRepoNameTemplate
	}

	for _, g := range resolve.Groups(r, assignment) {
		if len(r.ActiveGroupMemberIDs(&g)) == 0 {
			empty = append(empty, g)
			continue
		}
		valid = append(valid, target{
			group:    g,
			repoName: naming.ExpandRepoTemplate(template, assignment.Name, g.Name),
		})
	}
	return assignment, valid, empty, nil
}

func preflight(ctx context.Context, p platform.Platform, r *model.Roster, assignmentID string, cfg Config, collideOnExists bool) (PreflightResult, error) {
	_, valid, _, err := plan(r, assignmentID, cfg)
	if err != nil {
		return PreflightResult{}, err
	}

	var result PreflightResult
	for _, t := range valid {
		_, err := p.GetRepo(ctx, t.repoName, nil)
		exists := err == nil
		if err != nil && !isNotFound(err) {
			return PreflightResult{}, err
		}
		if exists && collideOnExists {
			result.Collisions = append(result.Collisions, Collision{
				GroupID: t.group.ID, GroupName: t.group.Name, RepoName: t.repoName,
				Kind: CollisionAlreadyExists,
			})
		}
		if !exists && !collideOnExists {
			result.Collisions = append(result.Collisions, Collision{
				GroupID: t.group.ID, GroupName: t.group.Name, RepoName: t.repoName,
				Kind: CollisionNotFound,
			})
		}
	}
	result.ReadyCount = len(valid) - len(result.Collisions)
	return result, nil
}

// PreflightCreate flags groups whose repo already exists.
func PreflightCreate(ctx context.Context, p platform.Platform, r *model.Roster, assignmentID string, cfg Config) (PreflightResult, error) {
	return preflight(ctx, p, r, assignmentID, cfg, true)
}

// PreflightClone flags groups whose repo does not exist.
func PreflightClone(ctx context.Context, p platform.Platform, r *model.Roster, assignmentID string, cfg Config) (PreflightResult, error) {
	return preflight(ctx, p, r, assignmentID, cfg, false)
}

// PreflightDelete flags groups whose repo does not exist.
func PreflightDelete(ctx context.Context, p platform.Platform, r *model.Roster, assignmentID string, cfg Config) (PreflightResult, error) {
	return preflight(ctx, p, r, assignmentID, cfg, false)
}

func isNotFound(err error) bool {
	var nf apperr.NotFound
	return errors.As(err, &nf)
}
