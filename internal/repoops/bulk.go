package repoops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edulab/reporover/internal/gitcmd"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/naming"
	"github.com/edulab/reporover/internal/platform"
)

// batch runs one operation per valid group, emitting the progress protocol:
// one Started, monotonic Progress, one Completed carrying the result.
func batch(assignmentName string, valid []target, empty []model.Group, progress ProgressFunc,
	op func(t target) (skip *SkippedGroup, err error)) Result {

	var result Result
	for _, g := range empty {
		result.Skipped = append(result.Skipped, SkippedGroup{
			GroupName: g.Name,
			Reason:    SkipEmptyGroup,
		})
	}

	total := len(valid)
	if total < 1 {
		total = 1
	}
	progress.emit(Event{Kind: EventStarted, Total: total, Message: assignmentName})

	for i, t := range valid {
		progress.emit(Event{
			Kind:    EventProgress,
			Current: i + 1,
			Total:   total,
			Message: t.repoName,
		})
		skip, err := op(t)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, OpError{RepoName: t.repoName, Message: err.Error()})
		case skip != nil:
			result.Skipped = append(result.Skipped, *skip)
		default:
			result.Succeeded++
		}
	}

	progress.emit(Event{Kind: EventCompleted, Total: total, Result: &result})
	return result
}

// CreateRepos creates one private repo per group. Groups whose repo already
// exists are skipped, not failed.
func CreateRepos(ctx context.Context, p platform.Platform, r *model.Roster, assignmentID string, cfg Config, progress ProgressFunc) (Result, error) {
	assignment, valid, empty, err := plan(r, assignmentID, cfg)
	if err != nil {
		return Result{}, err
	}

	result := batch(assignment.Name, valid, empty, progress, func(t target) (*SkippedGroup, error) {
		_, created, err := p.CreateRepo(ctx, t.repoName, "", true, nil)
		if err != nil {
			return nil, err
		}
		if !created {
			return &SkippedGroup{
				GroupName: t.group.Name,
				RepoName:  t.repoName,
				Reason:    SkipRepoExists,
				Context:   t.repoName,
			}, nil
		}
		return nil, nil
	})
	return result, nil
}

// clonePath computes where a repo lands for the configured layout.
func clonePath(cfg Config, assignmentName string, t target) string {
	switch cfg.Layout {
	case LayoutByTeam:
		return filepath.Join(cfg.TargetDir, naming.Slugify(t.group.Name), t.repoName)
	case LayoutByTask:
		return filepath.Join(cfg.TargetDir, naming.Slugify(assignmentName), t.repoName)
	default:
		return filepath.Join(cfg.TargetDir, t.repoName)
	}
}

// CloneRepos clones every group repo into the target directory. Missing
// repos and already-present destinations are skipped.
func CloneRepos(ctx context.Context, p platform.Platform, r *model.Roster, assignmentID string, cfg Config, progress ProgressFunc) (Result, error) {
	assignment, valid, empty, err := plan(r, assignmentID, cfg)
	if err != nil {
		return Result{}, err
	}

	result := batch(assignment.Name, valid, empty, progress, func(t target) (*SkippedGroup, error) {
		repo, err := p.GetRepo(ctx, t.repoName, nil)
		if err != nil {
			if isNotFound(err) {
				return &SkippedGroup{
					GroupName: t.group.Name,
					RepoName:  t.repoName,
					Reason:    SkipRepoNotFound,
				}, nil
			}
			return nil, err
		}

		url, err := p.InsertAuth(repo.CloneURL)
		if err != nil {
			return nil, err
		}
		dest := clonePath(cfg, assignment.Name, t)
		if _, statErr := os.Stat(dest); statErr == nil {
			return &SkippedGroup{
				GroupName: t.group.Name,
				RepoName:  t.repoName,
				Reason:    SkipRepoExists,
				Context:   dest,
			}, nil
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
		}
		return nil, gitcmd.Clone(ctx, url, dest)
	})
	return result, nil
}

// DeleteRepos deletes every group repo. Missing repos are skipped.
func DeleteRepos(ctx context.Context, p platform.Platform, r *model.Roster, assignmentID string, cfg Config, progress ProgressFunc) (Result, error) {
	assignment, valid, empty, err := plan(r, assignmentID, cfg)
	if err != nil {
		return Result{}, err
	}

	result := batch(assignment.Name, valid, empty, progress, func(t target) (*SkippedGroup, error) {
		repo, err := p.GetRepo(ctx, t.repoName, nil)
		if err != nil {
			if isNotFound(err) {
				return &SkippedGroup{
					GroupName: t.group.Name,
					RepoName:  t.repoName,
					Reason:    SkipRepoNotFound,
				}, nil
			}
			return nil, err
		}
		return nil, p.DeleteRepo(ctx, repo)
	})
	return result, nil
}
