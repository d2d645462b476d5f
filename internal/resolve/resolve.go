// Package resolve materializes the group list an assignment operates on:
// the referenced group set's groups, in set order, narrowed by the selection
// pattern and trimmed by explicit exclusions.
package resolve

import (
	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/glob"
	"github.com/edulab/reporover/internal/model"
)

// Groups resolves the assignment's participating groups. An invalid pattern
// matches the empty set; resolution itself never fails on pattern errors.
func Groups(r *model.Roster, assignment *model.Assignment) []model.Group {
	gs := r.FindGroupSet(assignment.GroupSetID)
	if gs == nil {
		return nil
	}
	groups, _ := applySelection(r, gs, assignment.Selection)
	return groups
}

func applySelection(r *model.Roster, gs *model.GroupSet, sel model.GroupSelection) ([]model.Group, error) {
	var pattern *glob.Pattern
	if sel.Kind == model.SelectionPattern {
		var err error
		pattern, err = glob.Compile(sel.Pattern)
		if err != nil {
			return nil, err
		}
	}

	excluded := make(map[string]bool, len(sel.ExcludedGroupIDs))
	for _, id := range sel.ExcludedGroupIDs {
		excluded[id] = true
	}

	var out []model.Group
	for _, gid := range gs.GroupIDs {
		g := r.FindGroup(gid)
		if g == nil {
			continue
		}
		if pattern != nil && !pattern.Match(g.Name) {
			continue
		}
		if excluded[g.ID] {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

// PreviewResult reports what a selection would resolve to, for UI display.
type PreviewResult struct {
	Valid             bool
	Error             string
	GroupIDs          []string
	EmptyGroupIDs     []string
	GroupMemberCounts map[string]int
	TotalGroups       int
	MatchedGroups     int
}

// Preview resolves a selection against a group set and reports counts and
// empty groups. Unlike Groups, an invalid pattern is reported as an error
// instead of silently matching nothing.
func Preview(r *model.Roster, groupSetID string, sel model.GroupSelection) PreviewResult {
	gs := r.FindGroupSet(groupSetID)
	if gs == nil {
		return PreviewResult{Error: "group set not found"}
	}

	groups, err := applySelection(r, gs, sel)
	if err != nil {
		return PreviewResult{Error: err.Error(), TotalGroups: len(gs.GroupIDs)}
	}

	result := PreviewResult{
		Valid:             true,
		GroupMemberCounts: make(map[string]int, len(groups)),
		TotalGroups:       len(gs.GroupIDs),
		MatchedGroups:     len(groups),
	}
	for _, g := range groups {
		result.GroupIDs = append(result.GroupIDs, g.ID)
		active := r.ActiveGroupMemberIDs(&g)
		result.GroupMemberCounts[g.ID] = len(active)
		if len(active) == 0 {
			result.EmptyGroupIDs = append(result.EmptyGroupIDs, g.ID)
		}
	}
	return result
}

// FilterByPattern matches a pattern against a list of names, returning the
// indexes that match. Used for live filtering in front-ends.
func FilterByPattern(pattern string, names []string) ([]int, error) {
	p, err := glob.Compile(pattern)
	if err != nil {
		return nil, apperr.NewValidation("invalid pattern", err.Error())
	}
	var matched []int
	for i, name := range names {
		if p.Match(name) {
			matched = append(matched, i)
		}
	}
	return matched, nil
}
