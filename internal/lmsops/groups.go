package lmsops

import (
	"context"
	"fmt"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/glob"
	"github.com/edulab/reporover/internal/lms"
	"github.com/edulab/reporover/internal/model"
)

// GroupFilterKind selects which LMS groups to import.
type GroupFilterKind string

const (
	FilterAll      GroupFilterKind = "all"
	FilterSelected GroupFilterKind = "selected"
	FilterPattern  GroupFilterKind = "pattern"
)

// GroupFilter narrows the groups of an LMS category before import.
type GroupFilter struct {
	Kind     GroupFilterKind
	Selected []string
	Pattern  string
}

// GroupImportConfig drives one group import.
type GroupImportConfig struct {
	CategoryID string
	SetName    string
	Filter     GroupFilter
}

// GroupImportResult summarizes an applied group import.
type GroupImportResult struct {
	GroupSetID     string
	GroupsImported int
	MembersLinked  int
}

// ImportGroups fetches an LMS group category and replaces the linked group
// set wholesale. Every LMS member must resolve to a roster member through
// its lms_user_id; an unresolved member fails the whole import, because
// silently dropping members would corrupt group composition.
func ImportGroups(ctx context.Context, client lms.Client, courseID string, r *model.Roster, cfg GroupImportConfig, progress lms.ProgressFunc) (GroupImportResult, error) {
	var result GroupImportResult

	lmsGroups, err := client.GetGroupsForCategory(ctx, courseID, cfg.CategoryID)
	if err != nil {
		return result, err
	}

	filtered, err := applyFilter(lmsGroups, cfg.Filter)
	if err != nil {
		return result, err
	}

	if dups := duplicateNames(filtered); len(dups) > 0 {
		return result, apperr.NewValidation("duplicate group names in lms category", dups...)
	}

	byLmsID := map[string]string{}
	for _, seq := range [][]model.Member{r.Students, r.Staff} {
		for _, m := range seq {
			if m.LmsUserID != "" {
				byLmsID[m.LmsUserID] = m.ID
			}
		}
	}

	type incoming struct {
		lmsGroup  lms.Group
		memberIDs []string
	}
	var (
		groups     []incoming
		unresolved []string
	)
	for i, g := range filtered {
		if progress != nil {
			progress(lms.ProgressEvent{
				Kind:      lms.ProgressFetchingGroupMembers,
				Current:   i + 1,
				Total:     len(filtered),
				GroupName: g.Name,
			})
		}
		memberships, err := client.GetGroupMembers(ctx, g)
		if err != nil {
			return result, err
		}
		var memberIDs []string
		for _, m := range memberships {
			id, ok := byLmsID[m.UserID]
			if !ok {
				unresolved = append(unresolved, fmt.Sprintf("lms user %s in group %q", m.UserID, g.Name))
				continue
			}
			memberIDs = append(memberIDs, id)
			result.MembersLinked++
		}
		groups = append(groups, incoming{lmsGroup: g, memberIDs: memberIDs})
	}
	if len(unresolved) > 0 {
		return GroupImportResult{}, apperr.NewValidation("unresolved lms members", unresolved...)
	}

	gs := findLmsSet(r, cfg.CategoryID)
	if gs == nil {
		r.GroupSets = append(r.GroupSets, model.GroupSet{
			ID:        model.NewID(),
			Name:      cfg.SetName,
			Selection: model.SelectAll(),
		})
		gs = &r.GroupSets[len(r.GroupSets)-1]
	}
	setID := gs.ID

	// Wholesale replacement: the previous lms groups of this set go away.
	old := append([]string(nil), gs.GroupIDs...)
	dropGroups(r, old)

	gs = r.FindGroupSet(setID)
	gs.GroupIDs = nil
	if cfg.SetName != "" {
		gs.Name = cfg.SetName
	}
	gs.Connection = &model.GroupSetConnection{
		Kind:          model.ConnectionLms,
		LmsGroupSetID: cfg.CategoryID,
	}
	for _, in := range groups {
		group := model.Group{
			ID:         model.NewID(),
			Name:       in.lmsGroup.Name,
			MemberIDs:  in.memberIDs,
			Origin:     model.OriginLms,
			LmsGroupID: in.lmsGroup.ID,
		}
		r.Groups = append(r.Groups, group)
		gs = r.FindGroupSet(setID)
		gs.GroupIDs = append(gs.GroupIDs, group.ID)
	}

	result.GroupSetID = setID
	result.GroupsImported = len(groups)
	return result, nil
}

func findLmsSet(r *model.Roster, categoryID string) *model.GroupSet {
	for i := range r.GroupSets {
		c := r.GroupSets[i].Connection
		if c != nil && c.Kind == model.ConnectionLms && c.LmsGroupSetID == categoryID {
			return &r.GroupSets[i]
		}
	}
	return nil
}

func applyFilter(groups []lms.Group, f GroupFilter) ([]lms.Group, error) {
	switch f.Kind {
	case FilterAll, "":
		return groups, nil
	case FilterSelected:
		keep := make(map[string]bool, len(f.Selected))
		for _, id := range f.Selected {
			keep[id] = true
		}
		var out []lms.Group
		for _, g := range groups {
			if keep[g.ID] {
				out = append(out, g)
			}
		}
		return out, nil
	case FilterPattern:
		p, err := glob.Compile(f.Pattern)
		if err != nil {
			return nil, apperr.NewValidation("invalid group filter pattern", err.Error())
		}
		var out []lms.Group
		for _, g := range groups {
			if p.Match(g.Name) {
				out = append(out, g)
			}
		}
		return out, nil
	default:
		return nil, apperr.NewValidation("unknown group filter kind", string(f.Kind))
	}
}

func duplicateNames(groups []lms.Group) []string {
	seen := map[string]string{}
	var dups []string
	for _, g := range groups {
		norm := model.NormalizeName(g.Name)
		if first, ok := seen[norm]; ok {
			dups = append(dups, fmt.Sprintf("%q and %q", first, g.Name))
			continue
		}
		seen[norm] = g.Name
	}
	return dups
}

// dropGroups removes groups from the roster and from every set referencing
// them.
func dropGroups(r *model.Roster, ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := r.Groups[:0]
	for _, g := range r.Groups {
		if !drop[g.ID] {
			kept = append(kept, g)
		}
	}
	r.Groups = kept
	for i := range r.GroupSets {
		gs := &r.GroupSets[i]
		keptIDs := gs.GroupIDs[:0]
		for _, gid := range gs.GroupIDs {
			if !drop[gid] {
				keptIDs = append(keptIDs, gid)
			}
		}
		gs.GroupIDs = keptIDs
	}
}
