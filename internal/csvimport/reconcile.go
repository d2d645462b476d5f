package csvimport

import (
	"time"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
)

// Source identifies the CSV file behind an import, recorded on the group
// set's connection so a later re-import can be traced back.
type Source struct {
	Filename string
	Path     string
}

// GroupSetImportResult summarizes a reconciled group-set import.
type GroupSetImportResult struct {
	GroupSetID      string
	GroupsUpserted  []model.Group
	RemovedGroupIDs []string
	MissingEmails   []string
	TotalMissing    int
}

// Reconcile merges a parsed group-set CSV into the roster. When groupSetID is
// empty a new set named setName is created; otherwise the existing set is
// diffed against the file: groups are matched by round-trip ID first, then by
// normalized name, and groups absent from the file are removed. Emails that
// resolve to no roster member are collected, not fatal.
func Reconcile(r *model.Roster, groupSetID, setName string, parsed []ParsedGroup, src Source) (GroupSetImportResult, error) {
	var result GroupSetImportResult

	var gs *model.GroupSet
	if groupSetID == "" {
		r.GroupSets = append(r.GroupSets, model.GroupSet{
			ID:        model.NewID(),
			Name:      setName,
			Selection: model.SelectAll(),
		})
		gs = &r.GroupSets[len(r.GroupSets)-1]
	} else {
		gs = r.FindGroupSet(groupSetID)
		if gs == nil {
			return result, apperr.NewNotFound("group set " + groupSetID + " not found")
		}
	}
	result.GroupSetID = gs.ID

	idByEmail := make(map[string]string, len(r.Students)+len(r.Staff))
	for _, seq := range [][]model.Member{r.Students, r.Staff} {
		for _, m := range seq {
			key := model.NormalizeEmail(m.Email)
			if _, ok := idByEmail[key]; !ok && key != "" {
				idByEmail[key] = m.ID
			}
		}
	}

	byID := map[string]bool{}
	byName := map[string]string{}
	for _, gid := range gs.GroupIDs {
		if g := r.FindGroup(gid); g != nil {
			byID[g.ID] = true
			byName[model.NormalizeName(g.Name)] = g.ID
		}
	}

	missingSeen := map[string]bool{}
	matched := map[string]bool{}
	newOrder := make([]string, 0, len(parsed))

	for _, pg := range parsed {
		memberIDs := make([]string, 0, len(pg.MemberEmails))
		for _, email := range pg.MemberEmails {
			id, ok := idByEmail[email]
			if !ok {
				if !missingSeen[email] {
					missingSeen[email] = true
					result.MissingEmails = append(result.MissingEmails, email)
				}
				continue
			}
			memberIDs = append(memberIDs, id)
		}

		var existing *model.Group
		if pg.GroupID != "" && byID[pg.GroupID] {
			existing = r.FindGroup(pg.GroupID)
		}
		if existing == nil {
			if id, ok := byName[model.NormalizeName(pg.Name)]; ok {
				existing = r.FindGroup(id)
			}
		}

		if existing != nil {
			matched[existing.ID] = true
			newOrder = append(newOrder, existing.ID)
			if existing.Name != pg.Name || !sameStrings(existing.MemberIDs, memberIDs) {
				existing.Name = pg.Name
				existing.MemberIDs = memberIDs
				result.GroupsUpserted = append(result.GroupsUpserted, *existing)
			}
			continue
		}

		id := pg.GroupID
		if id == "" {
			id = model.NewID()
		}
		group := model.Group{ID: id, Name: pg.Name, MemberIDs: memberIDs, Origin: model.OriginLocal}
		r.Groups = append(r.Groups, group)
		newOrder = append(newOrder, id)
		result.GroupsUpserted = append(result.GroupsUpserted, group)
	}

	gs = r.FindGroupSet(result.GroupSetID)
	for _, gid := range gs.GroupIDs {
		if !matched[gid] && !contains(newOrder, gid) {
			result.RemovedGroupIDs = append(result.RemovedGroupIDs, gid)
		}
	}
	gs.GroupIDs = newOrder
	if len(result.RemovedGroupIDs) > 0 {
		dropGroups(r, result.RemovedGroupIDs)
	}

	gs = r.FindGroupSet(result.GroupSetID)
	gs.Connection = &model.GroupSetConnection{
		Kind:           model.ConnectionImport,
		SourceFilename: src.Filename,
		SourcePath:     src.Path,
		LastUpdated:    time.Now().UTC(),
	}

	result.TotalMissing = len(result.MissingEmails)
	return result, nil
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

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
