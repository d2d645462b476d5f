package csvimport

import (
	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
)

// StudentImportSummary counts the outcome of applying a students CSV.
type StudentImportSummary struct {
	Added     int
	Updated   int
	Unchanged int
}

// ApplyStudents merges parsed students into the roster by normalized email.
// Existing students are updated in place; unknown emails become new active
// students. Students absent from the file are left untouched, a CSV may be
// partial.
func ApplyStudents(r *model.Roster, parsed []ParsedStudent, source string) StudentImportSummary {
	var summary StudentImportSummary
	for _, p := range parsed {
		m, _ := r.StudentByEmail(p.Email)
		if m == nil {
			r.Students = append(r.Students, model.Member{
				ID:                model.NewID(),
				Name:              p.Name,
				Email:             p.Email,
				StudentNumber:     p.StudentNumber,
				GitUsername:       p.GitUsername,
				GitUsernameStatus: model.GitUsernameUnknown,
				Status:            model.StatusActive,
				EnrollmentType:    model.EnrollStudent,
				Source:            source,
				Custom:            p.Custom,
			})
			summary.Added++
			continue
		}

		changed := false
		if m.Name != p.Name {
			m.Name = p.Name
			changed = true
		}
		if p.StudentNumber != "" && m.StudentNumber != p.StudentNumber {
			m.StudentNumber = p.StudentNumber
			changed = true
		}
		if p.GitUsername != "" && m.GitUsername != p.GitUsername {
			m.GitUsername = p.GitUsername
			m.GitUsernameStatus = model.GitUsernameUnknown
			changed = true
		}
		for k, v := range p.Custom {
			if m.Custom[k] != v {
				if m.Custom == nil {
					m.Custom = map[string]string{}
				}
				m.Custom[k] = v
				changed = true
			}
		}
		if changed {
			summary.Updated++
		} else {
			summary.Unchanged++
		}
	}
	return summary
}

// GroupEditApplyResult summarizes an applied group-edit file.
type GroupEditApplyResult struct {
	GroupsUpserted  int
	RemovedGroupIDs []string
}

// ApplyGroupEdit replaces the composition of an assignment's group set with
// the edited file. Round-trip groups are matched by ID, first-time groups by
// normalized name; groups of the set not present in the file are removed.
func ApplyGroupEdit(r *model.Roster, groupSetID string, edit GroupEditResult) (GroupEditApplyResult, error) {
	gs := r.FindGroupSet(groupSetID)
	if gs == nil {
		return GroupEditApplyResult{}, apperr.NewNotFound("group set " + groupSetID + " not found")
	}

	inSet := make(map[string]bool, len(gs.GroupIDs))
	nameToID := make(map[string]string, len(gs.GroupIDs))
	for _, gid := range gs.GroupIDs {
		inSet[gid] = true
		if g := r.FindGroup(gid); g != nil {
			nameToID[model.NormalizeName(g.Name)] = gid
		}
	}

	// Round-trip IDs must reference groups of this set before anything is
	// mutated.
	if edit.Mode == ModeRoundTrip {
		for _, eg := range edit.Groups {
			if eg.GroupID != "" && !inSet[eg.GroupID] {
				return GroupEditApplyResult{}, apperr.NewNotFound(
					"group " + eg.GroupID + " is not part of this group set")
			}
		}
	}

	var result GroupEditApplyResult
	kept := make(map[string]bool, len(edit.Groups))
	newOrder := make([]string, 0, len(edit.Groups))
	for _, eg := range edit.Groups {
		id := eg.GroupID
		if id == "" {
			id = nameToID[model.NormalizeName(eg.Name)]
		}

		if id == "" {
			id = model.NewID()
			r.Groups = append(r.Groups, model.Group{
				ID:        id,
				Name:      eg.Name,
				MemberIDs: eg.MemberIDs,
				Origin:    model.OriginLocal,
			})
			result.GroupsUpserted++
		} else {
			g := r.FindGroup(id)
			if !sameGroup(g, eg) {
				g.Name = eg.Name
				g.MemberIDs = eg.MemberIDs
				result.GroupsUpserted++
			}
		}
		kept[id] = true
		newOrder = append(newOrder, id)
	}

	for _, gid := range gs.GroupIDs {
		if !kept[gid] {
			result.RemovedGroupIDs = append(result.RemovedGroupIDs, gid)
		}
	}
	dropGroups(r, result.RemovedGroupIDs)

	// dropGroups may have shifted the slice backing the set.
	gs = r.FindGroupSet(groupSetID)
	gs.GroupIDs = newOrder
	return result, nil
}

func sameGroup(g *model.Group, eg EditedGroup) bool {
	if g.Name != eg.Name || len(g.MemberIDs) != len(eg.MemberIDs) {
		return false
	}
	for i := range g.MemberIDs {
		if g.MemberIDs[i] != eg.MemberIDs[i] {
			return false
		}
	}
	return true
}
