package export

import (
	"encoding/csv"
	"io"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/resolve"
)

// WriteGroupSetCSV emits one row per membership in set order. A group with
// no members still emits one marker row with blank name/email so the group
// survives a re-import.
func WriteGroupSetCSV(w io.Writer, r *model.Roster, groupSetID string) error {
	gs := r.FindGroupSet(groupSetID)
	if gs == nil {
		return apperr.NewNotFound("group set " + groupSetID + " not found")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"group_set_id", "group_id", "group_name", "name", "email"}); err != nil {
		return apperr.NewFile("writing group-set CSV", err)
	}
	for _, gid := range gs.GroupIDs {
		g := r.FindGroup(gid)
		if g == nil {
			continue
		}
		if len(g.MemberIDs) == 0 {
			if err := cw.Write([]string{gs.ID, g.ID, g.Name, "", ""}); err != nil {
				return apperr.NewFile("writing group-set CSV", err)
			}
			continue
		}
		for _, mid := range g.MemberIDs {
			m := r.FindMember(mid)
			if m == nil {
				continue
			}
			if err := cw.Write([]string{gs.ID, g.ID, g.Name, m.Name, m.Email}); err != nil {
				return apperr.NewFile("writing group-set CSV", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.NewFile("writing group-set CSV", err)
	}
	return nil
}

// WriteGroupEditCSV emits the editable per-assignment layout that
// ParseGroupEdit reads back: resolved groups with round-trip group IDs, one
// membership per row.
func WriteGroupEditCSV(w io.Writer, r *model.Roster, assignmentID string) error {
	assignment := r.FindAssignment(assignmentID)
	if assignment == nil {
		return apperr.NewNotFound("assignment " + assignmentID + " not found")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"group_id", "group_name", "student_id", "student_email"}); err != nil {
		return apperr.NewFile("writing group-edit CSV", err)
	}
	for _, g := range resolve.Groups(r, assignment) {
		for _, mid := range r.ActiveGroupMemberIDs(&g) {
			m := r.FindMember(mid)
			if err := cw.Write([]string{g.ID, g.Name, m.ID, m.Email}); err != nil {
				return apperr.NewFile("writing group-edit CSV", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.NewFile("writing group-edit CSV", err)
	}
	return nil
}
