// Package systemsets maintains the two system group sets: one single-member
// group per active student ("individual students") and a single "Staff"
// group holding all active staff. Ensure is idempotent and safe to call
// after any roster mutation; it also strips stale memberships from every
// non-system group.
package systemsets

import (
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/naming"
)

// StaffGroupName is the fixed name of the staff system group.
const StaffGroupName = "Staff"

// Result reports what Ensure changed. A second call on the same roster
// returns an empty result.
type Result struct {
	GroupsUpserted  []model.Group
	DeletedGroupIDs []string
}

// Ensure reconciles both system sets and cleans stale memberships.
func Ensure(r *model.Roster) Result {
	var res Result

	ensureIndividualStudents(r, &res)
	ensureStaff(r, &res)
	cleanupStaleMemberships(r)

	return res
}

func findOrCreateSystemSet(r *model.Roster, t model.SystemSetType, name string) *model.GroupSet {
	if gs := r.FindSystemSet(t); gs != nil {
		return gs
	}
	r.GroupSets = append(r.GroupSets, model.GroupSet{
		ID:   model.NewID(),
		Name: name,
		Connection: &model.GroupSetConnection{
			Kind:       model.ConnectionSystem,
			SystemType: t,
		},
		Selection: model.SelectAll(),
	})
	return &r.GroupSets[len(r.GroupSets)-1]
}

// takenGroupNames returns the name collision set across all groups.
func takenGroupNames(r *model.Roster) map[string]bool {
	taken := make(map[string]bool, len(r.Groups))
	for _, g := range r.Groups {
		taken[g.Name] = true
	}
	return taken
}

func ensureIndividualStudents(r *model.Roster, res *Result) {
	gs := findOrCreateSystemSet(r, model.SystemSetIndividualStudents, "Individual Students")

	inSet := make(map[string]bool, len(gs.GroupIDs))
	for _, gid := range gs.GroupIDs {
		inSet[gid] = true
	}

	// Index existing system groups of this set by their single member. IDs,
	// not pointers: appends below may reallocate r.Groups.
	byMember := map[string]string{}
	for i := range r.Groups {
		g := &r.Groups[i]
		if g.Origin == model.OriginSystem && inSet[g.ID] && len(g.MemberIDs) == 1 {
			byMember[g.MemberIDs[0]] = g.ID
		}
	}

	taken := takenGroupNames(r)

	for _, s := range r.Students {
		if s.Status != model.StatusActive {
			continue
		}
		member := naming.MemberName{ID: s.ID, Name: s.Name}

		if gid, ok := byMember[s.ID]; ok {
			g := r.FindGroup(gid)
			// Recompute the expected name; the group must not collide with
			// itself.
			delete(taken, g.Name)
			expected := naming.ResolveCollision(
				naming.GenerateGroupName([]naming.MemberName{member}), g.ID, false, taken)
			taken[expected] = true
			if g.Name != expected {
				g.Name = expected
				res.GroupsUpserted = append(res.GroupsUpserted, *g)
			}
			continue
		}

		id := model.NewID()
		name := naming.ResolveCollision(
			naming.GenerateGroupName([]naming.MemberName{member}), id, false, taken)
		taken[name] = true
		group := model.Group{
			ID:        id,
			Name:      name,
			MemberIDs: []string{s.ID},
			Origin:    model.OriginSystem,
		}
		r.Groups = append(r.Groups, group)
		gs = r.FindSystemSet(model.SystemSetIndividualStudents)
		gs.GroupIDs = append(gs.GroupIDs, id)
		res.GroupsUpserted = append(res.GroupsUpserted, group)
	}

	// Drop groups whose single member is no longer an active student.
	gs = r.FindSystemSet(model.SystemSetIndividualStudents)
	var keep []string
	var deleted []string
	for _, gid := range gs.GroupIDs {
		g := r.FindGroup(gid)
		if g == nil {
			continue
		}
		stale := len(g.MemberIDs) != 1
		if !stale {
			s := r.FindStudent(g.MemberIDs[0])
			stale = s == nil || s.Status != model.StatusActive
		}
		if stale {
			deleted = append(deleted, gid)
		} else {
			keep = append(keep, gid)
		}
	}
	if len(deleted) > 0 {
		gs.GroupIDs = keep
		removeGroups(r, deleted)
		res.DeletedGroupIDs = append(res.DeletedGroupIDs, deleted...)
	}
}

// removeGroups deletes groups from the roster's groups array and from every
// group set still referencing them.
func removeGroups(r *model.Roster, ids []string) {
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

func ensureStaff(r *model.Roster, res *Result) {
	gs := findOrCreateSystemSet(r, model.SystemSetStaff, "Staff")

	var staffGroup *model.Group
	for _, gid := range gs.GroupIDs {
		if g := r.FindGroup(gid); g != nil && g.Name == StaffGroupName {
			staffGroup = g
			break
		}
	}

	active := make([]string, 0, len(r.Staff))
	for _, m := range r.Staff {
		if m.Status == model.StatusActive {
			active = append(active, m.ID)
		}
	}

	if staffGroup == nil {
		group := model.Group{
			ID:        model.NewID(),
			Name:      StaffGroupName,
			MemberIDs: active,
			Origin:    model.OriginSystem,
		}
		r.Groups = append(r.Groups, group)
		gs = r.FindSystemSet(model.SystemSetStaff)
		gs.GroupIDs = append(gs.GroupIDs, group.ID)
		res.GroupsUpserted = append(res.GroupsUpserted, group)
		return
	}

	if !equalStrings(staffGroup.MemberIDs, active) {
		staffGroup.MemberIDs = active
		res.GroupsUpserted = append(res.GroupsUpserted, *staffGroup)
	}
}

// cleanupStaleMemberships drops members that are missing or inactive from
// every local and lms group.
func cleanupStaleMemberships(r *model.Roster) {
	for i := range r.Groups {
		g := &r.Groups[i]
		if g.Origin == model.OriginSystem {
			continue
		}
		kept := g.MemberIDs[:0]
		for _, mid := range g.MemberIDs {
			if m := r.FindMember(mid); m != nil && m.Status == model.StatusActive {
				kept = append(kept, mid)
			}
		}
		g.MemberIDs = kept
	}
}

func equalStrings(a, b []string) bool {
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
