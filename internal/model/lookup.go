package model

// FindStudent returns the student with the given ID, or nil.
func (r *Roster) FindStudent(id string) *Member {
	for i := range r.Students {
		if r.Students[i].ID == id {
			return &r.Students[i]
		}
	}
	return nil
}

// FindStaff returns the staff member with the given ID, or nil.
func (r *Roster) FindStaff(id string) *Member {
	for i := range r.Staff {
		if r.Staff[i].ID == id {
			return &r.Staff[i]
		}
	}
	return nil
}

// FindMember returns the member (student or staff) with the given ID, or nil.
func (r *Roster) FindMember(id string) *Member {
	if m := r.FindStudent(id); m != nil {
		return m
	}
	return r.FindStaff(id)
}

// FindGroup returns the group with the given ID, or nil.
func (r *Roster) FindGroup(id string) *Group {
	for i := range r.Groups {
		if r.Groups[i].ID == id {
			return &r.Groups[i]
		}
	}
	return nil
}

// FindGroupSet returns the group set with the given ID, or nil.
func (r *Roster) FindGroupSet(id string) *GroupSet {
	for i := range r.GroupSets {
		if r.GroupSets[i].ID == id {
			return &r.GroupSets[i]
		}
	}
	return nil
}

// FindAssignment returns the assignment with the given ID, or nil.
func (r *Roster) FindAssignment(id string) *Assignment {
	for i := range r.Assignments {
		if r.Assignments[i].ID == id {
			return &r.Assignments[i]
		}
	}
	return nil
}

// FindSystemSet returns the system group set of the given type, or nil.
func (r *Roster) FindSystemSet(t SystemSetType) *GroupSet {
	for i := range r.GroupSets {
		if r.GroupSets[i].Connection.IsSystem(t) {
			return &r.GroupSets[i]
		}
	}
	return nil
}

// ActiveGroupMemberIDs returns the group's member IDs that resolve to an
// active roster member, in group order.
func (r *Roster) ActiveGroupMemberIDs(g *Group) []string {
	out := make([]string, 0, len(g.MemberIDs))
	for _, id := range g.MemberIDs {
		if m := r.FindMember(id); m != nil && m.Status == StatusActive {
			out = append(out, id)
		}
	}
	return out
}

// StudentByEmail returns the student whose normalized email matches, or nil.
// When more than one student shares the email, the count is returned so
// callers can reject ambiguous matches.
func (r *Roster) StudentByEmail(email string) (*Member, int) {
	norm := NormalizeEmail(email)
	var found *Member
	count := 0
	for i := range r.Students {
		if NormalizeEmail(r.Students[i].Email) == norm {
			if found == nil {
				found = &r.Students[i]
			}
			count++
		}
	}
	return found, count
}
