package csvimport

import (
	"fmt"
	"io"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
)

// GroupEditMode distinguishes a re-import of a previously exported file from
// a hand-written first import.
type GroupEditMode string

const (
	// ModeRoundTrip is detected when any row carries a group_id.
	ModeRoundTrip GroupEditMode = "round_trip"
	// ModeFirstTime is a file without group IDs; groups are matched by name.
	ModeFirstTime GroupEditMode = "first_time"
)

// EditedGroup is one assembled group from a group-edit CSV. GroupID is empty
// in first-time mode. MemberIDs are resolved roster member IDs.
type EditedGroup struct {
	GroupID   string
	Name      string
	MemberIDs []string
}

// GroupEditResult is the outcome of parsing a group-edit CSV.
type GroupEditResult struct {
	Mode   GroupEditMode
	Groups []EditedGroup
}

// ParseGroupEdit reads an edited per-assignment group export and resolves
// every row to a roster member. Rows identify a member by student_id,
// student_email, or both; when both are present they must agree. All row
// errors are accumulated and reported together.
func ParseGroupEdit(r io.Reader, roster *model.Roster) (GroupEditResult, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return GroupEditResult{}, err
	}

	nameCol := h.col("group_name")
	idCol := h.col("student_id")
	emailCol := h.col("student_email")
	groupIDCol := h.col("group_id")

	if nameCol < 0 || (idCol < 0 && emailCol < 0) {
		var missing []string
		if nameCol < 0 {
			missing = append(missing, "group_name")
		}
		if idCol < 0 && emailCol < 0 {
			missing = append(missing, "student_id or student_email")
		}
		return GroupEditResult{}, apperr.NewValidation("missing required columns", missing...)
	}

	type rawRow struct {
		num       int
		groupID   string
		groupName string
		memberID  string
	}
	var (
		rows    []rawRow
		details []string
		mode    = ModeFirstTime
	)
	for rowNum := 2; ; rowNum++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return GroupEditResult{}, apperr.NewValidation("malformed CSV row", "line "+joinRows([]int{rowNum}))
		}
		if emptyRow(row) {
			continue
		}

		groupName := cell(row, nameCol)
		studentID := cell(row, idCol)
		studentEmail := cell(row, emailCol)
		groupID := cell(row, groupIDCol)

		if groupName == "" {
			details = append(details, fmt.Sprintf("row %d: missing group_name", rowNum))
			continue
		}
		if groupID != "" {
			mode = ModeRoundTrip
			if _, err := model.DecodeBase58UUID(groupID); err != nil {
				details = append(details, fmt.Sprintf("row %d: invalid group_id %q", rowNum, groupID))
				continue
			}
		}

		memberID, rowErr := resolveEditMember(roster, studentID, studentEmail)
		if rowErr != "" {
			details = append(details, fmt.Sprintf("row %d: %s", rowNum, rowErr))
			continue
		}
		rows = append(rows, rawRow{num: rowNum, groupID: groupID, groupName: groupName, memberID: memberID})
	}

	// Assemble groups in first-appearance order. Round-trip groups are keyed
	// by ID, first-time groups by normalized name.
	var (
		result    = GroupEditResult{Mode: mode}
		index     = map[string]int{}
		memberIn  = map[string]string{} // member ID -> group key
		nameKeyOf = map[string]string{} // normalized name -> first raw spelling
	)
	for _, row := range rows {
		key := row.groupID
		if key == "" {
			key = "name:" + model.NormalizeName(row.groupName)
		}

		if mode == ModeFirstTime {
			norm := model.NormalizeName(row.groupName)
			if first, ok := nameKeyOf[norm]; ok && first != row.groupName {
				details = append(details, fmt.Sprintf(
					"group names %q and %q normalize to the same group", first, row.groupName))
				continue
			}
			nameKeyOf[norm] = row.groupName
		}

		if prev, ok := memberIn[row.memberID]; ok {
			if prev != key {
				details = append(details, fmt.Sprintf(
					"row %d: student appears in more than one group", row.num))
			}
			continue
		}
		memberIn[row.memberID] = key

		idx, ok := index[key]
		if !ok {
			idx = len(result.Groups)
			index[key] = idx
			result.Groups = append(result.Groups, EditedGroup{GroupID: row.groupID, Name: row.groupName})
		}
		result.Groups[idx].MemberIDs = append(result.Groups[idx].MemberIDs, row.memberID)
	}

	// Two round-trip groups with distinct IDs may still collide by name.
	seenNames := map[string]string{}
	for _, g := range result.Groups {
		norm := model.NormalizeName(g.Name)
		if other, ok := seenNames[norm]; ok {
			details = append(details, fmt.Sprintf(
				"duplicate group name: %q and %q", other, g.Name))
			continue
		}
		seenNames[norm] = g.Name
	}

	if len(details) > 0 {
		return GroupEditResult{}, apperr.NewValidation("invalid group-edit CSV", details...)
	}
	return result, nil
}

// resolveEditMember resolves one row's member reference, returning the member
// ID or a row-scoped error message.
func resolveEditMember(roster *model.Roster, studentID, studentEmail string) (string, string) {
	if studentID != "" {
		m := roster.FindMember(studentID)
		if m == nil {
			return "", fmt.Sprintf("student_id %s not found", studentID)
		}
		if studentEmail != "" && model.NormalizeEmail(studentEmail) != model.NormalizeEmail(m.Email) {
			return "", fmt.Sprintf("student_email %s does not match student_id %s", studentEmail, studentID)
		}
		return m.ID, ""
	}
	if studentEmail == "" {
		return "", "missing student_id and student_email"
	}

	norm := model.NormalizeEmail(studentEmail)
	var found *model.Member
	count := 0
	for _, seq := range [][]model.Member{roster.Students, roster.Staff} {
		for i := range seq {
			if model.NormalizeEmail(seq[i].Email) == norm {
				if found == nil {
					found = &seq[i]
				}
				count++
			}
		}
	}
	switch {
	case count == 0:
		return "", fmt.Sprintf("student_email %s not found", studentEmail)
	case count > 1:
		return "", fmt.Sprintf("student_email %s matches multiple students", studentEmail)
	}
	return found.ID, ""
}
