package csvimport

import (
	"fmt"
	"io"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
)

// ParsedGroup is one group from a group-set CSV: the round-trip ID when the
// file carried one, the group name as written, and the member emails in
// first-appearance order.
type ParsedGroup struct {
	GroupID      string
	Name         string
	MemberEmails []string
}

// ParseGroupSet reads a group-set CSV. group_name is required; group_id and
// email are optional. A row with a blank email still declares the group, so
// empty groups round-trip. Groups come out in first-appearance order.
func ParseGroupSet(r io.Reader) ([]ParsedGroup, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	nameCol := h.col("group_name")
	if nameCol < 0 {
		return nil, apperr.NewValidation("missing required columns", "group_name")
	}
	idCol := h.col("group_id")
	emailCol := h.col("email")

	var (
		out      []ParsedGroup
		index    = map[string]int{} // group name -> out index
		idToName = map[string]string{}
		seenPair = map[string]bool{} // group name + "\x00" + normalized email
		details  []string
	)
	for rowNum := 2; ; rowNum++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.NewValidation("malformed CSV row", "line "+joinRows([]int{rowNum}))
		}
		if emptyRow(row) {
			continue
		}

		name := cell(row, nameCol)
		if name == "" {
			details = append(details, fmt.Sprintf("row %d: missing group_name", rowNum))
			continue
		}
		groupID := cell(row, idCol)
		email := model.NormalizeEmail(cell(row, emailCol))

		if groupID != "" {
			if prev, ok := idToName[groupID]; ok && prev != name {
				details = append(details, fmt.Sprintf(
					"group_id %s maps to both %q and %q", groupID, prev, name))
				continue
			}
			idToName[groupID] = name
		}

		idx, ok := index[name]
		if !ok {
			idx = len(out)
			index[name] = idx
			out = append(out, ParsedGroup{Name: name})
		}
		if groupID != "" && out[idx].GroupID == "" {
			out[idx].GroupID = groupID
		}

		if email == "" {
			continue
		}
		pair := name + "\x00" + email
		if seenPair[pair] {
			details = append(details, fmt.Sprintf(
				"Duplicate membership: %s in group %q", email, name))
			continue
		}
		seenPair[pair] = true
		out[idx].MemberEmails = append(out[idx].MemberEmails, email)
	}

	if len(details) > 0 {
		return nil, apperr.NewValidation("invalid group-set CSV", details...)
	}
	return out, nil
}
