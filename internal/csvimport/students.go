package csvimport

import (
	"io"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
)

// ParsedStudent is one student row from a students CSV. Custom holds every
// column that is not one of the known ones, keyed by the original header cell.
type ParsedStudent struct {
	Name          string
	Email         string
	StudentNumber string
	GitUsername   string
	Custom        map[string]string
}

// ParseStudents reads a students CSV. Required columns are name and email;
// student_number and git_username are recognized when present, and any other
// column is carried through as a custom field. A later row with the same
// normalized email replaces the earlier one.
func ParseStudents(r io.Reader) ([]ParsedStudent, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	nameCol := h.col("name")
	emailCol := h.col("email")
	if nameCol < 0 || emailCol < 0 {
		var missing []string
		if nameCol < 0 {
			missing = append(missing, "name")
		}
		if emailCol < 0 {
			missing = append(missing, "email")
		}
		return nil, apperr.NewValidation("missing required columns", missing...)
	}
	numberCol := h.col("student_number")
	gitCol := h.col("git_username")

	known := map[int]bool{nameCol: true, emailCol: true}
	if numberCol >= 0 {
		known[numberCol] = true
	}
	if gitCol >= 0 {
		known[gitCol] = true
	}

	var (
		out     []ParsedStudent
		byEmail = map[string]int{}
		badRows []int
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
		email := cell(row, emailCol)
		if name == "" || email == "" {
			badRows = append(badRows, rowNum)
			continue
		}

		s := ParsedStudent{
			Name:          name,
			Email:         model.NormalizeEmail(email),
			StudentNumber: cell(row, numberCol),
			GitUsername:   cell(row, gitCol),
		}
		for i, rawHeader := range h.raw {
			if known[i] {
				continue
			}
			if v := cell(row, i); v != "" {
				if s.Custom == nil {
					s.Custom = map[string]string{}
				}
				s.Custom[rawHeader] = v
			}
		}

		if idx, seen := byEmail[s.Email]; seen {
			out[idx] = s
		} else {
			byEmail[s.Email] = len(out)
			out = append(out, s)
		}
	}

	if len(badRows) > 0 {
		return nil, apperr.NewValidation("rows missing name or email", "rows "+joinRows(badRows))
	}
	return out, nil
}
