// Package csvimport parses the three CSV dialects the importer accepts:
// student rosters, group-set files, and edited per-assignment group exports.
// All dialects share the same conventions: comma-separated, a required header
// row matched case-insensitively, trimmed cells, and flexible row length.
// Parse errors are aggregated per file so a user fixes everything in one pass.
package csvimport

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/edulab/reporover/internal/apperr"
)

// header maps lowercased column names to their index while keeping the raw
// header cells for custom-field passthrough.
type header struct {
	raw  []string
	cols map[string]int
}

func readHeader(cr *csv.Reader) (*header, error) {
	row, err := cr.Read()
	if err == io.EOF {
		return nil, apperr.NewValidation("empty file: missing header row")
	}
	if err != nil {
		return nil, apperr.NewValidation("malformed header row", err.Error())
	}
	h := &header{raw: row, cols: make(map[string]int, len(row))}
	for i, cell := range row {
		key := strings.ToLower(strings.TrimSpace(cell))
		if _, dup := h.cols[key]; !dup {
			h.cols[key] = i
		}
	}
	return h, nil
}

// col returns the index of a column, or -1 when absent.
func (h *header) col(name string) int {
	if i, ok := h.cols[name]; ok {
		return i
	}
	return -1
}

// cell returns the trimmed value at idx, tolerating short rows.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

func joinRows(rows []int) string {
	parts := make([]string, len(rows))
	for i, n := range rows {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
