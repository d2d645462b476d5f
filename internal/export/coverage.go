package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/resolve"
)

// AssignmentCoverage is the per-assignment slice of the coverage report.
type AssignmentCoverage struct {
	AssignmentID   string
	AssignmentName string
	Covered        int            // distinct active students across the assignment's groups
	Absent         []model.Member // active students in none of its groups
}

// CoverageReport answers "which students does each assignment reach".
// Only active students are counted; staff never appear.
type CoverageReport struct {
	TotalStudents int
	Assignments   []AssignmentCoverage
	Multiple      []model.Member // students in more than one assignment
	Unassigned    []model.Member // students in no assignment at all
}

// Coverage computes the report over every assignment, in roster order.
func Coverage(r *model.Roster) CoverageReport {
	report := CoverageReport{}
	active := make([]model.Member, 0, len(r.Students))
	for _, s := range r.Students {
		if s.Status == model.StatusActive {
			active = append(active, s)
		}
	}
	report.TotalStudents = len(active)

	assignmentCount := make(map[string]int, len(active))
	for _, a := range r.Assignments {
		seen := map[string]bool{}
		for _, g := range resolve.Groups(r, &a) {
			for _, id := range r.ActiveGroupMemberIDs(&g) {
				if r.FindStudent(id) == nil || seen[id] {
					continue
				}
				seen[id] = true
			}
		}

		cov := AssignmentCoverage{
			AssignmentID:   a.ID,
			AssignmentName: a.Name,
			Covered:        len(seen),
		}
		for _, s := range active {
			if seen[s.ID] {
				assignmentCount[s.ID]++
			} else {
				cov.Absent = append(cov.Absent, s)
			}
		}
		report.Assignments = append(report.Assignments, cov)
	}

	for _, s := range active {
		switch {
		case assignmentCount[s.ID] == 0:
			report.Unassigned = append(report.Unassigned, s)
		case assignmentCount[s.ID] > 1:
			report.Multiple = append(report.Multiple, s)
		}
	}
	return report
}

// coverageRows flattens the report into one table shared by the CSV and
// XLSX writers.
func coverageRows(report CoverageReport) [][]string {
	rows := [][]string{{"kind", "assignment", "student", "email", "value"}}
	for _, a := range report.Assignments {
		rows = append(rows, []string{
			"coverage", a.AssignmentName, "", "",
			strconv.Itoa(a.Covered) + "/" + strconv.Itoa(report.TotalStudents),
		})
	}
	for _, a := range report.Assignments {
		for _, s := range a.Absent {
			rows = append(rows, []string{"absent", a.AssignmentName, s.Name, s.Email, ""})
		}
	}
	for _, s := range report.Multiple {
		rows = append(rows, []string{"multiple_assignments", "", s.Name, s.Email, ""})
	}
	for _, s := range report.Unassigned {
		rows = append(rows, []string{"no_assignment", "", s.Name, s.Email, ""})
	}
	return rows
}

// WriteCoverageCSV writes the report as RFC 4180 CSV.
func WriteCoverageCSV(w io.Writer, report CoverageReport) error {
	cw := csv.NewWriter(w)
	for _, row := range coverageRows(report) {
		if err := cw.Write(row); err != nil {
			return apperr.NewFile("writing coverage CSV", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.NewFile("writing coverage CSV", err)
	}
	return nil
}

const coverageSheet = "Coverage"

// WriteCoverageXLSX writes the report as a one-sheet workbook.
func WriteCoverageXLSX(w io.Writer, report CoverageReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", coverageSheet); err != nil {
		return apperr.NewFile("naming coverage sheet", err)
	}
	for i, row := range coverageRows(report) {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return apperr.NewFile("writing coverage XLSX", err)
			}
			if err := f.SetCellValue(coverageSheet, cell, value); err != nil {
				return apperr.NewFile("writing coverage XLSX", err)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return apperr.NewFile("writing coverage XLSX", err)
	}
	return nil
}
