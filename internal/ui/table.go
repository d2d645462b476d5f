package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/edulab/reporover/internal/export"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/resolve"
)

func newTable(width int) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width)
}

// RenderPreview renders a selection preview: the matched groups with their
// active member counts, empty groups flagged.
func RenderPreview(r *model.Roster, preview resolve.PreviewResult, width int) string {
	if !preview.Valid {
		return TableWarningStyle.Render("invalid selection: " + preview.Error)
	}

	t := newTable(width).Headers("GROUP", "MEMBERS", "")
	empty := make(map[string]bool, len(preview.EmptyGroupIDs))
	for _, id := range preview.EmptyGroupIDs {
		empty[id] = true
	}
	for _, id := range preview.GroupIDs {
		g := r.FindGroup(id)
		if g == nil {
			continue
		}
		note := ""
		if empty[id] {
			note = TableWarningStyle.Render("empty, will be skipped")
		}
		t.Row(g.Name, strconv.Itoa(preview.GroupMemberCounts[id]), note)
	}

	summary := TableHintStyle.Render(
		strconv.Itoa(preview.MatchedGroups) + " of " + strconv.Itoa(preview.TotalGroups) + " groups selected")
	return t.Render() + "\n" + summary
}

// RenderCoverage renders the coverage report as one table: a summary row per
// assignment followed by the students outside any assignment.
func RenderCoverage(report export.CoverageReport, width int) string {
	t := newTable(width).Headers("ASSIGNMENT", "COVERED", "ABSENT")
	for _, a := range report.Assignments {
		covered := strconv.Itoa(a.Covered) + "/" + strconv.Itoa(report.TotalStudents)
		if a.Covered == report.TotalStudents {
			covered = TableSuccessStyle.Render(covered)
		} else {
			covered = TableWarningStyle.Render(covered)
		}
		t.Row(a.AssignmentName, covered, strconv.Itoa(len(a.Absent)))
	}

	out := t.Render()
	if len(report.Unassigned) > 0 {
		names := ""
		for i, s := range report.Unassigned {
			if i > 0 {
				names += ", "
			}
			names += s.Name
		}
		out += "\n" + TableWarningStyle.Render("in no assignment: "+names)
	}
	return out
}
