package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/edulab/reporover/internal/csvimport"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/validation"
)

func exportRoster() *model.Roster {
	return &model.Roster{
		Students: []model.Member{
			{ID: "s1", Name: "Alice Cooper", Email: "alice@example.com", Status: model.StatusActive, GitUsername: "alice-gh"},
			{ID: "s2", Name: "Bob Dylan", Email: "bob@example.com", Status: model.StatusActive},
			{ID: "s3", Name: "Carol King", Email: "carol@example.com", Status: model.StatusActive, GitUsername: "carolk"},
			{ID: "s4", Name: "Dave Gone", Email: "dave@example.com", Status: model.StatusDropped},
		},
		Groups: []model.Group{
			{ID: "g1", Name: "Team A", MemberIDs: []string{"s1", "s2"}},
			{ID: "g2", Name: "Team B", MemberIDs: []string{"s3"}},
			{ID: "g3", Name: "Empty"},
		},
		GroupSets: []model.GroupSet{
			{ID: "gs1", Name: "labs", GroupIDs: []string{"g1", "g2", "g3"}},
		},
		Assignments: []model.Assignment{
			{ID: "a1", Name: "Lab 1", GroupSetID: "gs1", Selection: model.SelectAll()},
		},
	}
}

func TestTeamsEmailIdentity(t *testing.T) {
	doc, err := Teams(exportRoster(), "a1", validation.IdentityEmail)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Assignment != "Lab 1" || len(doc.Teams) != 3 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Teams[0].Name != "team-a" {
		t.Errorf("team name = %q, want slug team-a", doc.Teams[0].Name)
	}
	want := []string{"alice@example.com", "bob@example.com"}
	if len(doc.Teams[0].Members) != 2 || doc.Teams[0].Members[0] != want[0] || doc.Teams[0].Members[1] != want[1] {
		t.Errorf("members = %v, want %v", doc.Teams[0].Members, want)
	}
}

func TestTeamsUsernameDropsEmpty(t *testing.T) {
	doc, err := Teams(exportRoster(), "a1", validation.IdentityUsername)
	if err != nil {
		t.Fatal(err)
	}
	// Bob has no git username and is silently omitted.
	if len(doc.Teams[0].Members) != 1 || doc.Teams[0].Members[0] != "alice-gh" {
		t.Errorf("members = %v", doc.Teams[0].Members)
	}
}

func TestWriteTeamsYAML(t *testing.T) {
	doc, err := Teams(exportRoster(), "a1", validation.IdentityEmail)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteTeamsYAML(&buf, doc); err != nil {
		t.Fatal(err)
	}

	var back TeamsDocument
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Assignment != "Lab 1" || len(back.Teams) != 3 {
		t.Errorf("round trip = %+v", back)
	}
}

func TestCoverage(t *testing.T) {
	r := exportRoster()
	// Second assignment reaching only Team B, so Carol lands in two
	// assignments and Bob/Alice are absent from it.
	r.Assignments = append(r.Assignments, model.Assignment{
		ID: "a2", Name: "Lab 2", GroupSetID: "gs1",
		Selection: model.GroupSelection{Kind: model.SelectionPattern, Pattern: "Team B"},
	})

	report := Coverage(r)
	if report.TotalStudents != 3 {
		t.Errorf("total = %d, want 3 (dropped student excluded)", report.TotalStudents)
	}
	if len(report.Assignments) != 2 {
		t.Fatalf("assignments = %+v", report.Assignments)
	}
	if report.Assignments[0].Covered != 3 || len(report.Assignments[0].Absent) != 0 {
		t.Errorf("lab 1 coverage = %+v", report.Assignments[0])
	}
	if report.Assignments[1].Covered != 1 || len(report.Assignments[1].Absent) != 2 {
		t.Errorf("lab 2 coverage = %+v", report.Assignments[1])
	}
	if len(report.Multiple) != 1 || report.Multiple[0].ID != "s3" {
		t.Errorf("multiple = %+v", report.Multiple)
	}
	if len(report.Unassigned) != 0 {
		t.Errorf("unassigned = %+v", report.Unassigned)
	}
}

func TestCoverageUnassigned(t *testing.T) {
	r := exportRoster()
	r.Students = append(r.Students, model.Member{
		ID: "s9", Name: "Eve Alone", Email: "eve@example.com", Status: model.StatusActive,
	})
	report := Coverage(r)
	if len(report.Unassigned) != 1 || report.Unassigned[0].ID != "s9" {
		t.Errorf("unassigned = %+v", report.Unassigned)
	}
}

func TestWriteCoverageCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCoverageCSV(&buf, Coverage(exportRoster())); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "coverage,Lab 1,,,3/3") {
		t.Errorf("csv missing coverage row:\n%s", got)
	}
}

func TestWriteCoverageXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCoverageXLSX(&buf, Coverage(exportRoster())); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if f.GetSheetName(0) != "Coverage" {
		t.Errorf("sheet = %q", f.GetSheetName(0))
	}
	cell, err := f.GetCellValue("Coverage", "A2")
	if err != nil {
		t.Fatal(err)
	}
	if cell != "coverage" {
		t.Errorf("A2 = %q", cell)
	}
}

func TestGroupSetCSVRoundTrip(t *testing.T) {
	r := exportRoster()
	var buf bytes.Buffer
	if err := WriteGroupSetCSV(&buf, r, "gs1"); err != nil {
		t.Fatal(err)
	}

	parsed, err := csvimport.ParseGroupSet(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed) != 3 {
		t.Fatalf("parsed = %+v", parsed)
	}
	if parsed[0].Name != "Team A" || len(parsed[0].MemberEmails) != 2 {
		t.Errorf("group 0 = %+v", parsed[0])
	}
	if parsed[2].Name != "Empty" || len(parsed[2].MemberEmails) != 0 {
		t.Errorf("empty group did not survive: %+v", parsed[2])
	}
}

func TestGroupEditCSVRoundTrip(t *testing.T) {
	r := exportRoster()
	// Round-trip requires real base58 group IDs.
	for i := range r.Groups {
		r.Groups[i].ID = model.NewID()
	}
	r.GroupSets[0].GroupIDs = []string{r.Groups[0].ID, r.Groups[1].ID}

	var buf bytes.Buffer
	if err := WriteGroupEditCSV(&buf, r, "a1"); err != nil {
		t.Fatal(err)
	}

	result, err := csvimport.ParseGroupEdit(&buf, r)
	if err != nil {
		t.Fatal(err)
	}
	if result.Mode != csvimport.ModeRoundTrip {
		t.Errorf("mode = %q", result.Mode)
	}
	if len(result.Groups) != 2 || result.Groups[0].GroupID != r.Groups[0].ID {
		t.Errorf("groups = %+v", result.Groups)
	}
	if len(result.Groups[0].MemberIDs) != 2 || result.Groups[0].MemberIDs[0] != "s1" {
		t.Errorf("members = %v", result.Groups[0].MemberIDs)
	}
}

func TestWriteGroupSetCSVUnknownSet(t *testing.T) {
	if err := WriteGroupSetCSV(&bytes.Buffer{}, exportRoster(), "nope"); err == nil {
		t.Error("expected not-found error")
	}
}
