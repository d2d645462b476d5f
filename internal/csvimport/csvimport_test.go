package csvimport

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
)

func TestParseStudents(t *testing.T) {
	csv := "Name,Email,student_number,shirt size\n" +
		"Alice Johnson,ALICE@Example.com ,123,M\n" +
		"Bob Smith,bob@example.com,,\n" +
		",,,\n"

	students, err := ParseStudents(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 2 {
		t.Fatalf("got %d students, want 2", len(students))
	}
	if students[0].Email != "alice@example.com" {
		t.Errorf("email not normalized: %q", students[0].Email)
	}
	if students[0].StudentNumber != "123" {
		t.Errorf("student_number = %q", students[0].StudentNumber)
	}
	if students[0].Custom["shirt size"] != "M" {
		t.Errorf("custom field = %v", students[0].Custom)
	}
	if students[1].Custom != nil {
		t.Errorf("blank custom cells should not be stored: %v", students[1].Custom)
	}
}

func TestParseStudentsLaterRowReplaces(t *testing.T) {
	csv := "name,email\nAlice One,alice@example.com\nAlice Two,ALICE@EXAMPLE.COM\n"
	students, err := ParseStudents(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 1 || students[0].Name != "Alice Two" {
		t.Errorf("got %+v, want single Alice Two", students)
	}
}

func TestParseStudentsAggregatesBadRows(t *testing.T) {
	csv := "name,email\n,missing-name@example.com\nBob,\nCarol,carol@example.com\n"
	_, err := ParseStudents(strings.NewReader(csv))
	var verr apperr.Validation
	if !errors.As(err, &verr) {
		t.Fatalf("want Validation error, got %v", err)
	}
	if !strings.Contains(verr.Error(), "2") || !strings.Contains(verr.Error(), "3") {
		t.Errorf("error should list rows 2 and 3: %v", verr)
	}
}

func TestParseStudentsMissingColumns(t *testing.T) {
	_, err := ParseStudents(strings.NewReader("name,number\nAlice,1\n"))
	var verr apperr.Validation
	if !errors.As(err, &verr) {
		t.Fatalf("want Validation error, got %v", err)
	}
	if !strings.Contains(verr.Error(), "email") {
		t.Errorf("error should name the missing column: %v", verr)
	}
}

func TestParseGroupSetOrder(t *testing.T) {
	csv := "group_name,email\n" +
		"Team A,alice@example.com\n" +
		"Team B,carol@example.com\n" +
		"Team A,bob@example.com\n"

	groups, err := ParseGroupSet(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Name != "Team A" || groups[1].Name != "Team B" {
		t.Errorf("order = [%s %s], want first-appearance", groups[0].Name, groups[1].Name)
	}
	if !reflect.DeepEqual(groups[0].MemberEmails, []string{"alice@example.com", "bob@example.com"}) {
		t.Errorf("Team A members = %v", groups[0].MemberEmails)
	}
}

func TestParseGroupSetEmptyGroupRow(t *testing.T) {
	csv := "group_name,email\nTeam A,\n"
	groups, err := ParseGroupSet(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].MemberEmails) != 0 {
		t.Errorf("blank-email row should declare an empty group: %+v", groups)
	}
}

func TestParseGroupSetIDConflict(t *testing.T) {
	csv := "group_id,group_name,email\ng1,Team A,a@example.com\ng1,Team B,b@example.com\n"
	_, err := ParseGroupSet(strings.NewReader(csv))
	var verr apperr.Validation
	if !errors.As(err, &verr) {
		t.Fatalf("want Validation error, got %v", err)
	}
	if !strings.Contains(verr.Error(), "Team A") || !strings.Contains(verr.Error(), "Team B") {
		t.Errorf("error should name both groups: %v", verr)
	}
}

func TestParseGroupSetDuplicateMembership(t *testing.T) {
	csv := "group_name,email\nTeam A,a@example.com\nTeam A,A@EXAMPLE.COM\n"
	_, err := ParseGroupSet(strings.NewReader(csv))
	var verr apperr.Validation
	if !errors.As(err, &verr) {
		t.Fatalf("want Validation error, got %v", err)
	}
	if !strings.Contains(verr.Error(), "Duplicate membership") {
		t.Errorf("error = %v", verr)
	}
}

func editRoster() *model.Roster {
	return &model.Roster{
		Students: []model.Member{
			{ID: "s1", Name: "Alice", Email: "alice@example.com", Status: model.StatusActive},
			{ID: "s2", Name: "Bob", Email: "bob@example.com", Status: model.StatusActive},
			{ID: "s3", Name: "Dup One", Email: "dup@example.com", Status: model.StatusActive},
			{ID: "s4", Name: "Dup Two", Email: "dup@example.com", Status: model.StatusActive},
		},
	}
}

func TestParseGroupEditFirstTime(t *testing.T) {
	csv := "group_name,student_email\nTeam A,alice@example.com\nTeam A,bob@example.com\n"
	result, err := ParseGroupEdit(strings.NewReader(csv), editRoster())
	if err != nil {
		t.Fatal(err)
	}
	if result.Mode != ModeFirstTime {
		t.Errorf("mode = %s, want first_time", result.Mode)
	}
	if len(result.Groups) != 1 || !reflect.DeepEqual(result.Groups[0].MemberIDs, []string{"s1", "s2"}) {
		t.Errorf("groups = %+v", result.Groups)
	}
}

func TestParseGroupEditRoundTrip(t *testing.T) {
	gid := model.NewID()
	csv := "group_id,group_name,student_id\n" + gid + ",Team A,s1\n"
	result, err := ParseGroupEdit(strings.NewReader(csv), editRoster())
	if err != nil {
		t.Fatal(err)
	}
	if result.Mode != ModeRoundTrip {
		t.Errorf("mode = %s, want round_trip", result.Mode)
	}
	if result.Groups[0].GroupID != gid {
		t.Errorf("group ID = %q, want %q", result.Groups[0].GroupID, gid)
	}
}

func TestParseGroupEditInvalidGroupID(t *testing.T) {
	csv := "group_id,group_name,student_id\nnot-base58-0OIl,Team A,s1\n"
	_, err := ParseGroupEdit(strings.NewReader(csv), editRoster())
	var verr apperr.Validation
	if !errors.As(err, &verr) {
		t.Fatalf("want Validation error, got %v", err)
	}
}

func TestParseGroupEditRowErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{
			"unknown student id",
			"group_name,student_id\nTeam A,ghost\n",
			"not found",
		},
		{
			"id and email disagree",
			"group_name,student_id,student_email\nTeam A,s1,bob@example.com\n",
			"does not match",
		},
		{
			"ambiguous email",
			"group_name,student_email\nTeam A,dup@example.com\n",
			"matches multiple students",
		},
		{
			"student in two groups",
			"group_name,student_email\nTeam A,alice@example.com\nTeam B,alice@example.com\n",
			"more than one group",
		},
		{
			"normalized duplicate names",
			"group_name,student_email\nTeam  A,alice@example.com\nteam a,bob@example.com\n",
			"normalize to the same group",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGroupEdit(strings.NewReader(tt.csv), editRoster())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestReconcileNewSet(t *testing.T) {
	r := editRoster()
	parsed := []ParsedGroup{
		{Name: "Team A", MemberEmails: []string{"alice@example.com", "bob@example.com"}},
		{Name: "Team B", MemberEmails: []string{"dup@example.com"}},
	}

	result, err := Reconcile(r, "", "sections", parsed, Source{Filename: "sections.csv", Path: "/tmp/sections.csv"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.GroupsUpserted) != 2 {
		t.Fatalf("upserted %d groups, want 2", len(result.GroupsUpserted))
	}
	if !reflect.DeepEqual(result.GroupsUpserted[0].MemberIDs, []string{"s1", "s2"}) {
		t.Errorf("Team A members = %v", result.GroupsUpserted[0].MemberIDs)
	}
	if result.GroupsUpserted[0].Origin != model.OriginLocal {
		t.Errorf("origin = %s, want local", result.GroupsUpserted[0].Origin)
	}
	if result.TotalMissing != 0 {
		t.Errorf("TotalMissing = %d, want 0", result.TotalMissing)
	}

	gs := r.FindGroupSet(result.GroupSetID)
	if gs == nil || gs.Name != "sections" {
		t.Fatalf("group set not created: %+v", gs)
	}
	if gs.Connection == nil || gs.Connection.Kind != model.ConnectionImport ||
		gs.Connection.SourceFilename != "sections.csv" {
		t.Errorf("connection = %+v", gs.Connection)
	}
}

func TestReconcileCaseInsensitiveEmail(t *testing.T) {
	r := editRoster()
	parsed := []ParsedGroup{{Name: "Team A", MemberEmails: []string{model.NormalizeEmail("ALICE@EXAMPLE.COM")}}}

	result, err := Reconcile(r, "", "s", parsed, Source{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(result.GroupsUpserted[0].MemberIDs, []string{"s1"}) {
		t.Errorf("members = %v, want [s1]", result.GroupsUpserted[0].MemberIDs)
	}
}

func TestReconcileDiff(t *testing.T) {
	r := editRoster()
	first := []ParsedGroup{
		{Name: "Team A", MemberEmails: []string{"alice@example.com"}},
		{Name: "Team B", MemberEmails: []string{"bob@example.com"}},
	}
	res1, err := Reconcile(r, "", "sections", first, Source{})
	if err != nil {
		t.Fatal(err)
	}
	teamAID := res1.GroupsUpserted[0].ID

	// Re-import: Team A renamed via round-trip ID with a member change,
	// Team B gone, Team C new.
	second := []ParsedGroup{
		{GroupID: teamAID, Name: "Team Alpha", MemberEmails: []string{"alice@example.com", "bob@example.com"}},
		{Name: "Team C", MemberEmails: []string{"dup@example.com"}},
	}
	res2, err := Reconcile(r, res1.GroupSetID, "", second, Source{})
	if err != nil {
		t.Fatal(err)
	}

	if len(res2.RemovedGroupIDs) != 1 {
		t.Errorf("removed = %v, want one group", res2.RemovedGroupIDs)
	}
	renamed := r.FindGroup(teamAID)
	if renamed == nil || renamed.Name != "Team Alpha" {
		t.Errorf("rename not applied: %+v", renamed)
	}
	if !reflect.DeepEqual(renamed.MemberIDs, []string{"s1", "s2"}) {
		t.Errorf("members = %v", renamed.MemberIDs)
	}
	gs := r.FindGroupSet(res1.GroupSetID)
	if len(gs.GroupIDs) != 2 {
		t.Errorf("set has %d groups, want 2", len(gs.GroupIDs))
	}
}

func TestReconcileMissingEmails(t *testing.T) {
	r := editRoster()
	parsed := []ParsedGroup{{Name: "Team A", MemberEmails: []string{"alice@example.com", "ghost@example.com"}}}

	result, err := Reconcile(r, "", "s", parsed, Source{})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalMissing != 1 || result.MissingEmails[0] != "ghost@example.com" {
		t.Errorf("missing = %v", result.MissingEmails)
	}
	if !reflect.DeepEqual(result.GroupsUpserted[0].MemberIDs, []string{"s1"}) {
		t.Errorf("members = %v, want [s1]", result.GroupsUpserted[0].MemberIDs)
	}
}
