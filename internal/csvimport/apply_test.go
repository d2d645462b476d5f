package csvimport

import (
	"testing"

	"github.com/edulab/reporover/internal/model"
)

func TestApplyStudents(t *testing.T) {
	r := &model.Roster{
		Students: []model.Member{
			{ID: "s1", Name: "Alice", Email: "alice@example.com", Status: model.StatusActive},
		},
	}
	parsed := []ParsedStudent{
		{Name: "Alice Cooper", Email: "alice@example.com", GitUsername: "alice-gh"},
		{Name: "Bob", Email: "bob@example.com"},
		{Name: "Bob", Email: "bob@example.com"}, // replayed row, already applied
	}

	summary := ApplyStudents(r, parsed, "students.csv")
	if summary.Added != 1 || summary.Updated != 1 || summary.Unchanged != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(r.Students) != 2 {
		t.Fatalf("students = %+v", r.Students)
	}
	if r.Students[0].Name != "Alice Cooper" || r.Students[0].GitUsername != "alice-gh" {
		t.Errorf("update missed: %+v", r.Students[0])
	}
	if r.Students[0].GitUsernameStatus != model.GitUsernameUnknown {
		t.Errorf("new username should reset status: %+v", r.Students[0])
	}
	if r.Students[1].Status != model.StatusActive || r.Students[1].Source != "students.csv" {
		t.Errorf("added student = %+v", r.Students[1])
	}
	if r.Students[1].ID == "" {
		t.Error("added student has no ID")
	}
}

func TestApplyStudentsKeepsExistingFields(t *testing.T) {
	r := &model.Roster{
		Students: []model.Member{
			{ID: "s1", Name: "Alice", Email: "alice@example.com", StudentNumber: "42"},
		},
	}
	// Blank optional columns never erase stored values.
	summary := ApplyStudents(r, []ParsedStudent{{Name: "Alice", Email: "alice@example.com"}}, "x")
	if summary.Unchanged != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if r.Students[0].StudentNumber != "42" {
		t.Errorf("student number erased: %+v", r.Students[0])
	}
}

func applyRoster() *model.Roster {
	return &model.Roster{
		Students: []model.Member{
			{ID: "s1", Name: "Alice", Email: "alice@example.com", Status: model.StatusActive},
			{ID: "s2", Name: "Bob", Email: "bob@example.com", Status: model.StatusActive},
			{ID: "s3", Name: "Carol", Email: "carol@example.com", Status: model.StatusActive},
		},
		Groups: []model.Group{
			{ID: "g1", Name: "Team A", MemberIDs: []string{"s1"}},
			{ID: "g2", Name: "Team B", MemberIDs: []string{"s2"}},
		},
		GroupSets: []model.GroupSet{
			{ID: "gs1", Name: "labs", GroupIDs: []string{"g1", "g2"}},
		},
	}
}

func TestApplyGroupEditRoundTrip(t *testing.T) {
	r := applyRoster()
	edit := GroupEditResult{
		Mode: ModeRoundTrip,
		Groups: []EditedGroup{
			{GroupID: "g1", Name: "Team Alpha", MemberIDs: []string{"s1", "s3"}},
		},
	}

	result, err := ApplyGroupEdit(r, "gs1", edit)
	if err != nil {
		t.Fatal(err)
	}
	if result.GroupsUpserted != 1 {
		t.Errorf("upserted = %d", result.GroupsUpserted)
	}
	if len(result.RemovedGroupIDs) != 1 || result.RemovedGroupIDs[0] != "g2" {
		t.Errorf("removed = %v", result.RemovedGroupIDs)
	}

	gs := r.FindGroupSet("gs1")
	if len(gs.GroupIDs) != 1 || gs.GroupIDs[0] != "g1" {
		t.Errorf("set order = %v", gs.GroupIDs)
	}
	g := r.FindGroup("g1")
	if g.Name != "Team Alpha" || len(g.MemberIDs) != 2 {
		t.Errorf("group = %+v", g)
	}
	if r.FindGroup("g2") != nil {
		t.Error("removed group still on roster")
	}
}

func TestApplyGroupEditFirstTimeCreates(t *testing.T) {
	r := applyRoster()
	edit := GroupEditResult{
		Mode: ModeFirstTime,
		Groups: []EditedGroup{
			{Name: "team a", MemberIDs: []string{"s1"}},     // matches Team A by normalized name
			{Name: "Team C", MemberIDs: []string{"s2", "s3"}}, // new group
		},
	}

	result, err := ApplyGroupEdit(r, "gs1", edit)
	if err != nil {
		t.Fatal(err)
	}
	if result.GroupsUpserted != 2 {
		t.Errorf("upserted = %d", result.GroupsUpserted)
	}

	gs := r.FindGroupSet("gs1")
	if len(gs.GroupIDs) != 2 || gs.GroupIDs[0] != "g1" {
		t.Errorf("set = %v", gs.GroupIDs)
	}
	created := r.FindGroup(gs.GroupIDs[1])
	if created == nil || created.Name != "Team C" || created.Origin != model.OriginLocal {
		t.Errorf("created = %+v", created)
	}
}

func TestApplyGroupEditUnknownRoundTripID(t *testing.T) {
	r := applyRoster()
	edit := GroupEditResult{
		Mode:   ModeRoundTrip,
		Groups: []EditedGroup{{GroupID: "ghost", Name: "X", MemberIDs: []string{"s1"}}},
	}
	if _, err := ApplyGroupEdit(r, "gs1", edit); err == nil {
		t.Fatal("expected error")
	}
	// No partial mutation.
	if len(r.Groups) != 2 || len(r.FindGroupSet("gs1").GroupIDs) != 2 {
		t.Errorf("roster mutated on failure: %+v", r.Groups)
	}
}
