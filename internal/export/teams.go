// Package export renders roster data for consumption outside the tool:
// YAML team lists for CI graders, coverage reports as CSV or XLSX, and
// CSV round trips of group sets and per-assignment group layouts.
package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/edulab/reporover/internal/apperr"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/naming"
	"github.com/edulab/reporover/internal/resolve"
	"github.com/edulab/reporover/internal/validation"
)

// TeamsDocument is the YAML shape graders consume.
type TeamsDocument struct {
	Assignment string `yaml:"assignment"`
	Teams      []Team `yaml:"teams"`
}

// Team is one group with its members rendered as git identities.
type Team struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// Teams builds the team document for an assignment. The identity mode picks
// what a member is listed as: their email or their git username. Members
// without a username are dropped silently in username mode; validation
// already reports them.
func Teams(r *model.Roster, assignmentID string, mode validation.GitIdentityMode) (TeamsDocument, error) {
	assignment := r.FindAssignment(assignmentID)
	if assignment == nil {
		return TeamsDocument{}, apperr.NewNotFound("assignment " + assignmentID + " not found")
	}

	doc := TeamsDocument{Assignment: assignment.Name}
	for _, g := range resolve.Groups(r, assignment) {
		team := Team{Name: naming.Slugify(g.Name)}
		for _, id := range r.ActiveGroupMemberIDs(&g) {
			m := r.FindMember(id)
			switch mode {
			case validation.IdentityUsername:
				if m.GitUsername != "" {
					team.Members = append(team.Members, m.GitUsername)
				}
			default:
				team.Members = append(team.Members, m.Email)
			}
		}
		doc.Teams = append(doc.Teams, team)
	}
	return doc, nil
}

// WriteTeamsYAML renders the document with two-space indentation.
func WriteTeamsYAML(w io.Writer, doc TeamsDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return apperr.NewFile("writing teams YAML", err)
	}
	return enc.Close()
}
