package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edulab/reporover/internal/config"
	"github.com/edulab/reporover/internal/lms"
	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/persist"
	"github.com/edulab/reporover/internal/platform"
	"github.com/edulab/reporover/internal/repoops"
	"github.com/edulab/reporover/internal/systemsets"
	"github.com/edulab/reporover/internal/utils"
	"github.com/edulab/reporover/internal/validation"
)

// app bundles the loaded profile, its roster, and the store they came from.
type app struct {
	store   *persist.Store
	profile persist.Profile
	roster  *model.Roster
}

// loadApp resolves the profile (flag, then config, then the active marker)
// and loads it with its roster. A profile without a stored roster starts
// from an empty one.
func loadApp(cmd *cobra.Command) *app {
	store := persist.Open(slog.Default())

	name, _ := cmd.Flags().GetString("profile")
	if name == "" {
		name = config.GetString("profile")
	}
	if name == "" {
		active, err := store.ActiveProfile()
		if err != nil {
			FatalError("%v", err)
		}
		name = active
	}
	if name == "" {
		FatalError("no profile selected; run 'reporover profile use <name>' or pass --profile")
	}

	profile, err := store.LoadProfile(name)
	if err != nil {
		FatalError("%v", err)
	}
	roster, err := store.LoadRoster(name)
	if err != nil {
		roster = &model.Roster{}
	}
	return &app{store: store, profile: profile, roster: roster}
}

// save runs system-set maintenance and commits profile and roster in one
// atomic swap.
func (a *app) save() {
	systemsets.Ensure(a.roster)
	if err := a.store.SaveProfileAndRoster(a.profile, a.roster); err != nil {
		FatalError("saving profile %s: %v", a.profile.Name, err)
	}
}

// platformClient builds the Git platform client from the profile and the
// environment token.
func (a *app) platformClient() platform.Platform {
	params := platform.Params{
		BaseURL:      a.profile.Git.BaseURL,
		Token:        config.Token(),
		Organization: a.profile.Git.Organization,
		User:         a.profile.Git.User,
	}
	var explicit *platform.Type
	if a.profile.Git.Platform != "" {
		t := platform.Type(a.profile.Git.Platform)
		explicit = &t
	}
	p, err := platform.New(explicit, params, nil)
	if err != nil {
		FatalError("%v", err)
	}
	return p
}

// lmsConnection builds the LMS connection from the profile and environment.
func (a *app) lmsConnection() lms.Connection {
	return lms.Connection{
		Type:    lms.Type(a.profile.LMS.Kind),
		BaseURL: a.profile.LMS.BaseURL,
		Token:   config.LMSToken(),
	}
}

// repoConfig maps the profile's repo settings onto a bulk-operation config.
func (a *app) repoConfig() repoops.Config {
	return repoops.Config{
		RepoNameTemplate: a.profile.Repos.NameTemplate,
		TargetDir:        a.profile.Repos.TargetDir,
		Layout:           repoops.Layout(a.profile.Repos.Layout),
		Private:          a.profile.Repos.Private,
	}
}

func (a *app) identityMode() validation.GitIdentityMode {
	if a.profile.Repos.IdentityMode == string(validation.IdentityUsername) {
		return validation.IdentityUsername
	}
	return validation.IdentityEmail
}

// findAssignment resolves an assignment by ID or exact name.
func (a *app) findAssignment(ref string) *model.Assignment {
	if found := a.roster.FindAssignment(ref); found != nil {
		return found
	}
	norm := model.NormalizeName(ref)
	names := make([]string, 0, len(a.roster.Assignments))
	for i := range a.roster.Assignments {
		if model.NormalizeName(a.roster.Assignments[i].Name) == norm {
			return &a.roster.Assignments[i]
		}
		names = append(names, a.roster.Assignments[i].Name)
	}
	if hint := utils.Suggest(ref, names); hint != "" {
		FatalError("assignment %q not found (did you mean %q?)", ref, hint)
	}
	FatalError("assignment %q not found", ref)
	return nil
}

// findGroupSet resolves a group set by ID or exact name.
func (a *app) findGroupSet(ref string) *model.GroupSet {
	if found := a.roster.FindGroupSet(ref); found != nil {
		return found
	}
	norm := model.NormalizeName(ref)
	names := make([]string, 0, len(a.roster.GroupSets))
	for i := range a.roster.GroupSets {
		if model.NormalizeName(a.roster.GroupSets[i].Name) == norm {
			return &a.roster.GroupSets[i]
		}
		names = append(names, a.roster.GroupSets[i].Name)
	}
	if hint := utils.Suggest(ref, names); hint != "" {
		FatalError("group set %q not found (did you mean %q?)", ref, hint)
	}
	FatalError("group set %q not found", ref)
	return nil
}

func yesFlag(cmd *cobra.Command) bool {
	yes, _ := cmd.Flags().GetBool("yes")
	return yes || config.GetBool("yes")
}
