package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edulab/reporover/internal/persist"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage course profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Run: func(cmd *cobra.Command, args []string) {
		store := persist.Open(slog.Default())
		names, err := store.ListProfiles()
		if err != nil {
			FatalError("%v", err)
		}
		active, _ := store.ActiveProfile()
		for _, name := range names {
			if name == active {
				fmt.Printf("* %s\n", name)
			} else {
				fmt.Printf("  %s\n", name)
			}
		}
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch the active profile, creating it if needed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := persist.Open(slog.Default())
		name := args[0]

		if _, err := store.LoadProfile(name); err != nil {
			if create, _ := cmd.Flags().GetBool("create"); !create {
				FatalError("profile %q does not exist (use --create to make it)", name)
			}
			if err := store.SaveProfileAndRoster(persist.DefaultProfile(name), nil); err != nil {
				FatalError("%v", err)
			}
		}
		if err := store.SetActiveProfile(name); err != nil {
			FatalError("%v", err)
		}
		fmt.Printf("active profile: %s\n", name)
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current profile's settings and roster counts",
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		p := a.profile
		fmt.Printf("profile: %s\n", p.Name)
		fmt.Printf("lms: %s %s (course %s)\n", p.LMS.Kind, p.LMS.BaseURL, p.LMS.CourseID)
		fmt.Printf("git: %s %s (org %s)\n", p.Git.Platform, p.Git.BaseURL, p.Git.Organization)
		fmt.Printf("repos: template %q, layout %s, private %t\n",
			p.Repos.NameTemplate, p.Repos.Layout, p.Repos.Private)
		fmt.Printf("roster: %d students, %d staff, %d groups, %d group sets, %d assignments\n",
			len(a.roster.Students), len(a.roster.Staff), len(a.roster.Groups),
			len(a.roster.GroupSets), len(a.roster.Assignments))
	},
}

func init() {
	profileUseCmd.Flags().Bool("create", false, "create the profile if it does not exist")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileShowCmd)
}
