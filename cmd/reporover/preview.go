package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edulab/reporover/internal/model"
	"github.com/edulab/reporover/internal/resolve"
	"github.com/edulab/reporover/internal/ui"
	"github.com/edulab/reporover/internal/validation"
)

var previewCmd = &cobra.Command{
	Use:   "preview <assignment>",
	Short: "Show which groups an assignment resolves to",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		assignment := a.findAssignment(args[0])

		sel := assignment.Selection
		if pattern, _ := cmd.Flags().GetString("pattern"); pattern != "" {
			sel = model.GroupSelection{Kind: model.SelectionPattern, Pattern: pattern}
		}

		preview := resolve.Preview(a.roster, assignment.GroupSetID, sel)
		fmt.Println(ui.RenderPreview(a.roster, preview, ui.GetWidth()))

		groups := resolve.Groups(a.roster, assignment)
		issues := validation.CheckAssignment(a.roster, assignment, groups, validation.AssignmentOptions{
			IdentityMode:     a.identityMode(),
			RepoNameTemplate: a.profile.Repos.NameTemplate,
		})
		for _, issue := range issues {
			fmt.Println(issue.String())
		}
	},
}

func init() {
	previewCmd.Flags().String("pattern", "", "preview with this selection pattern instead of the stored one")
}
