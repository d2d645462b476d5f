package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edulab/reporover/internal/repoops"
	"github.com/edulab/reporover/internal/ui"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Bulk repository operations for an assignment",
}

var reposCreateCmd = &cobra.Command{
	Use:   "create <assignment>",
	Short: "Create one repository per group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		assignment := a.findAssignment(args[0])
		cfg := a.repoConfig()
		p := a.platformClient()

		pre, err := repoops.PreflightCreate(rootCtx, p, a.roster, assignment.ID, cfg)
		if err != nil {
			FatalError("%v", err)
		}
		reportCollisions(pre)

		result, err := repoops.CreateRepos(rootCtx, p, a.roster, assignment.ID, cfg,
			ui.ProgressPrinter(os.Stdout, ui.ShouldUseColor()))
		if err != nil {
			FatalError("%v", err)
		}
		finishBatch(result)
	},
}

var reposCloneCmd = &cobra.Command{
	Use:   "clone <assignment>",
	Short: "Clone every group repository into the target directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		assignment := a.findAssignment(args[0])
		cfg := a.repoConfig()
		if dir, _ := cmd.Flags().GetString("target-dir"); dir != "" {
			cfg.TargetDir = dir
		}
		if layout, _ := cmd.Flags().GetString("layout"); layout != "" {
			cfg.Layout = repoops.Layout(layout)
		}
		p := a.platformClient()

		pre, err := repoops.PreflightClone(rootCtx, p, a.roster, assignment.ID, cfg)
		if err != nil {
			FatalError("%v", err)
		}
		reportCollisions(pre)

		result, err := repoops.CloneRepos(rootCtx, p, a.roster, assignment.ID, cfg,
			ui.ProgressPrinter(os.Stdout, ui.ShouldUseColor()))
		if err != nil {
			FatalError("%v", err)
		}
		finishBatch(result)
	},
}

var reposDeleteCmd = &cobra.Command{
	Use:   "delete <assignment>",
	Short: "Delete every group repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		assignment := a.findAssignment(args[0])
		cfg := a.repoConfig()
		p := a.platformClient()

		pre, err := repoops.PreflightDelete(rootCtx, p, a.roster, assignment.ID, cfg)
		if err != nil {
			FatalError("%v", err)
		}
		reportCollisions(pre)

		if !yesFlag(cmd) {
			ok := ui.ConfirmDestructive(
				fmt.Sprintf("Delete all repositories for %q?", assignment.Name),
				"This removes the repositories on "+p.BaseURL()+" and cannot be undone.")
			if !ok {
				fmt.Println("aborted")
				return
			}
		}

		result, err := repoops.DeleteRepos(rootCtx, p, a.roster, assignment.ID, cfg,
			ui.ProgressPrinter(os.Stdout, ui.ShouldUseColor()))
		if err != nil {
			FatalError("%v", err)
		}
		finishBatch(result)
	},
}

// reportCollisions prints preflight findings; collisions become skips during
// the batch, so they are informational.
func reportCollisions(pre repoops.PreflightResult) {
	for _, n := range collisionNotes(pre) {
		fmt.Println(n)
	}
}

func collisionNotes(pre repoops.PreflightResult) []string {
	notes := make([]string, 0, len(pre.Collisions))
	for _, c := range pre.Collisions {
		notes = append(notes, fmt.Sprintf("note: %s (%s): %s", c.RepoName, c.GroupName, c.Kind))
	}
	return notes
}

// finishBatch prints per-group errors and exits nonzero on partial failure.
// Skips alone are still success.
func finishBatch(result repoops.Result) {
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "failed: %s: %s\n", e.RepoName, e.Message)
	}
	for _, s := range result.Skipped {
		if s.Context != "" {
			fmt.Printf("skipped %s (%s): %s\n", s.GroupName, s.Reason, s.Context)
		} else {
			fmt.Printf("skipped %s (%s)\n", s.GroupName, s.Reason)
		}
	}
	if !result.AllOK() {
		os.Exit(1)
	}
}

func init() {
	reposCloneCmd.Flags().String("target-dir", "", "directory to clone into")
	reposCloneCmd.Flags().String("layout", "", "clone layout: flat, by_team, by_task")

	reposCmd.AddCommand(reposCreateCmd)
	reposCmd.AddCommand(reposCloneCmd)
	reposCmd.AddCommand(reposDeleteCmd)
}
