// Command reporover manages classroom Git repositories: it keeps a course
// roster in sync with an LMS or CSV files, resolves assignments to groups,
// and bulk-creates, clones, and deletes the per-group repositories on a
// Git hosting platform.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edulab/reporover/internal/config"
	"github.com/edulab/reporover/internal/logging"
	"github.com/edulab/reporover/internal/persist"
)

var rootCtx = context.Background()

var rootCmd = &cobra.Command{
	Use:           "reporover",
	Short:         "Classroom repository orchestration",
	Long:          "reporover keeps a course roster, its groups, and the per-group Git repositories in sync.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// FatalError prints a formatted error to stderr and exits nonzero.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().String("profile", "", "profile to operate on (default: active profile)")
	rootCmd.PersistentFlags().Bool("verbose", false, "mirror warnings to stderr")
	rootCmd.PersistentFlags().Bool("yes", false, "skip confirmation prompts")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	if err := config.Initialize(); err != nil {
		FatalError("%v", err)
	}

	verbose := config.GetBool("verbose")
	for _, arg := range os.Args[1:] {
		if arg == "--verbose" {
			verbose = true
		}
	}
	logging.Setup(persist.ConfigDir(), verbose)

	if err := rootCmd.Execute(); err != nil {
		FatalError("%v", err)
	}
}
