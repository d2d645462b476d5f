package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edulab/reporover/internal/export"
	"github.com/edulab/reporover/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export teams, coverage reports, and group sets",
}

// outputFile opens the --output target, defaulting to stdout.
func outputFile(cmd *cobra.Command) (*os.File, func()) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" || path == "-" {
		return os.Stdout, func() {}
	}
	f, err := os.Create(path)
	if err != nil {
		FatalError("%v", err)
	}
	return f, func() { f.Close() }
}

var exportTeamsCmd = &cobra.Command{
	Use:   "teams <assignment>",
	Short: "Write the assignment's teams as YAML",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		assignment := a.findAssignment(args[0])

		doc, err := export.Teams(a.roster, assignment.ID, a.identityMode())
		if err != nil {
			FatalError("%v", err)
		}
		out, done := outputFile(cmd)
		defer done()
		if err := export.WriteTeamsYAML(out, doc); err != nil {
			FatalError("%v", err)
		}
	},
}

var exportCoverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Report which students each assignment reaches",
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		report := export.Coverage(a.roster)

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "csv":
			out, done := outputFile(cmd)
			defer done()
			if err := export.WriteCoverageCSV(out, report); err != nil {
				FatalError("%v", err)
			}
		case "xlsx":
			path, _ := cmd.Flags().GetString("output")
			if path == "" || path == "-" {
				FatalError("--output is required for xlsx")
			}
			out, done := outputFile(cmd)
			defer done()
			if err := export.WriteCoverageXLSX(out, report); err != nil {
				FatalError("%v", err)
			}
		default:
			fmt.Println(ui.RenderCoverage(report, ui.GetWidth()))
		}
	},
}

var exportGroupSetCmd = &cobra.Command{
	Use:   "group-set <group-set>",
	Short: "Write a group set (or an assignment's editable layout) as CSV",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		out, done := outputFile(cmd)
		defer done()

		// --assignment switches to the editable per-assignment layout with
		// round-trip group IDs.
		if ref, _ := cmd.Flags().GetString("assignment"); ref != "" {
			assignment := a.findAssignment(ref)
			if err := export.WriteGroupEditCSV(out, a.roster, assignment.ID); err != nil {
				FatalError("%v", err)
			}
			return
		}

		if len(args) == 0 {
			FatalError("a group set or --assignment is required")
		}
		gs := a.findGroupSet(args[0])
		if err := export.WriteGroupSetCSV(out, a.roster, gs.ID); err != nil {
			FatalError("%v", err)
		}
	},
}

func init() {
	exportTeamsCmd.Flags().String("output", "", "write to this file instead of stdout")
	exportCoverageCmd.Flags().String("output", "", "write to this file instead of stdout")
	exportCoverageCmd.Flags().String("format", "", "output format: csv or xlsx (default: table)")
	exportGroupSetCmd.Flags().String("output", "", "write to this file instead of stdout")
	exportGroupSetCmd.Flags().String("assignment", "", "export this assignment's editable group layout")

	exportCmd.AddCommand(exportTeamsCmd)
	exportCmd.AddCommand(exportCoverageCmd)
	exportCmd.AddCommand(exportGroupSetCmd)
}
