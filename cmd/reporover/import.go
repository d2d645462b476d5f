package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/edulab/reporover/internal/csvimport"
	"github.com/edulab/reporover/internal/httpclient"
	"github.com/edulab/reporover/internal/lms"
	"github.com/edulab/reporover/internal/lmsops"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import students and groups from CSV files or the LMS",
}

var importStudentsCmd = &cobra.Command{
	Use:   "students <file.csv>",
	Short: "Merge a students CSV into the roster",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)

		f, err := os.Open(args[0])
		if err != nil {
			FatalError("%v", err)
		}
		defer f.Close()

		parsed, err := csvimport.ParseStudents(f)
		if err != nil {
			FatalError("%v", err)
		}
		summary := csvimport.ApplyStudents(a.roster, parsed, filepath.Base(args[0]))
		a.save()
		fmt.Printf("students: %d added, %d updated, %d unchanged\n",
			summary.Added, summary.Updated, summary.Unchanged)
	},
}

var importGroupSetCmd = &cobra.Command{
	Use:   "group-set <file.csv>",
	Short: "Import or reimport a group set from CSV",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)

		f, err := os.Open(args[0])
		if err != nil {
			FatalError("%v", err)
		}
		defer f.Close()

		parsed, err := csvimport.ParseGroupSet(f)
		if err != nil {
			FatalError("%v", err)
		}

		setName, _ := cmd.Flags().GetString("name")
		if setName == "" {
			setName = filepath.Base(args[0])
		}
		groupSetID, _ := cmd.Flags().GetString("group-set")
		if groupSetID != "" {
			groupSetID = a.findGroupSet(groupSetID).ID
		}

		abs, _ := filepath.Abs(args[0])
		result, err := csvimport.Reconcile(a.roster, groupSetID, setName, parsed, csvimport.Source{
			Filename: filepath.Base(args[0]),
			Path:     abs,
		})
		if err != nil {
			FatalError("%v", err)
		}
		a.save()

		fmt.Println(groupSetSummary(result))
		if result.TotalMissing > 0 {
			fmt.Printf("warning: %d emails not on the roster: %v\n",
				result.TotalMissing, result.MissingEmails)
		}
	},
}

var importGroupEditCmd = &cobra.Command{
	Use:   "group-edit <file.csv>",
	Short: "Reimport an edited per-assignment group export",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		ref, _ := cmd.Flags().GetString("assignment")
		if ref == "" {
			FatalError("--assignment is required")
		}
		assignment := a.findAssignment(ref)

		f, err := os.Open(args[0])
		if err != nil {
			FatalError("%v", err)
		}
		defer f.Close()

		edit, err := csvimport.ParseGroupEdit(f, a.roster)
		if err != nil {
			FatalError("%v", err)
		}
		result, err := csvimport.ApplyGroupEdit(a.roster, assignment.GroupSetID, edit)
		if err != nil {
			FatalError("%v", err)
		}
		a.save()
		fmt.Printf("%s mode: %d groups upserted, %d removed\n",
			edit.Mode, result.GroupsUpserted, len(result.RemovedGroupIDs))
	},
}

var importLmsStudentsCmd = &cobra.Command{
	Use:   "lms-students",
	Short: "Import the course roster from the LMS",
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		client := lmsClient(a)

		summary, err := lmsops.ImportStudents(rootCtx, client, a.profile.LMS.CourseID,
			a.roster, a.profile.LMS.Kind)
		if err != nil {
			FatalError("%v", err)
		}
		a.save()
		fmt.Printf("students: %d added, %d updated, %d unchanged", summary.Added, summary.Updated, summary.Unchanged)
		if summary.MissingEmail > 0 {
			fmt.Printf(", %d without email", summary.MissingEmail)
		}
		fmt.Println()
	},
}

var importLmsGroupsCmd = &cobra.Command{
	Use:   "lms-groups <category-id>",
	Short: "Import an LMS group category as a group set",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		client := lmsClient(a)

		setName, _ := cmd.Flags().GetString("name")
		pattern, _ := cmd.Flags().GetString("pattern")
		cfg := lmsops.GroupImportConfig{
			CategoryID: args[0],
			SetName:    setName,
			Filter:     lmsops.GroupFilter{Kind: lmsops.FilterAll},
		}
		if pattern != "" {
			cfg.Filter = lmsops.GroupFilter{Kind: lmsops.FilterPattern, Pattern: pattern}
		}

		result, err := lmsops.ImportGroups(rootCtx, client, a.profile.LMS.CourseID,
			a.roster, cfg, lmsProgress)
		if err != nil {
			FatalError("%v", err)
		}
		a.save()
		fmt.Printf("group set %s: %d groups, %d members linked\n",
			result.GroupSetID, result.GroupsImported, result.MembersLinked)
	},
}

func groupSetSummary(result csvimport.GroupSetImportResult) string {
	return fmt.Sprintf("group set %s: %d groups upserted, %d removed",
		result.GroupSetID, len(result.GroupsUpserted), len(result.RemovedGroupIDs))
}

func lmsClient(a *app) lms.Client {
	client, err := lms.NewClient(a.lmsConnection(), httpclient.NewDefault(), lmsProgress)
	if err != nil {
		FatalError("%v", err)
	}
	return client
}

func verifyLMS(a *app) lmsops.VerifyResult {
	return lmsops.VerifyConnection(rootCtx, a.lmsConnection(), httpclient.NewDefault())
}

// lmsProgress keeps long LMS fetches from looking stuck.
func lmsProgress(e lms.ProgressEvent) {
	switch e.Kind {
	case lms.ProgressFetchingGroupMembers:
		fmt.Printf("fetching members [%d/%d] %s\n", e.Current, e.Total, e.GroupName)
	default:
		if e.Count > 0 {
			fmt.Printf("%s: %d\n", e.Kind, e.Count)
		}
	}
}

func init() {
	importGroupSetCmd.Flags().String("name", "", "name for a newly created group set")
	importGroupSetCmd.Flags().String("group-set", "", "existing group set to reimport into")
	importGroupEditCmd.Flags().String("assignment", "", "assignment whose groups are being edited")
	importLmsGroupsCmd.Flags().String("name", "", "name for the imported group set")
	importLmsGroupsCmd.Flags().String("pattern", "", "only import groups matching this pattern")

	importCmd.AddCommand(importStudentsCmd)
	importCmd.AddCommand(importGroupSetCmd)
	importCmd.AddCommand(importGroupEditCmd)
	importCmd.AddCommand(importLmsStudentsCmd)
	importCmd.AddCommand(importLmsGroupsCmd)
}
