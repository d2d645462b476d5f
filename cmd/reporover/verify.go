package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check platform and LMS connectivity for the current profile",
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd)
		failed := false

		if a.profile.Git.BaseURL != "" {
			p := a.platformClient()
			if err := p.VerifySettings(rootCtx); err != nil {
				fmt.Printf("platform: FAILED: %v\n", err)
				failed = true
			} else {
				fmt.Printf("platform: ok (%s, org %s)\n", p.BaseURL(), p.OrgName())
			}
		} else {
			fmt.Println("platform: not configured")
		}

		if a.profile.LMS.BaseURL != "" {
			result := verifyLMS(a)
			if result.Success {
				fmt.Printf("lms: ok (%s: %s)\n", result.LmsType, result.Message)
			} else {
				fmt.Printf("lms: FAILED: %s\n", result.Message)
				failed = true
			}
		} else {
			fmt.Println("lms: not configured")
		}

		if failed {
			FatalError("verification failed")
		}
	},
}
