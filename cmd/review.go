package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// reviewCmd is an explicit alias for the default action, so scripts can
// pin the surface they launch.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Open the pending-change review surface",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReview(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
