package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var approveAllFlag bool

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List uncommitted AI edits in the workspace",
	Run: func(cmd *cobra.Command, args []string) {
		workspacePath, err := resolveWorkspace()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		controller, _, transport := wireApp(workspacePath)
		defer transport.Close()
		defer controller.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if approveAllFlag {
			if err := controller.AcceptAll(ctx); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
		}

		if err := controller.Tracker().Refresh(ctx); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		list := controller.Tracker().All()
		if len(list) == 0 {
			fmt.Println("No uncommitted changes.")
			return
		}
		for _, c := range list {
			fmt.Printf("%s  +%d -%d\n", c.FilePath, c.AddedLines, c.RemovedLines)
		}
	},
}

func init() {
	changesCmd.Flags().BoolVar(&approveAllFlag, "approve-all", false, "approve every pending change before listing")
	rootCmd.AddCommand(changesCmd)
}
