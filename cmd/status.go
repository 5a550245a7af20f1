package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/gitpanel"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the workspace git summary",
	Run: func(cmd *cobra.Command, args []string) {
		workspacePath, err := resolveWorkspace()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		summary, err := gitpanel.Load(workspacePath)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !summary.IsGitRepo {
			fmt.Println("Not a git repository.")
			return
		}
		fmt.Printf("On branch %s\n", summary.CurrentBranch)
		if summary.IsClean {
			fmt.Println("Working tree clean.")
			return
		}
		for _, f := range summary.Files {
			fmt.Printf("  %-10s %s\n", f.Status, f.Path)
		}
		fmt.Printf("%d staged, %d modified, %d untracked\n",
			summary.StagedCount, summary.ModifiedCount, summary.UntrackedCount)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
