package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/config"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/bridge"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/editorhost"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/pending"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/reconcile"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/uncommitted"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/watch"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/tui"
)

var workspaceFlag string

var rootCmd = &cobra.Command{
	Use:   "blade",
	Short: "Blade is the review shell for AI-proposed edits",
	Long: `Blade renders the pending-change review surface of the editor:
AI-proposed edits arrive as diffs, and each one can be accepted or
rejected per change, per hunk, or in bulk. Already-applied edits are
tracked until confirmed or reverted.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReview(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "workspace root (defaults to the current directory)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// resolveWorkspace picks the workspace root: flag, then last saved, then
// the current directory.
func resolveWorkspace() (string, error) {
	if workspaceFlag != "" {
		return config.NormalizeWorkspacePath(workspaceFlag), nil
	}
	if s, err := config.Load(); err == nil && s.LastWorkspace != "" {
		return s.LastWorkspace, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to detect workspace: %w", err)
	}
	return config.NormalizeWorkspacePath(wd), nil
}

// wireApp assembles the shared state over a local transport rooted at
// the workspace.
func wireApp(workspacePath string) (*reconcile.Controller, *events.Bus, *bridge.LocalTransport) {
	bridge.SetWorkspaceRoot(workspacePath)
	bus := events.NewBus()
	transport := bridge.NewLocalTransport(workspacePath)
	client := bridge.NewClient(transport, bus)
	store := pending.NewStore(bus)
	tracker := uncommitted.NewTracker(client)
	host := editorhost.NewHost()
	controller := reconcile.NewController(client, store, tracker, host, bus)
	controller.Start()
	client.Start()
	return controller, bus, transport
}

func runReview() error {
	workspacePath, err := resolveWorkspace()
	if err != nil {
		return err
	}

	settings, err := config.Load()
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
		settings = config.DefaultSettings()
	}
	settings.LastWorkspace = workspacePath
	if err := config.Save(settings); err != nil {
		fmt.Printf("Warning: failed to persist settings: %v\n", err)
	}

	controller, bus, transport := wireApp(workspacePath)
	defer transport.Close()
	defer controller.Stop()

	watcher, err := watch.New(workspacePath, bus)
	if err != nil {
		fmt.Printf("Warning: file watching disabled: %v\n", err)
	} else {
		defer watcher.Close()
	}

	model := tui.New(controller, bus, workspacePath)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run review UI: %w", err)
	}
	return nil
}
