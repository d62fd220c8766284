package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/automaker/automaker/internal/events"
	"github.com/automaker/automaker/internal/platform"
	"github.com/automaker/automaker/internal/runner"
	"github.com/automaker/automaker/internal/worktreestore"
)

var initRunCmd = &cobra.Command{
	Use:   "init-run <project-path> <worktree-path> <branch>",
	Short: "Run the init script for an existing worktree",
	Long: `Runs <project-path>/.automaker/worktree-init.sh inside the worktree and
records the outcome. A no-op when the project has no script or the script
already ran for this branch.`,
	Args: cobra.ExactArgs(3),
	RunE: runInitRun,
}

func init() {
	rootCmd.AddCommand(initRunCmd)
}

func runInitRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := worktreestore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	run := runner.New(store, consoleNotifier{}, platform.Host{})
	run.Run(args[0], args[1], args[2])
	run.Wait()
	return nil
}

// consoleNotifier mirrors the event stream onto the terminal
type consoleNotifier struct{}

func (consoleNotifier) Publish(e events.Event) error {
	switch data := e.Data.(type) {
	case events.InitStarted:
		fmt.Printf("Running init script for %s...\n", data.Branch)
	case events.InitOutput:
		if data.Stream == "stderr" {
			fmt.Fprint(os.Stderr, data.Content)
		} else {
			fmt.Print(data.Content)
		}
	case events.InitCompleted:
		if data.Success {
			fmt.Printf("Init script for %s succeeded\n", data.Branch)
		} else {
			fmt.Fprintf(os.Stderr, "Init script for %s failed: %s\n", data.Branch, data.Error)
		}
	}
	return nil
}
