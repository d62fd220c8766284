package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/automaker/automaker/internal/domain"
	"github.com/automaker/automaker/internal/worktreestore"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var listProject string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked worktrees and their init script status",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listProject, "project", "", "only show worktrees of this project")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := worktreestore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(worktreestore.ListOptions{ProjectPath: listProject})
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No worktrees tracked")
		return nil
	}

	for _, rec := range records {
		meta := rec.Metadata
		age := humanize.Time(meta.CreatedAt)
		fmt.Printf("%-40s %-12s %s %s\n",
			meta.Branch,
			statusLabel(meta.InitScriptStatus),
			dimStyle.Render(age),
			dimStyle.Render(rec.ProjectPath),
		)
		if meta.InitScriptError != "" {
			fmt.Printf("  %s\n", failedStyle.Render(meta.InitScriptError))
		}
	}
	return nil
}

func statusLabel(s domain.InitScriptStatus) string {
	switch s {
	case domain.InitScriptSuccess:
		return successStyle.Render("success")
	case domain.InitScriptFailed:
		return failedStyle.Render("failed")
	case domain.InitScriptRunning:
		return runningStyle.Render("running")
	default:
		return dimStyle.Render("no script")
	}
}
