package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "automaker",
		Short: "Automaker - worktree automation for feature branches",
		Long: `Automaker creates isolated git worktrees for feature branches and runs
each project's one-time init script (.automaker/worktree-init.sh) inside
them, streaming output live and recording outcomes so a script never runs
twice for the same branch.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
