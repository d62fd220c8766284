package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/automaker/automaker/internal/config"
	"github.com/automaker/automaker/internal/events"
	"github.com/automaker/automaker/internal/notify"
	"github.com/automaker/automaker/internal/observer"
	"github.com/automaker/automaker/internal/platform"
	"github.com/automaker/automaker/internal/runner"
	"github.com/automaker/automaker/internal/worktree"
	"github.com/automaker/automaker/internal/worktreestore"
	"github.com/automaker/automaker/web/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the automaker API server",
	Long: `Starts the HTTP API. Creating a worktree through the API triggers the
project's init script; its output streams to /api/events (SSE) and /api/ws
(WebSocket).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := worktreestore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	// A previous process may have died mid-run
	if n, err := store.RecoverDangling(); err != nil {
		log.Printf("Warning: recovering dangling runs: %v", err)
	} else if n > 0 {
		log.Printf("Marked %d interrupted init run(s) as failed", n)
	}

	hub := events.NewHub()

	var sinks []notify.Notifier
	if cfg.Notifications.Desktop {
		sinks = append(sinks, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		sinks = append(sinks, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	notifier := events.NewMultiNotifier(hub,
		notify.NewEventBridge(notify.NewMultiNotifier(sinks...)))

	run := runner.New(store, notifier, platform.Host{})
	worktrees := worktree.NewManager(cfg.General.WorktreeDir, run)

	watcher, err := observer.NewScriptWatcher(func(projectPath string, present bool) {
		hub.Publish(events.Event{
			Type: events.TypeScriptChanged,
			Data: events.ScriptChanged{ProjectPath: projectPath, Present: present},
		})
	})
	if err != nil {
		return err
	}
	defer watcher.Stop()

	// Watch every project we already know about
	records, err := store.List(worktreestore.ListOptions{})
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, rec := range records {
		if !seen[rec.ProjectPath] {
			seen[rec.ProjectPath] = true
			if err := watcher.AddProject(rec.ProjectPath); err != nil {
				log.Printf("Warning: watching %s: %v", rec.ProjectPath, err)
			}
		}
	}
	watcher.Start(cmd.Context())

	server := api.NewServer(store, worktrees, hub, cfg.Addr())
	log.Printf("automaker listening on %s", cfg.Addr())
	return server.Start()
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}
