package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/automaker/automaker/internal/events"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream init script events from a running server",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "server websocket URL (defaults to the configured server)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	url := watchURL
	if url == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url = "ws://" + cfg.Addr() + "/api/ws"
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", url)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("connection closed: %w", err)
		}
		printEvent(message)
	}
}

// wireEvent mirrors events.Event with a raw payload so each type can be
// decoded after the envelope
type wireEvent struct {
	Type  events.Type     `json:"type"`
	RunID string          `json:"runId,omitempty"`
	Data  json.RawMessage `json:"data"`
}

func printEvent(message []byte) {
	var e wireEvent
	if err := json.Unmarshal(message, &e); err != nil {
		return
	}

	switch e.Type {
	case events.TypeInitStarted:
		var data events.InitStarted
		if json.Unmarshal(e.Data, &data) == nil {
			fmt.Printf("%s %s (%s)\n", runningStyle.Render("started"), data.Branch, data.WorktreePath)
		}
	case events.TypeInitOutput:
		var data events.InitOutput
		if json.Unmarshal(e.Data, &data) == nil {
			if data.Stream == "stderr" {
				fmt.Fprint(os.Stderr, data.Content)
			} else {
				fmt.Print(data.Content)
			}
		}
	case events.TypeInitCompleted:
		var data events.InitCompleted
		if json.Unmarshal(e.Data, &data) == nil {
			if data.Success {
				fmt.Printf("%s %s\n", successStyle.Render("success"), data.Branch)
			} else {
				fmt.Printf("%s %s: %s\n", failedStyle.Render("failed"), data.Branch, data.Error)
			}
		}
	case events.TypeScriptChanged:
		var data events.ScriptChanged
		if json.Unmarshal(e.Data, &data) == nil {
			state := "removed"
			if data.Present {
				state = "present"
			}
			fmt.Printf("%s init script %s in %s\n", dimStyle.Render("script"), state, data.ProjectPath)
		}
	}
}
