// Package events defines the lifecycle events published by the init-script
// runner and the notifier plumbing that delivers them to observers.
package events

import "github.com/automaker/automaker/internal/domain"

// Type identifies the kind of lifecycle event
type Type string

const (
	TypeInitStarted   Type = "init-started"
	TypeInitOutput    Type = "init-output"
	TypeInitCompleted Type = "init-completed"

	// TypeScriptChanged reports init-script presence changes from the
	// filesystem watcher, not the runner
	TypeScriptChanged Type = "init-script-changed"
)

// Event is the envelope published to observers
type Event struct {
	Type  Type   `json:"type"`
	RunID string `json:"runId,omitempty"`
	Data  any    `json:"data"`
}

// InitStarted is published once the running record is written, before any output
type InitStarted struct {
	ProjectPath  string `json:"projectPath"`
	WorktreePath string `json:"worktreePath"`
	Branch       string `json:"branch"`
}

// InitOutput carries one chunk of script output. Chunks on the same stream
// arrive in order; no ordering holds across stdout and stderr.
type InitOutput struct {
	ProjectPath string              `json:"projectPath"`
	Branch      string              `json:"branch"`
	Stream      domain.OutputStream `json:"type"`
	Content     string              `json:"content"`
}

// InitCompleted is the single terminal event for an invocation
type InitCompleted struct {
	ProjectPath  string `json:"projectPath"`
	WorktreePath string `json:"worktreePath"`
	Branch       string `json:"branch"`
	Success      bool   `json:"success"`
	ExitCode     *int   `json:"exitCode,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ScriptChanged reports whether a project currently has an init script
type ScriptChanged struct {
	ProjectPath string `json:"projectPath"`
	Present     bool   `json:"present"`
}

// Notifier is the interface for delivering events to an observer
type Notifier interface {
	Publish(e Event) error
}

// MultiNotifier publishes to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that publishes to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Publish publishes the event to all notifiers, returning the last error
func (m *MultiNotifier) Publish(e Event) error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Publish(e); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier discards events (for testing or disabled observers)
type NoopNotifier struct{}

func (NoopNotifier) Publish(e Event) error { return nil }
