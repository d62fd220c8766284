// Package notify surfaces init-script outcomes outside the application,
// on the desktop and in Slack.
package notify

import (
	"fmt"

	"github.com/automaker/automaker/internal/events"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	Branch  string // Optional branch reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// EventBridge converts init-completed events into notifications. It plugs
// into the event hub like any other subscriber and ignores started/output
// events.
type EventBridge struct {
	sink Notifier
}

// NewEventBridge creates a bridge delivering to sink
func NewEventBridge(sink Notifier) *EventBridge {
	return &EventBridge{sink: sink}
}

// Publish implements events.Notifier
func (b *EventBridge) Publish(e events.Event) error {
	if e.Type != events.TypeInitCompleted {
		return nil
	}
	done, ok := e.Data.(events.InitCompleted)
	if !ok {
		return nil
	}

	n := Notification{Branch: done.Branch}
	if done.Success {
		n.Type = NotifySuccess
		n.Title = "Worktree init finished"
		n.Message = fmt.Sprintf("Init script for %s completed", done.Branch)
	} else {
		n.Type = NotifyError
		n.Title = "Worktree init failed"
		n.Message = fmt.Sprintf("Init script for %s failed: %s", done.Branch, done.Error)
	}
	return b.sink.Send(n)
}
