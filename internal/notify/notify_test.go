package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/automaker/automaker/internal/events"
)

func TestSlackMessage_Build(t *testing.T) {
	msg := SlackMessage{
		Text: "Worktree init finished",
		Attachments: []SlackAttachment{
			{
				Color: "good",
				Title: "feature/login",
				Text:  "Init script completed",
			},
		},
	}

	payload, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	if len(payload) == 0 {
		t.Error("Payload should not be empty")
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	// Mock Slack server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "Test",
		Message: "Test message",
		Type:    NotifyInfo,
	})

	if err != nil {
		t.Errorf("Send failed: %v", err)
	}
}

func TestSlackNotifier_EmptyWebhookIsDisabled(t *testing.T) {
	notifier := NewSlackNotifier("")
	if err := notifier.Send(Notification{Title: "Test"}); err != nil {
		t.Errorf("Send with empty webhook should be a no-op, got %v", err)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		got := SlackColor(tt.typ)
		if got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestMultiNotifier(t *testing.T) {
	var called []string

	mock1 := &mockNotifier{name: "mock1", calls: &called}
	mock2 := &mockNotifier{name: "mock2", calls: &called}

	multi := NewMultiNotifier(mock1, mock2)
	multi.Send(Notification{Title: "Test"})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(called))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
	last  Notification
}

func (m *mockNotifier) Send(n Notification) error {
	*m.calls = append(*m.calls, m.name)
	m.last = n
	return nil
}

func TestEventBridge_Success(t *testing.T) {
	var calls []string
	sink := &mockNotifier{name: "sink", calls: &calls}
	bridge := NewEventBridge(sink)

	err := bridge.Publish(events.Event{
		Type: events.TypeInitCompleted,
		Data: events.InitCompleted{Branch: "feature-x", Success: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(calls) != 1 {
		t.Fatalf("sink calls = %d, want 1", len(calls))
	}
	if sink.last.Type != NotifySuccess {
		t.Errorf("Type = %v, want NotifySuccess", sink.last.Type)
	}
	if sink.last.Branch != "feature-x" {
		t.Errorf("Branch = %q, want feature-x", sink.last.Branch)
	}
}

func TestEventBridge_Failure(t *testing.T) {
	var calls []string
	sink := &mockNotifier{name: "sink", calls: &calls}
	bridge := NewEventBridge(sink)

	bridge.Publish(events.Event{
		Type: events.TypeInitCompleted,
		Data: events.InitCompleted{Branch: "feature-x", Success: false, Error: "Exit code: 7"},
	})

	if sink.last.Type != NotifyError {
		t.Errorf("Type = %v, want NotifyError", sink.last.Type)
	}
	if !strings.Contains(sink.last.Message, "Exit code: 7") {
		t.Errorf("Message = %q, want it to carry the failure reason", sink.last.Message)
	}
}

func TestEventBridge_IgnoresNonTerminalEvents(t *testing.T) {
	var calls []string
	sink := &mockNotifier{name: "sink", calls: &calls}
	bridge := NewEventBridge(sink)

	bridge.Publish(events.Event{Type: events.TypeInitStarted, Data: events.InitStarted{Branch: "b"}})
	bridge.Publish(events.Event{Type: events.TypeInitOutput, Data: events.InitOutput{Branch: "b", Content: "x"}})

	if len(calls) != 0 {
		t.Errorf("sink calls = %d, want 0 for non-terminal events", len(calls))
	}
}
