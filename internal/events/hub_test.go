package events

import (
	"errors"
	"testing"
	"time"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	want := Event{Type: TypeInitStarted, RunID: "run-1"}
	if err := hub.Publish(want); err != nil {
		t.Fatal(err)
	}

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Type != want.Type || got.RunID != want.RunID {
				t.Errorf("subscriber %d got %+v, want %+v", i, got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	ch, cancel := hub.Subscribe()
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received an event on a cancelled subscription")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub() // Run never started, broadcast buffer fills up

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(Event{Type: TypeInitOutput})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a saturated hub")
	}
}

type countingNotifier struct {
	count int
	err   error
}

func (n *countingNotifier) Publish(e Event) error {
	n.count++
	return n.err
}

func TestMultiNotifierPublishesToAll(t *testing.T) {
	a := &countingNotifier{}
	b := &countingNotifier{}
	multi := NewMultiNotifier(a, b)

	if err := multi.Publish(Event{Type: TypeInitCompleted}); err != nil {
		t.Fatal(err)
	}
	if a.count != 1 || b.count != 1 {
		t.Errorf("counts = %d, %d, want 1, 1", a.count, b.count)
	}
}

func TestMultiNotifierContinuesAfterError(t *testing.T) {
	failing := &countingNotifier{err: errors.New("sink down")}
	healthy := &countingNotifier{}
	multi := NewMultiNotifier(failing, healthy)

	err := multi.Publish(Event{Type: TypeInitCompleted})
	if err == nil {
		t.Error("expected the sink error to surface")
	}
	if healthy.count != 1 {
		t.Errorf("healthy sink count = %d, want 1", healthy.count)
	}
}
