package msgqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("Timed out waiting for condition")
}

func TestQueue_ProcessesInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	q := New(func(ctx context.Context, msg *Message) error {
		mu.Lock()
		seen = append(seen, msg.Text)
		mu.Unlock()
		return nil
	}, zerolog.Nop())
	defer q.Close()

	q.Enqueue("first")
	q.Enqueue("second")
	q.Enqueue("third")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "second", "third"}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Expected message %d to be %q, got %q", i, want[i], seen[i])
		}
	}
}

func TestQueue_SingleMessageProcessing(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	q := New(func(ctx context.Context, msg *Message) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}, zerolog.Nop())
	defer q.Close()

	for i := 0; i < 5; i++ {
		q.Enqueue("msg")
	}

	waitFor(t, 2*time.Second, func() bool { return q.Length() == 0 })

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight != 1 {
		t.Errorf("Expected at most 1 message processing at a time, got %d", maxInFlight)
	}
}

func TestQueue_HandlerErrorIsSwallowed(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	q := New(func(ctx context.Context, msg *Message) error {
		mu.Lock()
		seen = append(seen, msg.Text)
		mu.Unlock()
		if msg.Text == "bad" {
			return errors.New("handler failure")
		}
		return nil
	}, zerolog.Nop())
	defer q.Close()

	q.Enqueue("bad")
	q.Enqueue("good")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	})
}

func TestQueue_RemoveOnlyTouchesQueued(t *testing.T) {
	started := make(chan string, 1)
	release := make(chan struct{})

	q := New(func(ctx context.Context, msg *Message) error {
		started <- msg.ID
		<-release
		return nil
	}, zerolog.Nop())
	defer q.Close()

	id1 := q.Enqueue("processing")
	var currentID string
	select {
	case currentID = <-started:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for processing to start")
	}
	if currentID != id1 {
		t.Fatalf("Expected first message processing, got %s", currentID)
	}

	id2 := q.Enqueue("queued")

	if q.Remove(id1) {
		t.Error("Expected Remove to refuse the processing message")
	}
	if !q.Remove(id2) {
		t.Error("Expected Remove to drop the queued message")
	}
	if q.Remove(id2) {
		t.Error("Expected second Remove of the same ID to fail")
	}

	close(release)
	waitFor(t, 2*time.Second, func() bool { return q.Length() == 0 })
}

func TestQueue_ClearQueuedKeepsCurrent(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	q := New(func(ctx context.Context, msg *Message) error {
		started <- struct{}{}
		<-release
		return nil
	}, zerolog.Nop())
	defer q.Close()

	q.Enqueue("processing")
	<-started
	q.Enqueue("queued one")
	q.Enqueue("queued two")

	if dropped := q.ClearQueued(); dropped != 2 {
		t.Errorf("Expected 2 dropped messages, got %d", dropped)
	}
	if !q.Processing() {
		t.Error("Expected current message to keep processing after clear")
	}

	close(release)
	waitFor(t, 2*time.Second, func() bool { return q.Length() == 0 })
}

func TestQueue_EnqueueAfterCloseIsRejected(t *testing.T) {
	q := New(func(ctx context.Context, msg *Message) error { return nil }, zerolog.Nop())
	q.Close()

	if id := q.Enqueue("late"); id != "" {
		t.Errorf("Expected empty ID after close, got %s", id)
	}
}
