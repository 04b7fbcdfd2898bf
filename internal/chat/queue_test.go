package chat

import (
	"testing"
	"time"
)

func TestCommandQueueProcessesEnqueuedLines(t *testing.T) {
	bc := &fakeBroadcaster{}
	h := NewHandler(bc, nil)
	q := NewCommandQueue(h, QueueConfig{BufferSize: 8, Workers: 1})
	q.Start()
	defer q.Stop()

	for i := 0; i < 3; i++ {
		if !q.Enqueue(IncomingChat{PlayerID: "p1", Text: "hi", Mode: ModeLobby}) {
			t.Fatal("Enqueue returned false with room in the buffer")
		}
		// RateLimiter enforces a cooldown between a single user's messages;
		// space these out so all three are actually relayed.
		time.Sleep(600 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(bc.sent) < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if len(bc.sent) != 3 {
		t.Fatalf("expected 3 processed lines, got %d", len(bc.sent))
	}
	stats := q.Stats()
	if stats.Enqueued != 3 {
		t.Errorf("Enqueued = %d, want 3", stats.Enqueued)
	}
}

func TestCommandQueueDropsWhenFull(t *testing.T) {
	bc := &fakeBroadcaster{}
	h := NewHandler(bc, nil)
	// No Start(): nothing drains the channel, so it fills up immediately.
	q := NewCommandQueue(h, QueueConfig{BufferSize: 1, Workers: 1})

	if !q.Enqueue(IncomingChat{PlayerID: "p1", Text: "first"}) {
		t.Fatal("first enqueue should succeed")
	}
	if q.Enqueue(IncomingChat{PlayerID: "p2", Text: "second"}) {
		t.Fatal("second enqueue should be dropped once the buffer is full")
	}
	if q.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", q.Stats().Dropped)
	}
}
