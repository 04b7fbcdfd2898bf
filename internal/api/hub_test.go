package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tankarena/server/internal/chat"
)

func TestHubBroadcastChatFansOutToRegisteredClients(t *testing.T) {
	h := NewHub(mockEngine{}, nil)
	go h.Run()

	c := &wsClient{send: make(chan []byte, 4)}
	h.register <- c
	// give Run's select loop a moment to process the registration
	time.Sleep(10 * time.Millisecond)

	if got := h.ClientCount(); got != 1 {
		t.Fatalf("ClientCount = %d, want 1", got)
	}

	h.BroadcastChat(chat.OutgoingChat{FromName: "Driftwood", Text: "hello", Mode: "lobby"})

	select {
	case msg := <-c.send:
		var decoded struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if decoded.Type != "chat" || decoded.Text != "hello" {
			t.Fatalf("unexpected broadcast payload: %+v", decoded)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast chat message")
	}
}

func TestHubEmitFansOutToEveryClient(t *testing.T) {
	h := NewHub(mockEngine{}, nil)
	go h.Run()

	c := &wsClient{send: make(chan []byte, 4)}
	h.register <- c
	time.Sleep(10 * time.Millisecond)

	h.Emit("player-joined", struct {
		PlayerID string `json:"playerId"`
	}{PlayerID: "p1"})

	select {
	case msg := <-c.send:
		var decoded struct {
			Type     string `json:"type"`
			PlayerID string `json:"playerId"`
		}
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("unmarshal emitted event: %v", err)
		}
		if decoded.Type != "player-joined" || decoded.PlayerID != "p1" {
			t.Fatalf("unexpected emitted payload: %+v", decoded)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for emitted event")
	}
}

func TestHubSendTargetsOnlyTheBoundPlayer(t *testing.T) {
	h := NewHub(mockEngine{}, nil)
	go h.Run()

	target := &wsClient{send: make(chan []byte, 4)}
	other := &wsClient{send: make(chan []byte, 4)}
	h.register <- target
	h.register <- other
	time.Sleep(10 * time.Millisecond)

	h.bindPlayer("p1", target)
	h.Send("p1", "tip-confirmed", struct {
		Amount int `json:"amount"`
	}{Amount: 40})

	select {
	case msg := <-target.send:
		var decoded struct {
			Type   string `json:"type"`
			Amount int    `json:"amount"`
		}
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("unmarshal send: %v", err)
		}
		if decoded.Type != "tip-confirmed" || decoded.Amount != 40 {
			t.Fatalf("unexpected send payload: %+v", decoded)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for targeted send")
	}

	select {
	case msg := <-other.send:
		t.Fatalf("unrelated client should not receive a targeted send, got %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubSendIsNoopForUnknownPlayer(t *testing.T) {
	h := NewHub(mockEngine{}, nil)
	h.Send("ghost", "tip-failed", struct{}{})
}

func TestHubAnnounceMarksTuskMessage(t *testing.T) {
	h := NewHub(mockEngine{}, nil)
	go h.Run()

	c := &wsClient{send: make(chan []byte, 4)}
	h.register <- c
	time.Sleep(10 * time.Millisecond)

	h.Announce(chat.TuskCommanderElected, "Driftwood", "Rust")

	select {
	case msg := <-c.send:
		var decoded struct {
			IsTusk bool   `json:"isTusk"`
			Text   string `json:"text"`
		}
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("unmarshal announce: %v", err)
		}
		if !decoded.IsTusk {
			t.Error("expected isTusk to be true")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for announce message")
	}
}
