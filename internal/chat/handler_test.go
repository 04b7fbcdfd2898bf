package chat

import (
	"strings"
	"testing"
)

type fakeBroadcaster struct {
	sent []OutgoingChat
}

func (f *fakeBroadcaster) BroadcastChat(msg OutgoingChat) {
	f.sent = append(f.sent, msg)
}

type fakeNamer struct {
	names map[string]string
}

func (f *fakeNamer) PlayerName(id string) (string, bool) {
	n, ok := f.names[id]
	return n, ok
}

func TestProcessChatRelaysWithResolvedName(t *testing.T) {
	bc := &fakeBroadcaster{}
	namer := &fakeNamer{names: map[string]string{"p1": "Driftwood"}}
	h := NewHandler(bc, namer)

	h.ProcessChat(IncomingChat{PlayerID: "p1", Text: "hello there", Mode: ModeLobby})

	if len(bc.sent) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(bc.sent))
	}
	got := bc.sent[0]
	if got.FromName != "Driftwood" {
		t.Errorf("FromName = %q, want Driftwood", got.FromName)
	}
	if got.Text != "hello there" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Mode != "lobby" {
		t.Errorf("Mode = %q, want lobby", got.Mode)
	}
	if got.IsTusk {
		t.Error("player chat should not be marked IsTusk")
	}
}

func TestProcessChatDropsBlankText(t *testing.T) {
	bc := &fakeBroadcaster{}
	h := NewHandler(bc, nil)

	h.ProcessChat(IncomingChat{PlayerID: "p1", Text: "   ", Mode: ModeGlobal})

	if len(bc.sent) != 0 {
		t.Fatalf("expected blank text to be dropped, got %d broadcasts", len(bc.sent))
	}
}

func TestProcessChatTruncatesLongText(t *testing.T) {
	bc := &fakeBroadcaster{}
	h := NewHandler(bc, nil)

	h.ProcessChat(IncomingChat{PlayerID: "p1", Text: strings.Repeat("x", 500), Mode: ModeGlobal})

	if len(bc.sent) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(bc.sent))
	}
	if len(bc.sent[0].Text) != maxChatLength {
		t.Errorf("Text length = %d, want %d", len(bc.sent[0].Text), maxChatLength)
	}
}

func TestProcessChatFallsBackToPlayerIDWithoutNamer(t *testing.T) {
	bc := &fakeBroadcaster{}
	h := NewHandler(bc, nil)

	h.ProcessChat(IncomingChat{PlayerID: "p9", Text: "hi", Mode: ModeProximity})

	if len(bc.sent) != 1 || bc.sent[0].FromName != "p9" {
		t.Fatalf("expected FromName to fall back to player id, got %+v", bc.sent)
	}
}

func TestAnnounceTerritoryCaptured(t *testing.T) {
	bc := &fakeBroadcaster{}
	h := NewHandler(bc, nil)

	h.Announce(TuskTerritoryCaptured, "Rust", "cluster-3")

	if len(bc.sent) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(bc.sent))
	}
	got := bc.sent[0]
	if !got.IsTusk {
		t.Error("Announce should mark IsTusk")
	}
	if got.Mode != "global" {
		t.Errorf("Mode = %q, want global", got.Mode)
	}
	if !strings.Contains(got.Text, "Rust") || !strings.Contains(got.Text, "cluster-3") {
		t.Errorf("announcement text missing args: %q", got.Text)
	}
}

func TestModeFromStringRoundTrip(t *testing.T) {
	cases := map[string]Mode{
		"lobby":     ModeLobby,
		"proximity": ModeProximity,
		"global":    ModeGlobal,
		"garbage":   ModeGlobal,
	}
	for s, want := range cases {
		if got := ModeFromString(s); got != want {
			t.Errorf("ModeFromString(%q) = %v, want %v", s, got, want)
		}
	}
}
