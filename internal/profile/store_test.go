package profile

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "profiles.db"), time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadUnknownPlayerReturnsZeroValue(t *testing.T) {
	s := openTestStore(t)

	p, err := s.Load("nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.PlayerID != "nobody" || p.TotalCrypto != 0 || p.Badges != nil {
		t.Errorf("expected zero-value profile, got %+v", p)
	}
}

func TestStageThenFlushPersists(t *testing.T) {
	s := openTestStore(t)

	s.Stage(Profile{
		PlayerID:    "p1",
		DisplayName: "Driftwood",
		TotalCrypto: 420,
		Badges:      []string{"first-blood", "commander"},
		Title:       "Tankist",
		Kills:       3,
		Deaths:      1,
	})
	s.flush()

	got, err := s.Load("p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DisplayName != "Driftwood" || got.TotalCrypto != 420 || got.Kills != 3 || got.Deaths != 1 {
		t.Fatalf("loaded profile mismatch: %+v", got)
	}
	if len(got.Badges) != 2 || got.Badges[0] != "first-blood" || got.Badges[1] != "commander" {
		t.Fatalf("badges not round-tripped: %+v", got.Badges)
	}
}

func TestStageOverwritesOnConflict(t *testing.T) {
	s := openTestStore(t)

	s.Stage(Profile{PlayerID: "p1", DisplayName: "Old", TotalCrypto: 10})
	s.flush()
	s.Stage(Profile{PlayerID: "p1", DisplayName: "New", TotalCrypto: 20})
	s.flush()

	got, err := s.Load("p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DisplayName != "New" || got.TotalCrypto != 20 {
		t.Fatalf("expected upsert to overwrite, got %+v", got)
	}
}

func TestWipeAllRemovesEveryProfile(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 7; i++ {
		s.Stage(Profile{PlayerID: string(rune('a' + i)), TotalCrypto: int64(i)})
	}
	s.flush()

	removed, err := s.WipeAll(3)
	if err != nil {
		t.Fatalf("WipeAll: %v", err)
	}
	if removed != 7 {
		t.Fatalf("removed = %d, want 7", removed)
	}

	got, err := s.Load("a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TotalCrypto != 0 {
		t.Fatalf("expected profile a to be gone, got %+v", got)
	}
}
