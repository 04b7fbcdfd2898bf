package game

import "testing"

func TestRecomputePromotesHighestCrypto(t *testing.T) {
	b := NewCommanderBoard()
	promoted, demoted := b.Recompute([]CommanderCandidate{
		{TankID: "low", Faction: FactionRust, Crypto: 10, Connected: true},
		{TankID: "high", Faction: FactionRust, Crypto: 50, Connected: true},
	})
	if len(demoted) != 0 {
		t.Errorf("expected no demotions on first recompute, got %v", demoted)
	}
	if len(promoted) != 1 || promoted[0] != "high" {
		t.Errorf("promoted = %v, want [high]", promoted)
	}
	if b.CommanderOf(FactionRust) != "high" {
		t.Errorf("CommanderOf(Rust) = %q, want high", b.CommanderOf(FactionRust))
	}
}

func TestRecomputeBreaksTiesByEarliestJoin(t *testing.T) {
	b := NewCommanderBoard()
	_, _ = b.Recompute([]CommanderCandidate{
		{TankID: "later", Faction: FactionCobalt, Crypto: 30, JoinedAt: 200, Connected: true},
		{TankID: "earlier", Faction: FactionCobalt, Crypto: 30, JoinedAt: 100, Connected: true},
	})
	if got := b.CommanderOf(FactionCobalt); got != "earlier" {
		t.Errorf("CommanderOf(Cobalt) = %q, want earlier (tie broken by join time)", got)
	}
}

func TestRecomputeDemotesOnLeadChange(t *testing.T) {
	b := NewCommanderBoard()
	b.Recompute([]CommanderCandidate{{TankID: "a", Faction: FactionRust, Crypto: 10, Connected: true}})

	promoted, demoted := b.Recompute([]CommanderCandidate{
		{TankID: "a", Faction: FactionRust, Crypto: 10, Connected: true},
		{TankID: "b", Faction: FactionRust, Crypto: 100, Connected: true},
	})
	if len(demoted) != 1 || demoted[0] != "a" {
		t.Errorf("demoted = %v, want [a]", demoted)
	}
	if len(promoted) != 1 || promoted[0] != "b" {
		t.Errorf("promoted = %v, want [b]", promoted)
	}
}

func TestRecomputeIgnoresDisconnectedCandidates(t *testing.T) {
	b := NewCommanderBoard()
	b.Recompute([]CommanderCandidate{
		{TankID: "a", Faction: FactionViridian, Crypto: 5, Connected: true},
		{TankID: "ghost", Faction: FactionViridian, Crypto: 999, Connected: false},
	})
	if got := b.CommanderOf(FactionViridian); got != "a" {
		t.Errorf("CommanderOf(Viridian) = %q, want a (disconnected candidate ignored)", got)
	}
}

func TestClearVacatesCommanderSeat(t *testing.T) {
	b := NewCommanderBoard()
	b.Recompute([]CommanderCandidate{{TankID: "a", Faction: FactionRust, Crypto: 10, Connected: true}})

	faction, wasCommander := b.Clear("a")
	if !wasCommander || faction != FactionRust {
		t.Errorf("Clear(a) = (%v, %v), want (Rust, true)", faction, wasCommander)
	}
	if b.CommanderOf(FactionRust) != "" {
		t.Error("commander seat should be vacant after Clear")
	}
}

func TestClearNonCommanderIsNoop(t *testing.T) {
	b := NewCommanderBoard()
	faction, wasCommander := b.Clear("nobody")
	if wasCommander || faction != FactionNone {
		t.Errorf("Clear(nobody) = (%v, %v), want (None, false)", faction, wasCommander)
	}
}
