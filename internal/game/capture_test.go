package game

import "testing"

func newTestCluster(id, capacity int) *Cluster {
	return &Cluster{
		ID:       id,
		Capacity: capacity,
		Capture:  CaptureState{Capacity: capacity, Owner: FactionNone},
	}
}

func TestCaptureAccumulatesAndTransfersOwnership(t *testing.T) {
	ce := NewCaptureEngine(1, nil)
	c := newTestCluster(1, 2)
	pres := Presence{Counts: [3]int{1, 0, 0}, ContributorID: [3]string{"rust-1", "", ""}}

	for i := 0; i < 2; i++ {
		ce.advanceCluster(c, pres, 1.0)
	}
	if c.Capture.Owner != FactionRust {
		t.Fatalf("Owner = %v, want Rust after reaching capacity", c.Capture.Owner)
	}
	if c.Capture.Tics[0] != 2 {
		t.Errorf("Tics[rust] = %d, want 2", c.Capture.Tics[0])
	}
}

func TestCaptureOwnedClusterDecaysUnderContest(t *testing.T) {
	ce := NewCaptureEngine(1, nil)
	c := newTestCluster(1, 2)
	c.Capture.Owner = FactionRust
	c.Capture.Tics[0] = 2

	pres := Presence{Counts: [3]int{0, 1, 0}}
	for i := 0; i < 2; i++ {
		ce.advanceCluster(c, pres, 1.0)
	}
	if c.Capture.Tics[0] != 0 {
		t.Errorf("owner tics after contest = %d, want decayed to 0", c.Capture.Tics[0])
	}
	if c.Capture.Owner != FactionNone {
		t.Errorf("Owner = %v, want None after an unsponsored cluster loses all tics", c.Capture.Owner)
	}
}

func TestCaptureContestedUnownedClusterDecaysLeadingFaction(t *testing.T) {
	ce := NewCaptureEngine(1, nil)
	c := newTestCluster(1, 5)
	c.Capture.Tics[0] = 2 // rust has partial progress, no owner yet

	pres := Presence{Counts: [3]int{1, 1, 0}} // rust and cobalt both present now
	changed, _ := ce.advanceCluster(c, pres, 1.0)

	if c.Capture.Tics[0] != 1 {
		t.Fatalf("leading faction tics = %d, want decayed to 1 under contest", c.Capture.Tics[0])
	}
	if changed == nil {
		t.Fatal("expected a TerritoryChange when a contested cluster's tics decay")
	}
}

func TestCaptureUncontestedSingleFactionDoesNotDecay(t *testing.T) {
	ce := NewCaptureEngine(1, nil)
	c := newTestCluster(1, 5)
	c.Capture.Tics[0] = 2

	pres := Presence{Counts: [3]int{1, 0, 0}, ContributorID: [3]string{"rust-1", "", ""}}
	ce.advanceCluster(c, pres, 1.0)

	if c.Capture.Tics[0] < 2 {
		t.Errorf("tics should only grow or hold when uncontested, got %d", c.Capture.Tics[0])
	}
}

func TestCaptureSponsoredClusterHoldsInsteadOfLosingOwner(t *testing.T) {
	ce := NewCaptureEngine(1, nil)
	c := newTestCluster(1, 1)
	c.SponsorID = "acme"
	c.Capture.Owner = FactionRust
	c.Capture.Tics[0] = 1
	c.Capture.SponsorHold = 3

	pres := Presence{Counts: [3]int{0, 1, 0}}
	ce.advanceCluster(c, pres, 1.0)

	if c.Capture.Owner != FactionRust {
		t.Errorf("sponsored cluster should keep its owner while SponsorHold > 0, got %v", c.Capture.Owner)
	}
	if c.Capture.SponsorHold != 2 {
		t.Errorf("SponsorHold = %d, want decremented to 2", c.Capture.SponsorHold)
	}
}
