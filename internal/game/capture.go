package game

import "math"

// Presence is the per-cluster, per-faction set of tank ids standing inside
// it during the current tick, used for both tic accumulation and the
// tic-contribution crypto award.
type Presence struct {
	// Counts indexed by ticIndex(faction): number of tanks of that faction
	// present in the cluster this tick.
	Counts [3]int
	// ContributorID is the smallest tank id of each faction present, used
	// to break ties on who earns the tic-contribution award.
	ContributorID [3]string
}

// TerritoryChange describes a cluster ownership/tic change to broadcast as
// a territory-update event.
type TerritoryChange struct {
	ClusterID int
	Owner     Faction
	Tics      [3]int
	Momentum  [3]float64
}

// TicAward credits one tank for moving a cluster's tic this second.
type TicAward struct {
	ClusterID int
	Faction   Faction
	TankID    string
	Amount    int
}

// CaptureEngine advances the per-cluster tug-of-war state each tick.
type CaptureEngine struct {
	TickRate         int
	TicPerSecond     float64 // tics earned per second, per present tank of the accumulating faction
	MaxRatePerSec    float64 // cap on accumulate/decay rate regardless of tank count
	SponsorHoldTicks int
	economy          *EconomyEngine
}

// NewCaptureEngine constructs a capture engine bound to the given economy
// engine, which receives tic-contribution awards.
func NewCaptureEngine(tickRate int, economy *EconomyEngine) *CaptureEngine {
	return &CaptureEngine{
		TickRate:         tickRate,
		TicPerSecond:     1.0,
		MaxRatePerSec:    10.0,
		SponsorHoldTicks: tickRate * 30,
		economy:          economy,
	}
}

// AdvanceTick processes every cluster's capture state for one tick, given
// the presence map computed by the caller from current tank positions.
// Returns the events that must be broadcast (territory updates) and the
// tic awards that must be applied by the economy engine.
func (ce *CaptureEngine) AdvanceTick(planet *Planet, presence map[int]Presence) ([]TerritoryChange, []TicAward) {
	dt := 1.0 / float64(ce.TickRate)
	var changes []TerritoryChange
	var awards []TicAward

	for _, cluster := range planet.Clusters {
		pres := presence[cluster.ID]
		changed, award := ce.advanceCluster(cluster, pres, dt)
		if changed != nil {
			changes = append(changes, *changed)
		}
		if award != nil {
			awards = append(awards, *award)
			if ce.economy != nil {
				ce.economy.AwardTic(award.TankID, award.Amount)
			}
		}
	}

	return changes, awards
}

func (ce *CaptureEngine) advanceCluster(c *Cluster, pres Presence, dt float64) (*TerritoryChange, *TicAward) {
	cs := &c.Capture
	cs.Capacity = c.Capacity
	sponsored := c.SponsorID != ""

	beforeTics := cs.Tics
	beforeOwner := cs.Owner

	switch {
	case cs.Owner != FactionNone:
		ownerIdx := ticIndex(cs.Owner)
		opposingCount := 0
		for i := 0; i < 3; i++ {
			if i == ownerIdx {
				continue
			}
			opposingCount += pres.Counts[i]
			// Invariant: only the owning faction may hold nonzero tics.
			cs.Tics[i] = 0
		}
		if opposingCount > 0 {
			rate := math.Min(float64(opposingCount), ce.MaxRatePerSec)
			cs.Accum[ownerIdx] -= rate * dt
			for cs.Accum[ownerIdx] <= -1 && cs.Tics[ownerIdx] > 0 {
				cs.Tics[ownerIdx]--
				cs.Accum[ownerIdx] += 1
			}
			if cs.Tics[ownerIdx] <= 0 {
				cs.Tics[ownerIdx] = 0
				cs.Accum[ownerIdx] = 0
				if sponsored {
					if cs.SponsorHold > 0 {
						cs.SponsorHold--
					}
				} else {
					cs.Owner = FactionNone
				}
			}
		}

	default:
		activeFactions := 0
		activeIdx := -1
		for i := 0; i < 3; i++ {
			if pres.Counts[i] > 0 {
				activeFactions++
				activeIdx = i
			}
		}
		// Only an uncontested single faction can build tics; a multi-
		// faction standoff with no owner decays whichever faction already
		// holds partial tics, same tug-of-war rule as the owned case.
		switch {
		case activeFactions == 1:
			rate := math.Min(float64(pres.Counts[activeIdx]), ce.MaxRatePerSec)
			cs.Accum[activeIdx] += rate * dt
			for cs.Accum[activeIdx] >= 1 && cs.Tics[activeIdx] < cs.Capacity {
				cs.Tics[activeIdx]++
				cs.Accum[activeIdx] -= 1
				if tankID := pres.ContributorID[activeIdx]; tankID != "" {
					return changeIfAny(c, beforeOwner, beforeTics, cs), ticAward(c, Faction(activeIdx+1), tankID, ce.economy)
				}
			}
			if !sponsored && cs.Tics[activeIdx] >= cs.Capacity {
				cs.Owner = Faction(activeIdx + 1)
			}
		case activeFactions > 1:
			leadIdx := -1
			for i := 0; i < 3; i++ {
				if cs.Tics[i] > 0 {
					leadIdx = i
					break
				}
			}
			if leadIdx >= 0 {
				opposingCount := 0
				for i := 0; i < 3; i++ {
					if i == leadIdx {
						continue
					}
					opposingCount += pres.Counts[i]
				}
				if opposingCount > 0 {
					rate := math.Min(float64(opposingCount), ce.MaxRatePerSec)
					cs.Accum[leadIdx] -= rate * dt
					for cs.Accum[leadIdx] <= -1 && cs.Tics[leadIdx] > 0 {
						cs.Tics[leadIdx]--
						cs.Accum[leadIdx] += 1
					}
					if cs.Tics[leadIdx] <= 0 {
						cs.Tics[leadIdx] = 0
						cs.Accum[leadIdx] = 0
					}
				}
			}
		}
	}

	return changeIfAny(c, beforeOwner, beforeTics, cs), nil
}

func changeIfAny(c *Cluster, beforeOwner Faction, beforeTics [3]int, cs *CaptureState) *TerritoryChange {
	if cs.Owner == beforeOwner && cs.Tics == beforeTics {
		return nil
	}
	momentum := [3]float64{}
	for i := 0; i < 3; i++ {
		momentum[i] = float64(cs.Tics[i] - beforeTics[i])
	}
	cs.lastMomentum = momentum
	return &TerritoryChange{
		ClusterID: c.ID,
		Owner:     cs.Owner,
		Tics:      cs.Tics,
		Momentum:  momentum,
	}
}

func ticAward(c *Cluster, f Faction, tankID string, econ *EconomyEngine) *TicAward {
	amount := 1
	if econ != nil {
		amount = econ.TicCryptoForCluster(len(c.TileIndices))
	}
	return &TicAward{ClusterID: c.ID, Faction: f, TankID: tankID, Amount: amount}
}
