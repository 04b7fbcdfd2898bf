package game

import (
	"math"
	"math/rand"
)

// BotState is the small set of fields the bot AI worker needs to decide its
// next action; it mirrors the packed numeric buffer exchanged with the
// worker goroutine (stride 6: theta, phi, heading, hp, targetTheta, targetPhi).
type BotState struct {
	ID      string
	Faction Faction

	Theta   float64
	Phi     float64
	Heading float64
	Speed   float64

	TurretAngle float64

	HP    float64
	MaxHP float64

	IsDead bool

	CurrentClusterID int

	TargetID    string
	TargetTheta float64
	TargetPhi   float64
	HasTarget   bool

	WanderTheta float64
	WanderPhi   float64

	rng *rand.Rand
}

// BotConfig tunes bot combat/movement behavior.
type BotConfig struct {
	MaxHP          float64
	BaseDamage     float64
	MaxChargeMult  float64
	AcquireRange   float64 // angular distance, radians
	FireRange      float64
	TurnRate       float64 // radians/sec
	MoveSpeed      float64
}

// DefaultBotConfig returns the default bot tuning.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		MaxHP:         100,
		BaseDamage:    25,
		MaxChargeMult: 3.0,
		AcquireRange:  0.3,
		FireRange:     0.15,
		TurnRate:      1.5,
		MoveSpeed:     30,
	}
}

// NewBot constructs a bot at the given spherical position, seeded for
// deterministic wander so a worker restart with the same seed reproduces
// the same patrol pattern.
func NewBot(id string, faction Faction, theta, phi float64, cfg BotConfig, seed int64) *BotState {
	return &BotState{
		ID:      id,
		Faction: faction,
		Theta:   theta,
		Phi:     phi,
		HP:      cfg.MaxHP,
		MaxHP:   cfg.MaxHP,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// FindTarget scans nearby hostile tanks (supplied by the room via the
// spatial grid) and locks the closest one within acquire range, clearing
// the lock if the current target died, disconnected or wandered out of
// range. Adapted from the teacher's combat-behavior target scan, swapping
// Euclidean distance for angular distance on the sphere.
func (b *BotState) FindTarget(nearby []BotTargetCandidate, cfg BotConfig) {
	if b.HasTarget {
		for _, c := range nearby {
			if c.ID == b.TargetID && c.Alive {
				b.TargetTheta, b.TargetPhi = c.Theta, c.Phi
				return
			}
		}
		b.HasTarget = false
	}

	best := -1
	bestDist := cfg.AcquireRange
	for i, c := range nearby {
		if !c.Alive || c.Faction == b.Faction {
			continue
		}
		d := angularDistance(b.Theta, b.Phi, c.Theta, c.Phi)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best >= 0 {
		b.TargetID = nearby[best].ID
		b.TargetTheta = nearby[best].Theta
		b.TargetPhi = nearby[best].Phi
		b.HasTarget = true
	}
}

// BotTargetCandidate is a hostile tank's snapshot position, supplied by the
// room each tick so the bot AI never touches shared player state directly.
type BotTargetCandidate struct {
	ID      string
	Faction Faction
	Theta   float64
	Phi     float64
	Alive   bool
}

// Step advances the bot one tick: steer toward its target or wander point,
// and report whether it wants to fire this tick.
func (b *BotState) Step(dt float64, cfg BotConfig) (wantsFire bool) {
	if b.IsDead {
		return false
	}

	destTheta, destPhi := b.WanderTheta, b.WanderPhi
	if b.HasTarget {
		destTheta, destPhi = b.TargetTheta, b.TargetPhi
	} else if b.WanderTheta == 0 && b.WanderPhi == 0 {
		b.pickWanderPoint()
		destTheta, destPhi = b.WanderTheta, b.WanderPhi
	}

	dist := angularDistance(b.Theta, b.Phi, destTheta, destPhi)
	if dist < 0.02 && !b.HasTarget {
		b.pickWanderPoint()
	}

	desiredHeading := headingTo(b.Theta, b.Phi, destTheta, destPhi)
	b.Heading = turnToward(b.Heading, desiredHeading, cfg.TurnRate*dt)

	if b.HasTarget && dist <= cfg.FireRange {
		b.Speed = 0
		b.TurretAngle = headingTo(b.Theta, b.Phi, b.TargetTheta, b.TargetPhi)
		return true
	}

	b.Speed = cfg.MoveSpeed
	return false
}

func (b *BotState) pickWanderPoint() {
	b.WanderTheta = b.Theta + (b.rng.Float64()*2-1)*0.4
	b.WanderPhi = clamp(b.Phi+(b.rng.Float64()*2-1)*0.4, 0.05, 3.09)
}

// headingTo returns the compass heading from one spherical point to another,
// 0 = north, increasing eastward. Theta increases eastward, phi increases
// southward (colatitude), so north is the negative-phi direction.
func headingTo(fromTheta, fromPhi, toTheta, toPhi float64) float64 {
	east := (toTheta - fromTheta) * math.Sin(fromPhi)
	north := fromPhi - toPhi
	return normalizeAngle(math.Atan2(east, north))
}

func turnToward(current, target, maxDelta float64) float64 {
	diff := normalizeAngle(target - current)
	if diff > maxDelta {
		diff = maxDelta
	} else if diff < -maxDelta {
		diff = -maxDelta
	}
	return normalizeAngle(current + diff)
}

func normalizeAngle(a float64) float64 {
	for a > 3.14159265358979 {
		a -= 2 * 3.14159265358979
	}
	for a < -3.14159265358979 {
		a += 2 * 3.14159265358979
	}
	return a
}
