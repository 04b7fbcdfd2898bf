package game

// InputCommand is one queued client input: turret/chassis intent for a
// single tick, timestamped with the client-assigned sequence number used
// for server reconciliation.
type InputCommand struct {
	Seq         uint32  `json:"seq"`
	Turn        float64 `json:"turn"`     // desired heading delta, radians/sec, clamped by caller
	Throttle    float64 `json:"throttle"` // -1..1
	TurretAngle float64 `json:"turretAngle"`
}

// FireCommand is a discrete shot request, sent as its own "fire" message
// rather than as a field on InputCommand: every fire message is one shot
// event, not continuous per-tick state.
type FireCommand struct {
	Seq         uint32  `json:"seq"`
	Power       float64 `json:"power"` // charge power, 0..10
	TurretAngle float64 `json:"turretAngle"`
}

// Player is a human-controlled tank.
type Player struct {
	ID      string
	Name    string
	Faction Faction

	Theta   float64 // longitude
	Phi     float64 // colatitude
	Heading float64
	Speed   float64

	TurretAngle float64

	HP    float64
	MaxHP float64

	IsDead           bool
	WaitingForPortal bool

	LastInputSeq     uint32
	CurrentClusterID int
	Rank             string // "crew", "officer", "commander"

	Crypto int
	Kills  int
	Deaths int

	JoinedAt int64 // unix seconds

	PendingInputs []InputCommand
	PendingFires  []FireCommand
}

// NewPlayer constructs a freshly joined player, parked at the given portal
// position and awaiting spawn-in.
func NewPlayer(id, name string, faction Faction, theta, phi float64, maxHP float64, joinedAt int64) *Player {
	return &Player{
		ID:               id,
		Name:             name,
		Faction:          faction,
		Theta:            theta,
		Phi:              phi,
		HP:               maxHP,
		MaxHP:            maxHP,
		WaitingForPortal: true,
		Rank:             "crew",
		JoinedAt:         joinedAt,
	}
}

// EnqueueInput appends a client input to the pending queue, dropping the
// oldest entry if the queue is at capacity (DoS protection per the
// resource-limits config).
func (p *Player) EnqueueInput(cmd InputCommand, maxQueued int) {
	if cmd.Seq <= p.LastInputSeq {
		return
	}
	p.PendingInputs = append(p.PendingInputs, cmd)
	if len(p.PendingInputs) > maxQueued {
		p.PendingInputs = p.PendingInputs[len(p.PendingInputs)-maxQueued:]
	}
}

// DrainInputs removes and returns all queued inputs for processing in
// input-drain order (spec step 1 of the tick pipeline).
func (p *Player) DrainInputs() []InputCommand {
	in := p.PendingInputs
	p.PendingInputs = nil
	return in
}

// EnqueueFire appends a fire request to the pending queue, dropping the
// oldest entry if the queue is at capacity. Unlike inputs, fire commands are
// discrete shot events, so there is no seq-based deduplication.
func (p *Player) EnqueueFire(cmd FireCommand, maxQueued int) {
	p.PendingFires = append(p.PendingFires, cmd)
	if len(p.PendingFires) > maxQueued {
		p.PendingFires = p.PendingFires[len(p.PendingFires)-maxQueued:]
	}
}

// DrainFires removes and returns all queued fire requests.
func (p *Player) DrainFires() []FireCommand {
	in := p.PendingFires
	p.PendingFires = nil
	return in
}

// ApplyDamage reduces HP, flips IsDead at zero, and returns whether this
// hit was the kill shot.
func (p *Player) ApplyDamage(amount float64) (lethal bool) {
	if p.IsDead {
		return false
	}
	p.HP -= amount
	if p.HP <= 0 {
		p.HP = 0
		p.IsDead = true
		p.Deaths++
		return true
	}
	return false
}

// Respawn resets a dead player back to waiting-for-portal state at a new
// position, keeping crypto/kills/deaths history.
func (p *Player) Respawn(theta, phi float64) {
	p.Theta = theta
	p.Phi = phi
	p.HP = p.MaxHP
	p.IsDead = false
	p.WaitingForPortal = true
}
