package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tankarena/server/internal/broadcast"
	"github.com/tankarena/server/internal/game/spatial"
)

// TileCount, NeighborsOf and PositionOf let *Planet satisfy
// spatial.TileGraph so bot navigation can share the planet's own tile
// adjacency without a separate adapter type.
func (p *Planet) TileCount() int                          { return len(p.Tiles) }
func (p *Planet) NeighborsOf(tile int) []int               { return p.Tiles[tile].Neighbors }
func (p *Planet) PositionOf(tile int) (theta, phi float64) { t := p.Tiles[tile]; return t.Theta, t.Phi }

// BotHandle is the authoritative, room-owned mirror of one bot's state; the
// bot worker goroutine only ever sees copies passed through channels.
type BotHandle struct {
	State     *BotState
	TileIndex int
	GoalTile  int
}

// RoomConfig bundles the tuning the room needs from internal/config without
// importing that package directly (keeps internal/game dependency-free of
// the config package, matching the teacher's engine.go).
type RoomConfig struct {
	TickRate            int
	MaxHumanPlayers     int
	MaxTotalTanks       int
	MaxProjectiles      int
	MaxPerOwnerShots    int
	MaxQueuedInputs     int
	Economy             EconomyConfig
	Bot                 BotConfig
	ProjectileSpeed     float64
	ProjectileTicks     int
	PlayerRadius        float64
	TankTurnRate        float64
	TankMoveSpeed       float64
	PlayerBaseDamage    float64
	PlayerMaxChargeMult float64
}

// EventSink receives fully-formed outbound events the room wants broadcast
// to every connected client, decoupling internal/game from the transport
// layer the same way BotDispatcher decouples it from internal/bot. Any
// type with a matching Emit method (e.g. *api.Hub) satisfies this without
// internal/game importing internal/api.
type EventSink interface {
	Emit(eventType string, payload interface{})
}

// GameRoom is the authoritative tick-driven simulation for one planet
// instance: the full input-drain -> motion-integration -> bot-exchange ->
// projectile-resolution -> capture-advance -> economy -> broadcast-compose
// pipeline, run at a fixed tick rate.
type GameRoom struct {
	cfg    RoomConfig
	planet *Planet

	mu      sync.Mutex
	players map[string]*Player
	bots    map[string]*BotHandle

	projectiles []*Projectile

	grid    *spatial.SphereGrid
	flowMgr *spatial.FlowFieldManager

	capture    *CaptureEngine
	economy    *EconomyEngine
	commanders *CommanderBoard
	events     *EventLog

	pool *broadcast.Pool

	botDispatch BotDispatcher
	sink        EventSink

	planetRotation float64
	moonAngles     [3]float64
	stationAngle   float64

	tick     uint64
	rng      *rand.Rand
	stopCh   chan struct{}
	stopOnce sync.Once
}

// SetSink wires the room's outbound event broadcaster. Safe to call after
// construction but before Run; the sink is consulted from the tick loop.
func (r *GameRoom) SetSink(sink EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

func (r *GameRoom) emit(eventType string, payload interface{}) {
	if r.sink != nil {
		r.sink.Emit(eventType, payload)
	}
}

// BotDispatcher decouples the room from the concrete internal/bot.Bridge
// type (which imports internal/game and would otherwise create an import
// cycle): the room only needs to hand out inputs and collect outputs.
type BotDispatcher interface {
	Dispatch(tick uint64, inputs map[string]BotWorkerInput)
	Collect(timeout time.Duration) map[string]BotWorkerOutput
	Spawn(id string, faction Faction, theta, phi float64, seed int64)
	Remove(id string)
}

// BotWorkerInput/BotWorkerOutput mirror internal/bot's Input/Output shape
// using only internal/game types, so internal/bot can adapt between them
// without a dependency cycle.
type BotWorkerInput struct {
	Tick      uint64
	Self      [6]float64
	IsDead    bool
	ClusterID int
	TileIndex int
	Nearby    []BotTargetCandidate
	GoalTheta float64
	GoalPhi   float64
}

type BotWorkerOutput struct {
	Tick      uint64
	Self      [6]float64
	WantsFire bool
	TargetID  string
}

// NewGameRoom constructs a room bound to the given planet, with an empty
// player/bot roster.
func NewGameRoom(cfg RoomConfig, planet *Planet, dispatcher BotDispatcher, events *EventLog) *GameRoom {
	economy := NewEconomyEngine(cfg.Economy)
	return &GameRoom{
		cfg:         cfg,
		planet:      planet,
		players:     make(map[string]*Player),
		bots:        make(map[string]*BotHandle),
		grid:        spatial.NewSphereGrid(spatial.DefaultCellTheta, spatial.DefaultCellPhi, cfg.MaxTotalTanks+cfg.MaxProjectiles),
		flowMgr:     spatial.NewFlowFieldManager(planet),
		capture:     NewCaptureEngine(cfg.TickRate, economy),
		economy:     economy,
		commanders:  NewCommanderBoard(),
		events:      events,
		pool:        broadcast.NewPool(),
		botDispatch: dispatcher,
		rng:         rand.New(rand.NewSource(1)),
		stopCh:      make(chan struct{}),
	}
}

// Join admits a new human player at a random portal, returning an error if
// the room is at its human-player cap.
func (r *GameRoom) Join(id, name string, faction Faction) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= r.cfg.MaxHumanPlayers {
		return nil, fmt.Errorf("room full: %d/%d human players", len(r.players), r.cfg.MaxHumanPlayers)
	}
	if faction == FactionNone {
		faction = r.balanceFaction()
	}

	theta, phi := r.randomPortalPosition()
	p := NewPlayer(id, name, faction, theta, phi, 100, time.Now().Unix())
	r.players[id] = p
	r.economy.Register(id)
	r.events.Record(Event{Type: EventJoin, ActorID: id, Detail: faction.String()})
	r.emit("player-joined", playerJoinedPayload{PlayerID: id, Name: name, Faction: int(faction)})
	return p, nil
}

// Leave removes a player from the room.
func (r *GameRoom) Leave(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	delete(r.players, id)
	r.economy.Remove(id)
	r.commanders.Clear(id)
	r.events.Record(Event{Type: EventDisconnect, ActorID: id})
	if ok && !p.WaitingForPortal {
		r.emit("player-left", playerLeftPayload{PlayerID: id})
	}
}

type playerJoinedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Faction  int    `json:"faction"`
}

type playerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type playerActivatedPayload struct {
	PlayerID string `json:"playerId"`
}

type playerFactionChangedPayload struct {
	PlayerID string `json:"playerId"`
	Faction  int    `json:"faction"`
}

func (r *GameRoom) balanceFaction() Faction {
	counts := [3]int{}
	for _, p := range r.players {
		if idx := ticIndex(p.Faction); idx >= 0 {
			counts[idx]++
		}
	}
	best, bestCount := 0, counts[0]
	for i := 1; i < 3; i++ {
		if counts[i] < bestCount {
			best, bestCount = i, counts[i]
		}
	}
	return factionFromTicIndex(best)
}

func (r *GameRoom) randomPortalPosition() (theta, phi float64) {
	if len(r.planet.Portals) == 0 {
		return 0, 1.5708
	}
	idx := r.planet.Portals[r.rng.Intn(len(r.planet.Portals))]
	t := r.planet.Tiles[idx]
	return t.Theta, t.Phi
}

// ChoosePortal releases a waiting player into play at the chosen portal
// tile, or returns an error if the tile isn't one of the planet's portals.
func (r *GameRoom) ChoosePortal(playerID string, tileIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return fmt.Errorf("unknown player %q", playerID)
	}
	valid := false
	for _, idx := range r.planet.Portals {
		if idx == tileIndex {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("tile %d is not a portal", tileIndex)
	}
	t := r.planet.Tiles[tileIndex]
	p.Theta, p.Phi = t.Theta, t.Phi
	p.WaitingForPortal = false
	r.emit("player-activated", playerActivatedPayload{PlayerID: playerID})
	return nil
}

// EnqueueInput queues a client input for the next tick's drain phase.
func (r *GameRoom) EnqueueInput(playerID string, cmd InputCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[playerID]; ok {
		p.EnqueueInput(cmd, r.cfg.MaxQueuedInputs)
	}
}

// EnqueueFire queues a client fire request for the next tick's drain phase.
func (r *GameRoom) EnqueueFire(playerID string, cmd FireCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[playerID]; ok {
		p.EnqueueFire(cmd, r.cfg.MaxQueuedInputs)
	}
}

// SpawnBot adds an AI-controlled tank to the room.
func (r *GameRoom) SpawnBot(id string, faction Faction, seed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	theta, phi := r.randomPortalPosition()
	tile := r.nearestTile(theta, phi)
	r.bots[id] = &BotHandle{
		State:     NewBot(id, faction, theta, phi, r.cfg.Bot, seed),
		TileIndex: tile,
	}
	r.botDispatch.Spawn(id, faction, theta, phi, seed)
}

func (r *GameRoom) nearestTile(theta, phi float64) int {
	best, bestDist := 0, 1e18
	for i, t := range r.planet.Tiles {
		d := angularDistance(theta, phi, t.Theta, t.Phi)
		if d < bestDist {
			bestDist, best = d, i
		}
	}
	return best
}

// Run starts the fixed-rate tick loop; blocks until Stop is called.
func (r *GameRoom) Run() {
	dt := time.Second / time.Duration(r.cfg.TickRate)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Tick(1.0 / float64(r.cfg.TickRate))
		case <-r.stopCh:
			return
		}
	}
}

// Stop halts the tick loop.
func (r *GameRoom) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Tick advances the simulation by exactly one fixed timestep, following the
// ordering contract: input drain, motion integration, bot exchange,
// projectile resolution, capture advance, economy/commander update,
// broadcast compose.
func (r *GameRoom) Tick(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tick++

	r.drainInputs(dt)
	r.integrateMotion(dt)
	r.advanceCelestial(dt)
	r.exchangeBots(dt)
	r.resolveProjectiles()
	r.advanceCapture()
	r.recomputeCommanders()
	r.composeSnapshot()

	if r.cfg.TickRate > 0 {
		rate := uint64(r.cfg.TickRate)
		if r.tick%rate == 0 {
			r.broadcastCaptureProgress()
		}
		if r.tick%(rate*5) == 0 {
			r.broadcastCryptoAndCommanderSync()
		}
		if r.tick%(rate*60) == 0 {
			r.awardHolding()
		}
	}
}

// broadcastCryptoAndCommanderSync emits the ~5-second side channels (spec
// §4.7/§4.5): every connection's crypto balance and the full per-faction
// commander map, so a client's view self-heals even if it missed a
// crypto-update/commander-update delta.
func (r *GameRoom) broadcastCryptoAndCommanderSync() {
	balances := make(map[string]int, len(r.players))
	for id := range r.players {
		bal, _ := r.economy.Balance(id)
		balances[id] = bal
	}
	r.emit("crypto-update", balances)
	r.emit("commander-sync", r.CommanderState())
}

// broadcastCaptureProgress emits a frequent per-player update naming the
// cluster the player currently stands in, for client capture-bar UI.
func (r *GameRoom) broadcastCaptureProgress() {
	for id, p := range r.players {
		if p.IsDead || p.WaitingForPortal || p.CurrentClusterID < 0 {
			continue
		}
		r.emit("capture-progress", capProgressPayload{
			PlayerID:  id,
			ClusterID: p.CurrentClusterID,
		})
	}
}

// awardHolding credits the once-a-minute holding bonus (spec §4.5): every
// player standing in a cluster owned by their own faction.
func (r *GameRoom) awardHolding() {
	for id, p := range r.players {
		if p.IsDead || p.WaitingForPortal || p.CurrentClusterID < 0 {
			continue
		}
		cluster := r.planet.ClusterByID(p.CurrentClusterID)
		if cluster == nil || cluster.Capture.Owner != p.Faction {
			continue
		}
		amount := r.economy.AwardHolding(id, 1)
		r.emit("holding-crypto", holdingCryptoPayload{PlayerID: id, Amount: amount})
	}
}

type holdingCryptoPayload struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

type capProgressPayload struct {
	PlayerID  string `json:"playerId"`
	ClusterID int    `json:"clusterId"`
}

func (r *GameRoom) drainInputs(dt float64) {
	for _, p := range r.players {
		if p.IsDead || p.WaitingForPortal {
			p.DrainInputs()
			p.DrainFires()
			continue
		}
		for _, cmd := range p.DrainInputs() {
			p.LastInputSeq = cmd.Seq
			p.Heading = normalizeAngle(p.Heading + cmd.Turn*dt)
			p.Speed = cmd.Throttle * r.cfg.TankMoveSpeed
			p.TurretAngle = cmd.TurretAngle
		}
		for _, fire := range p.DrainFires() {
			p.TurretAngle = fire.TurretAngle
			r.tryFire(p, fire.Power)
		}
	}
}

// advanceCelestial advances the cosmetic planet rotation, moon orbits and
// space-station angle broadcast for audiovisual sync only; none of these
// feed into gameplay.
func (r *GameRoom) advanceCelestial(dt float64) {
	const planetRotationRate = 0.02
	const stationRate = 0.05
	moonRates := [3]float64{0.01, 0.015, 0.008}
	r.planetRotation = normalizeAngle(r.planetRotation + planetRotationRate*dt)
	for i := range r.moonAngles {
		r.moonAngles[i] = normalizeAngle(r.moonAngles[i] + moonRates[i]*dt)
	}
	r.stationAngle = normalizeAngle(r.stationAngle + stationRate*dt)
}

func (r *GameRoom) integrateMotion(dt float64) {
	for _, p := range r.players {
		if p.IsDead || p.WaitingForPortal {
			continue
		}
		step := p.Speed * dt / r.planet.Radius
		sinPhi := math.Sin(p.Phi)
		if sinPhi < 0.05 {
			sinPhi = 0.05
		}
		p.Theta = normalizeAngle(p.Theta + step*math.Sin(p.Heading)/sinPhi)
		p.Phi = clamp(p.Phi+step*math.Cos(p.Heading), 0.001, 3.1405)
		p.CurrentClusterID = r.clusterIDAt(p.Theta, p.Phi)
	}
}

func (r *GameRoom) clusterIDAt(theta, phi float64) int {
	c := r.planet.ClusterAt(theta, phi)
	if c == nil {
		return -1
	}
	return c.ID
}

// maxChargePower is the upper bound of the client-supplied charge power
// scalar (spec: charge power 0..10 scales speed/range/damage).
const maxChargePower = 10.0

func (r *GameRoom) tryFire(p *Player, power float64) {
	if power < 0 {
		power = 0
	}
	if power > maxChargePower {
		power = maxChargePower
	}
	cost := r.economy.FireCost(power)
	if !r.economy.CanAffordFire(p.ID, cost) {
		return
	}
	ownerCount := 0
	for _, pr := range r.projectiles {
		if pr.OwnerID == p.ID {
			ownerCount++
		}
	}
	if ownerCount >= r.cfg.MaxPerOwnerShots || len(r.projectiles) >= r.cfg.MaxProjectiles {
		return
	}
	r.economy.ChargeFireCost(p.ID, cost)
	id := fmt.Sprintf("%s-%d", p.ID, r.tick)
	chargeFraction := power / maxChargePower
	pr := NewProjectile(id, p.ID, p.Faction, p.Theta, p.Phi, p.TurretAngle,
		r.cfg.PlayerBaseDamage, r.cfg.PlayerMaxChargeMult, chargeFraction, r.cfg.ProjectileSpeed, r.cfg.ProjectileTicks)
	r.projectiles = append(r.projectiles, pr)
	r.emit("player-fired", playerFiredPayload{PlayerID: p.ID, Power: power, TurretAngle: p.TurretAngle})
}

type playerFiredPayload struct {
	PlayerID    string  `json:"playerId"`
	Power       float64 `json:"power"`
	TurretAngle float64 `json:"turretAngle"`
}

func (r *GameRoom) exchangeBots(dt float64) {
	outputs := r.botDispatch.Collect(dt)
	for id, out := range outputs {
		h, ok := r.bots[id]
		if !ok {
			continue
		}
		h.State.Theta, h.State.Phi = out.Self[0], out.Self[1]
		h.State.Heading, h.State.Speed = out.Self[2], out.Self[3]
		h.State.TurretAngle, h.State.HP = out.Self[4], out.Self[5]
		h.State.CurrentClusterID = r.clusterIDAt(h.State.Theta, h.State.Phi)
		h.TileIndex = r.nearestTile(h.State.Theta, h.State.Phi)
		if out.WantsFire {
			r.tryFireBot(h.State)
		}
	}

	inputs := make(map[string]BotWorkerInput, len(r.bots))
	for id, h := range r.bots {
		nearby := r.nearbyTanksFor(h.State.Theta, h.State.Phi, id)
		field := r.flowMgr.GetOrCreate(r.goalTileFor(h))
		goalT, goalP, ok := field.Direction(h.TileIndex)
		if !ok {
			goalT, goalP = h.State.Theta, h.State.Phi
		}
		inputs[id] = BotWorkerInput{
			Tick:      r.tick,
			Self:      [6]float64{h.State.Theta, h.State.Phi, h.State.Heading, h.State.Speed, h.State.TurretAngle, h.State.HP},
			IsDead:    h.State.IsDead,
			ClusterID: h.State.CurrentClusterID,
			TileIndex: h.TileIndex,
			Nearby:    nearby,
			GoalTheta: goalT,
			GoalPhi:   goalP,
		}
	}
	r.botDispatch.Dispatch(r.tick, inputs)
}

// goalTileFor picks the nearest uncontested or contested portal/cluster tile
// for a bot to push toward; a flat default keeps bots converging on portals
// when no cluster is actively contested.
func (r *GameRoom) goalTileFor(h *BotHandle) int {
	if len(r.planet.Portals) == 0 {
		return h.TileIndex
	}
	return r.planet.Portals[int(h.State.Theta*1000)%len(r.planet.Portals)]
}

func (r *GameRoom) nearbyTanksFor(theta, phi float64, excludeID string) []BotTargetCandidate {
	var out []BotTargetCandidate
	for id, p := range r.players {
		if id == excludeID || p.WaitingForPortal {
			continue
		}
		out = append(out, BotTargetCandidate{ID: id, Faction: p.Faction, Theta: p.Theta, Phi: p.Phi, Alive: !p.IsDead})
	}
	for id, h := range r.bots {
		if id == excludeID {
			continue
		}
		out = append(out, BotTargetCandidate{ID: id, Faction: h.State.Faction, Theta: h.State.Theta, Phi: h.State.Phi, Alive: !h.State.IsDead})
	}
	return out
}

func (r *GameRoom) tryFireBot(b *BotState) {
	if len(r.projectiles) >= r.cfg.MaxProjectiles {
		return
	}
	id := fmt.Sprintf("%s-%d", b.ID, r.tick)
	pr := NewProjectile(id, b.ID, b.Faction, b.Theta, b.Phi, b.TurretAngle,
		r.cfg.Bot.BaseDamage, r.cfg.Bot.MaxChargeMult, 0, r.cfg.ProjectileSpeed, r.cfg.ProjectileTicks)
	r.projectiles = append(r.projectiles, pr)
}

func (r *GameRoom) resolveProjectiles() {
	r.grid.Clear()
	candidateIndex := make([]HitCandidate, 0, len(r.players)+len(r.bots))
	idByIndex := make([]string, 0, cap(candidateIndex))
	for id, p := range r.players {
		if p.WaitingForPortal {
			continue
		}
		idx := uint32(len(candidateIndex))
		candidateIndex = append(candidateIndex, HitCandidate{ID: id, Faction: p.Faction, Theta: p.Theta, Phi: p.Phi, Radius: r.cfg.PlayerRadius, Alive: !p.IsDead})
		idByIndex = append(idByIndex, id)
		r.grid.Insert(idx, p.Theta, p.Phi)
	}
	for id, h := range r.bots {
		idx := uint32(len(candidateIndex))
		candidateIndex = append(candidateIndex, HitCandidate{ID: id, Faction: h.State.Faction, Theta: h.State.Theta, Phi: h.State.Phi, Radius: r.cfg.PlayerRadius, Alive: !h.State.IsDead})
		idByIndex = append(idByIndex, id)
		r.grid.Insert(idx, h.State.Theta, h.State.Phi)
	}

	candidatesFor := func(pr *Projectile) []HitCandidate {
		ids := r.grid.QueryNeighbors(pr.Theta, pr.Phi)
		out := make([]HitCandidate, 0, len(ids))
		for _, idx := range ids {
			out = append(out, candidateIndex[idx])
		}
		return out
	}

	applyDamage := func(targetID string, dmg float64) bool {
		if p, ok := r.players[targetID]; ok {
			return p.ApplyDamage(dmg)
		}
		if h, ok := r.bots[targetID]; ok {
			h.State.HP -= dmg
			lethal := h.State.HP <= 0
			if lethal {
				h.State.IsDead = true
				h.State.HP = 0
			}
			return lethal
		}
		return false
	}

	var advanced []*Projectile
	for _, pr := range r.projectiles {
		if pr.Advance(1.0 / float64(r.cfg.TickRate)) {
			continue
		}
		advanced = append(advanced, pr)
	}

	results, survivors := ResolveProjectileHits(advanced, candidatesFor, r.planet.Radius, applyDamage)
	r.projectiles = survivors

	for _, res := range results {
		r.economy.AwardDamage(res.OwnerID, res.Damage)
		r.events.Record(Event{Type: EventHit, ActorID: res.OwnerID, TargetID: res.TargetID, Detail: fmt.Sprintf("%.1f", res.Damage)})
		r.emit("player-hit", hitPayload{
			AttackerID: res.OwnerID,
			TargetID:   res.TargetID,
			Damage:     res.Damage,
			HPAfter:    r.hpOf(res.TargetID),
		})
		if res.Lethal {
			r.economy.AwardKill(res.OwnerID)
			if p, ok := r.players[res.OwnerID]; ok {
				p.Kills++
			}
			r.events.Record(Event{Type: EventKill, ActorID: res.OwnerID, TargetID: res.TargetID})
			r.emit("player-killed", killPayload{
				VictimID:      res.TargetID,
				KillerID:      res.OwnerID,
				KillerFaction: int(r.factionOf(res.OwnerID)),
			})
		}
	}
}

type hitPayload struct {
	AttackerID string  `json:"attackerId"`
	TargetID   string  `json:"targetId"`
	Damage     float64 `json:"damage"`
	HPAfter    float64 `json:"hpAfter"`
}

type killPayload struct {
	VictimID      string `json:"victimId"`
	KillerID      string `json:"killerId"`
	KillerFaction int    `json:"killerFaction"`
}

func (r *GameRoom) hpOf(id string) float64 {
	if p, ok := r.players[id]; ok {
		return p.HP
	}
	if h, ok := r.bots[id]; ok {
		return h.State.HP
	}
	return 0
}

func (r *GameRoom) factionOf(id string) Faction {
	if p, ok := r.players[id]; ok {
		return p.Faction
	}
	if h, ok := r.bots[id]; ok {
		return h.State.Faction
	}
	return FactionNone
}

func (r *GameRoom) advanceCapture() {
	presence := make(map[int]Presence)
	accumulate := func(id string, faction Faction, clusterID int) {
		if clusterID < 0 {
			return
		}
		idx := ticIndex(faction)
		if idx < 0 {
			return
		}
		pr := presence[clusterID]
		pr.Counts[idx]++
		if pr.ContributorID[idx] == "" || id < pr.ContributorID[idx] {
			pr.ContributorID[idx] = id
		}
		presence[clusterID] = pr
	}
	for id, p := range r.players {
		if !p.IsDead && !p.WaitingForPortal {
			accumulate(id, p.Faction, p.CurrentClusterID)
		}
	}
	for id, h := range r.bots {
		if !h.State.IsDead {
			accumulate(id, h.State.Faction, h.State.CurrentClusterID)
		}
	}

	changes, awards := r.capture.AdvanceTick(r.planet, presence)
	for _, c := range changes {
		r.events.Record(Event{Type: EventTerritoryChange, ClusterID: c.ClusterID, Detail: c.Owner.String()})
		r.emit("territory-update", territoryUpdatePayload{
			ClusterID: c.ClusterID,
			Owner:     int(c.Owner),
			Tics:      c.Tics,
			Momentum:  c.Momentum,
		})
	}
	for _, a := range awards {
		r.emit("tic-crypto", ticCryptoPayload{
			PlayerID:  a.TankID,
			ClusterID: a.ClusterID,
			Amount:    a.Amount,
		})
	}
}

type ticCryptoPayload struct {
	PlayerID  string `json:"playerId"`
	ClusterID int    `json:"clusterId"`
	Amount    int    `json:"amount"`
}

type territoryUpdatePayload struct {
	ClusterID int        `json:"clusterId"`
	Owner     int        `json:"owner"`
	Tics      [3]int     `json:"tics"`
	Momentum  [3]float64 `json:"momentum"`
}

func (r *GameRoom) recomputeCommanders() {
	candidates := make([]CommanderCandidate, 0, len(r.players))
	for id, p := range r.players {
		bal, _ := r.economy.Balance(id)
		candidates = append(candidates, CommanderCandidate{TankID: id, Faction: p.Faction, Crypto: bal, JoinedAt: p.JoinedAt, Connected: true})
	}
	promoted, demoted := r.commanders.Recompute(candidates)
	for _, id := range promoted {
		r.economy.SetCommander(id, true)
		faction := FactionNone
		if p, ok := r.players[id]; ok {
			p.Rank = "commander"
			faction = p.Faction
		}
		r.emit("commander-update", commanderUpdatePayload{PlayerID: id, Faction: int(faction), IsCommander: true})
	}
	for _, id := range demoted {
		r.economy.SetCommander(id, false)
		faction := FactionNone
		if p, ok := r.players[id]; ok {
			p.Rank = "crew"
			faction = p.Faction
		}
		r.emit("commander-update", commanderUpdatePayload{PlayerID: id, Faction: int(faction), IsCommander: false})
	}
}

type commanderUpdatePayload struct {
	PlayerID    string `json:"playerId"`
	Faction     int    `json:"faction"`
	IsCommander bool   `json:"isCommander"`
}

func (r *GameRoom) composeSnapshot() {
	snap := r.pool.Acquire()
	if snap.Players == nil {
		snap.Players = make(map[string]broadcast.TankSnapshot, len(r.players)+len(r.bots))
	} else {
		for id := range snap.Players {
			delete(snap.Players, id)
		}
	}
	snap.Projectiles = snap.Projectiles[:0]
	snap.Clusters = snap.Clusters[:0]

	for id, p := range r.players {
		d := 0
		switch {
		case p.WaitingForPortal:
			d = 2
		case p.IsDead:
			d = 1
		}
		snap.Players[id] = broadcast.TankSnapshot{
			T: p.Theta, P: p.Phi, H: p.Heading, S: p.Speed,
			Ta: p.TurretAngle, Hp: p.HP, D: d, F: int(p.Faction), R: p.Rank, Seq: p.LastInputSeq,
		}
	}
	for id, h := range r.bots {
		d := 0
		if h.State.IsDead {
			d = 1
		}
		snap.Players[id] = broadcast.TankSnapshot{
			T: h.State.Theta, P: h.State.Phi, H: h.State.Heading, S: h.State.Speed,
			Ta: h.State.TurretAngle, Hp: h.State.HP, D: d, F: int(h.State.Faction),
		}
	}
	for _, pr := range r.projectiles {
		snap.Projectiles = append(snap.Projectiles, broadcast.ProjectileSnapshot{ID: pr.ID, T: pr.Theta, P: pr.Phi})
	}
	for _, c := range r.planet.Clusters {
		leadFaction, leadTics := 0, 0
		for i, t := range c.Capture.Tics {
			if t > leadTics {
				leadTics = t
				leadFaction = i + 1
			}
		}
		ma := 0
		for _, m := range c.Capture.lastMomentum {
			if m > 0 {
				ma = 1
			} else if m < 0 && ma == 0 {
				ma = -1
			}
		}
		sa := 0
		if c.SponsorID != "" {
			sa = 1
		}
		snap.Clusters = append(snap.Clusters, broadcast.ClusterSnapshot{ID: c.ID, F: leadFaction, Pr: leadTics, Ma: ma, Sa: sa})
	}

	snap.Pr = r.planetRotation
	snap.Ma = snap.Ma[:0]
	snap.Ma = append(snap.Ma, r.moonAngles[0], r.moonAngles[1], r.moonAngles[2])
	snap.Sa = snap.Sa[:0]
	snap.Sa = append(snap.Sa, r.stationAngle)

	r.pool.Publish(snap)
}

// Snapshot returns the most recently published broadcast state.
func (r *GameRoom) Snapshot() broadcast.Snapshot {
	return r.pool.Latest()
}

// Planet exposes the room's world geometry (read-only use: welcome packet,
// admin endpoints).
func (r *GameRoom) Planet() *Planet { return r.planet }

// PlayerCount returns the number of connected human players.
func (r *GameRoom) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// SetFaction changes a connected player's faction assignment mid-match.
func (r *GameRoom) SetFaction(id string, faction Faction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return fmt.Errorf("unknown player %q", id)
	}
	p.Faction = faction
	r.emit("player-faction-changed", playerFactionChangedPayload{PlayerID: id, Faction: int(faction)})
	return nil
}

// Tip transfers crypto between two connected players' economy ledgers.
func (r *GameRoom) Tip(fromID, toID string, amount int) bool {
	return r.economy.Tip(fromID, toID, amount)
}

// ClusterCaptureInfo is one cluster's capture state for the welcome packet's
// initial capture snapshot.
type ClusterCaptureInfo struct {
	ClusterID int    `json:"clusterId"`
	Owner     int    `json:"owner"`
	Tics      [3]int `json:"tics"`
	Capacity  int    `json:"capacity"`
}

// CaptureSnapshot returns the full per-cluster capture state, used to build
// the welcome packet so a joining client doesn't have to wait a tick for
// its first territory-update.
func (r *GameRoom) CaptureSnapshot() []ClusterCaptureInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ClusterCaptureInfo, 0, len(r.planet.Clusters))
	for _, c := range r.planet.Clusters {
		out = append(out, ClusterCaptureInfo{
			ClusterID: c.ID,
			Owner:     int(c.Capture.Owner),
			Tics:      c.Capture.Tics,
			Capacity:  c.Capacity,
		})
	}
	return out
}

// CommanderState returns the current commander tank id per faction, keyed
// by faction name.
func (r *GameRoom) CommanderState() map[string]string {
	return map[string]string{
		FactionRust.String():     r.commanders.CommanderOf(FactionRust),
		FactionCobalt.String():   r.commanders.CommanderOf(FactionCobalt),
		FactionViridian.String(): r.commanders.CommanderOf(FactionViridian),
	}
}

// IsCommander reports whether the given tank currently holds commander
// rank for its faction, used to authorize commander-only wire messages.
func (r *GameRoom) IsCommander(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return false
	}
	return r.commanders.CommanderOf(p.Faction) == id
}

// PlayerSummary is minimal info about one other connected player, sent in
// the welcome packet so a joining client can render existing tanks before
// its first snapshot arrives.
type PlayerSummary struct {
	ID      string
	Name    string
	Faction int
}

// OtherPlayers returns a minimal summary of every connected player except
// excludeID.
func (r *GameRoom) OtherPlayers(excludeID string) []PlayerSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PlayerSummary, 0, len(r.players))
	for id, p := range r.players {
		if id == excludeID {
			continue
		}
		out = append(out, PlayerSummary{ID: id, Name: p.Name, Faction: int(p.Faction)})
	}
	return out
}

// PlayerName resolves a connected player's display name.
func (r *GameRoom) PlayerName(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return "", false
	}
	return p.Name, true
}
