package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tankarena/server/internal/api"
	"github.com/tankarena/server/internal/bot"
	"github.com/tankarena/server/internal/broadcast"
	"github.com/tankarena/server/internal/config"
	"github.com/tankarena/server/internal/game"
	"github.com/tankarena/server/internal/profile"
	"github.com/tankarena/server/internal/sponsor"
)

// initialBotCount seeds each faction with a handful of AI tanks so the
// planet isn't empty before human players join.
const initialBotsPerFaction = 4

func main() {
	log.Println("================================")
	log.Println(" TANK ARENA - GAME SERVER")
	log.Println("================================")

	cfg := config.Load()

	planet := game.GenerateWorld(
		cfg.Planet.WorldGenSeed, cfg.Planet.TerrainSeed,
		cfg.Planet.Subdivision, cfg.Planet.Radius,
		cfg.Planet.ClusterTarget, cfg.Planet.PortalCount,
	)
	log.Printf("world generated: %d tiles, %d clusters, %d portals", len(planet.Tiles), len(planet.Clusters), len(planet.Portals))

	eventLogPath := getEnvWithDefault("EVENT_LOG_PATH", "events.jsonl")
	events := game.NewEventLog(4096, eventLogPath)

	bridge := bot.NewBridge(game.DefaultBotConfig())

	roomCfg := game.RoomConfig{
		TickRate:         cfg.Sim.TickRate,
		MaxHumanPlayers:  cfg.Limits.MaxHumanPlayers,
		MaxTotalTanks:    cfg.Limits.MaxTotalTanks,
		MaxProjectiles:   cfg.Limits.MaxProjectiles,
		MaxPerOwnerShots: cfg.Limits.MaxPerOwnerShots,
		MaxQueuedInputs:  cfg.Limits.MaxQueuedInputs,
		Economy:          toGameEconomy(cfg.Economy),
		Bot:              game.DefaultBotConfig(),
		ProjectileSpeed:  cfg.Combat.ProjectileSpeed,
		ProjectileTicks:  cfg.Combat.ProjectileTicks,
		PlayerRadius:        cfg.Combat.PlayerRadius,
		TankTurnRate:        cfg.Combat.TankTurnRate,
		TankMoveSpeed:       cfg.Combat.TankMoveSpeed,
		PlayerBaseDamage:    cfg.Combat.PlayerBaseDamage,
		PlayerMaxChargeMult: cfg.Combat.PlayerMaxChargeMult,
	}
	room := game.NewGameRoom(roomCfg, planet, bridge, events)

	seedBots(room, planet)

	profileStore, err := profile.Open(cfg.Persistence.ProfileDBPath, time.Duration(cfg.Persistence.DebounceSeconds)*time.Second)
	if err != nil {
		log.Fatalf("profile store: %v", err)
	}
	defer profileStore.Close()

	sponsorStore, err := sponsor.NewStore(cfg.Persistence.SponsorJSONPath, cfg.Persistence.SponsorImageDir, "/sponsor-textures")
	if err != nil {
		log.Fatalf("sponsor store: %v", err)
	}

	engine := &roomEngine{room: room, profiles: profileStore}

	adminUser := getEnvWithDefault("ADMIN_USERNAME", "admin")
	adminPass := getEnvWithDefault("ADMIN_PASSWORD", "")
	adminAuthEnabled := os.Getenv("ADMIN_AUTH_ENABLED") == "true"
	var sessionMgr *api.SessionManager
	if adminAuthEnabled {
		if adminPass == "" {
			log.Println("ADMIN_AUTH_ENABLED is set but ADMIN_PASSWORD is empty; admin routes will reject all logins")
		}
		sessionMgr = api.NewSessionManager(adminUser, adminPass)
		log.Printf("admin authentication enabled for user %q", adminUser)
	} else {
		log.Println("admin authentication disabled (set ADMIN_AUTH_ENABLED=true to enable)")
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		api.SetAllowedOrigins(splitCSV(origins))
	}
	if os.Getenv("TRUST_PROXY_HEADERS") == "true" {
		api.SetTrustProxyHeaders(true)
	}

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(engine, &sponsorAdapter{store: sponsorStore}, sessionMgr, adminAuthEnabled, cfg.Sim.TickRate)
	room.SetSink(server.Hub())

	sponsorAdapterForReload := &sponsorAdapter{store: sponsorStore}
	sponsorStore.SetReloadHook(func() {
		log.Println("sponsors reloaded")
		server.Hub().Emit("sponsors-reloaded", sponsorAdapterForReload.List())
	})

	go room.Run()
	log.Println("game room started")

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	go func() {
		log.Printf("listening on %s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("server start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	room.Stop()
	events.Close()
	server.Stop()
	log.Println("goodbye")
}

// toGameEconomy converts the env-configurable economy tuning into the
// package-local shape internal/game uses, keeping internal/game free of
// an internal/config import.
func toGameEconomy(c config.EconomyConfig) game.EconomyConfig {
	return game.EconomyConfig{
		DamageValue:   c.DamageValue,
		KillBonus:     c.KillBonus,
		CommanderMult: c.CommanderMult,
		TicCrypto:     c.TicCrypto,
		HoldingCrypto: c.HoldingCrypto,
		BaseCost:      c.BaseCost,
		Growth:        c.Growth,
		DebtFloor:     c.DebtFloor,
		FireBaseCost:  c.FireBaseCost,
		MaxTipAmount:  c.MaxTipAmount,
	}
}

func seedBots(room *game.GameRoom, planet *game.Planet) {
	seed := int64(1)
	for _, f := range []game.Faction{game.FactionRust, game.FactionCobalt, game.FactionViridian} {
		for i := 0; i < initialBotsPerFaction; i++ {
			room.SpawnBot(fmt.Sprintf("bot-%s-%d", f.String(), i), f, seed)
			seed++
		}
	}
}

// roomEngine adapts *game.GameRoom to the api.Engine interface, keeping
// internal/game free of any dependency on the transport layer.
type roomEngine struct {
	room     *game.GameRoom
	profiles *profile.Store
}

func (e *roomEngine) Join(id, name string, faction int) (api.WelcomePacket, error) {
	prof, _ := e.profiles.Load(id)
	if name == "" {
		name = prof.DisplayName
	}
	if name == "" {
		name = id
	}
	p, err := e.room.Join(id, name, game.Faction(faction))
	if err != nil {
		return api.WelcomePacket{}, err
	}
	others := e.room.OtherPlayers(p.ID)
	players := make([]api.OtherPlayerInfo, 0, len(others))
	for _, o := range others {
		players = append(players, api.OtherPlayerInfo{ID: o.ID, Name: o.Name, Faction: o.Faction})
	}
	return api.WelcomePacket{
		PlayerID:   p.ID,
		World:      e.room.Planet().Describe(),
		Capture:    e.room.CaptureSnapshot(),
		Commanders: e.room.CommanderState(),
		Players:    players,
	}, nil
}

func (e *roomEngine) Leave(id string) {
	e.room.Leave(id)
}

func (e *roomEngine) HandleInput(id string, raw json.RawMessage) error {
	var cmd game.InputCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return err
	}
	e.room.EnqueueInput(id, cmd)
	return nil
}

func (e *roomEngine) Fire(id string, power, turretAngle float64) error {
	e.room.EnqueueFire(id, game.FireCommand{Power: power, TurretAngle: turretAngle})
	return nil
}

func (e *roomEngine) IsCommander(id string) bool {
	return e.room.IsCommander(id)
}

func (e *roomEngine) ChoosePortal(id string, tileIndex int) error {
	return e.room.ChoosePortal(id, tileIndex)
}

func (e *roomEngine) SetFaction(id string, faction int) error {
	return e.room.SetFaction(id, game.Faction(faction))
}

func (e *roomEngine) Tip(fromID, toID string, amount int) bool {
	return e.room.Tip(fromID, toID, amount)
}

func (e *roomEngine) Snapshot() broadcast.Snapshot {
	return e.room.Snapshot()
}

func (e *roomEngine) PlayerCount() int {
	return e.room.PlayerCount()
}

func (e *roomEngine) PlayerName(id string) (string, bool) {
	return e.room.PlayerName(id)
}

// sponsorAdapter translates between the sponsor package's richer Sponsor
// type and internal/api's minimal wire-level SponsorRecord, keeping
// internal/api independent of internal/sponsor's pixel-baking concerns.
type sponsorAdapter struct {
	store *sponsor.Store
}

func (a *sponsorAdapter) List() []api.SponsorRecord {
	var out []api.SponsorRecord
	for i, sp := range a.store.ListSlots(sponsor.KindBillboard) {
		if sp == nil {
			continue
		}
		out = append(out, toRecord(*sp, i))
	}
	for i, sp := range a.store.ListSlots(sponsor.KindMoon) {
		if sp == nil {
			continue
		}
		out = append(out, toRecord(*sp, i))
	}
	for clusterID, sp := range a.store.ListClusterSponsors() {
		out = append(out, toRecord(sp, clusterID))
	}
	return out
}

func (a *sponsorAdapter) Upsert(rec api.SponsorRecord) error {
	_, err := a.store.AssignCluster(rec.ClusterID, sponsor.Sponsor{
		ID:   rec.ID,
		Name: rec.Name,
	})
	return err
}

func (a *sponsorAdapter) Delete(id string) error {
	for clusterID, sp := range a.store.ListClusterSponsors() {
		if sp.ID == id {
			return a.store.ClearCluster(clusterID)
		}
	}
	return fmt.Errorf("sponsor: no cluster sponsor with id %q", id)
}

func toRecord(sp sponsor.Sponsor, fallbackID int) api.SponsorRecord {
	return api.SponsorRecord{
		ID:         sp.ID,
		Name:       sp.Name,
		ClusterID:  sp.ClusterID,
		TextureURL: sp.PatternURL,
	}
}

func getEnvWithDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
