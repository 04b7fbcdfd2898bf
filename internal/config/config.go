// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all game server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds tick-loop timing settings.
type SimConfig struct {
	TickRate int // ticks per second (target 20 Hz)
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{TickRate: 20}
}

// SimFromEnv returns sim configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	return cfg
}

// =============================================================================
// PLANET / WORLDGEN CONFIGURATION
// =============================================================================

// PlanetConfig holds deterministic world-generation settings.
type PlanetConfig struct {
	WorldGenSeed  int64
	TerrainSeed   int64
	Subdivision   int     // icosahedron subdivision count
	Radius        float64 // world-unit sphere radius
	PortalCount   int
	ClusterTarget int // approximate tiles per cluster
}

// DefaultPlanet returns the default planet configuration.
func DefaultPlanet() PlanetConfig {
	return PlanetConfig{
		WorldGenSeed:  1,
		TerrainSeed:   2,
		Subdivision:   4,
		Radius:        1000.0,
		PortalCount:   12,
		ClusterTarget: 12,
	}
}

// PlanetFromEnv returns planet configuration with environment variable overrides.
func PlanetFromEnv() PlanetConfig {
	cfg := DefaultPlanet()
	if v := getEnvInt64("WORLD_GEN_SEED", 0); v != 0 {
		cfg.WorldGenSeed = v
	}
	if v := getEnvInt64("TERRAIN_SEED", 0); v != 0 {
		cfg.TerrainSeed = v
	}
	if v := getEnvInt("WORLD_SUBDIVISION", 0); v > 0 {
		cfg.Subdivision = v
	}
	if v := getEnvFloat("WORLD_RADIUS", 0); v > 0 {
		cfg.Radius = v
	}
	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxHumanPlayers  int // hard cap on connected human players
	MaxTotalTanks    int // target humans + bots
	MaxProjectiles   int // active projectile cap (global)
	MaxPerOwnerShots int // in-flight projectile cap per owner
	MaxQueuedInputs  int // per-connection input queue cap
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxHumanPlayers:  200,
		MaxTotalTanks:    120,
		MaxProjectiles:   400,
		MaxPerOwnerShots: 6,
		MaxQueuedInputs:  32,
	}
}

// =============================================================================
// ECONOMY CONFIGURATION
// =============================================================================

// EconomyConfig holds crypto award/level-curve tuning.
type EconomyConfig struct {
	DamageValue       float64 // crypto per point of damage dealt
	KillBonus         int     // flat crypto on lethal hit
	CommanderMult     float64 // multiplier applied to damage/kill on commander targets
	TicCrypto         int     // base crypto per tic-contribution per second
	HoldingCrypto     int     // crypto per held cluster per minute
	BaseCost          float64 // level curve base
	Growth            float64 // level curve growth factor
	DebtFloor         int     // most negative balance allowed
	FireBaseCost      int     // flat crypto cost of firing
	MaxTipAmount      int
}

// DefaultEconomy returns the default economy configuration.
func DefaultEconomy() EconomyConfig {
	return EconomyConfig{
		DamageValue:   1.0,
		KillBonus:     50,
		CommanderMult: 10.0,
		TicCrypto:     1,
		HoldingCrypto: 5,
		BaseCost:      100,
		Growth:        1.35,
		DebtFloor:     -500,
		FireBaseCost:  5,
		MaxTipAmount:  5000,
	}
}

// =============================================================================
// COMBAT CONFIGURATION
// =============================================================================

// CombatConfig holds movement, turret and projectile tuning shared by
// player and bot tanks.
type CombatConfig struct {
	PlayerRadius        float64 // world-unit collision radius
	TankTurnRate        float64 // radians/sec
	TankMoveSpeed       float64 // world units/sec
	ProjectileSpeed     float64 // radians/sec of great-circle travel
	ProjectileTicks     int     // lifetime in ticks before expiry
	PlayerBaseDamage    float64 // damage per unmodified human shot
	PlayerMaxChargeMult float64 // damage multiplier at full charge (power 10)
}

// DefaultCombat returns the default combat configuration.
func DefaultCombat() CombatConfig {
	return CombatConfig{
		PlayerRadius:        15.0,
		TankTurnRate:        2.0,
		TankMoveSpeed:       40.0,
		ProjectileSpeed:     0.9,
		ProjectileTicks:     60,
		PlayerBaseDamage:    20,
		PlayerMaxChargeMult: 3.0,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP/transport server settings.
type ServerConfig struct {
	Port int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{Port: 3000}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	return cfg
}

// =============================================================================
// PERSISTENCE CONFIGURATION
// =============================================================================

// PersistenceConfig holds profile-store and sponsor-store paths.
type PersistenceConfig struct {
	ProfileDBPath     string // sqlite DSN standing in for the external profile store
	SponsorJSONPath   string
	SponsorImageDir   string
	DebounceSeconds   int
}

// DefaultPersistence returns the default persistence configuration.
func DefaultPersistence() PersistenceConfig {
	return PersistenceConfig{
		ProfileDBPath:   "profiles.db",
		SponsorJSONPath: "sponsors.json",
		SponsorImageDir: "sponsor-textures",
		DebounceSeconds: 10,
	}
}

// PersistenceFromEnv returns persistence configuration with environment overrides.
func PersistenceFromEnv() PersistenceConfig {
	cfg := DefaultPersistence()
	if v := os.Getenv("PROFILE_DB_PATH"); v != "" {
		cfg.ProfileDBPath = v
	}
	if v := os.Getenv("SPONSOR_JSON_PATH"); v != "" {
		cfg.SponsorJSONPath = v
	}
	if v := os.Getenv("SPONSOR_IMAGE_DIR"); v != "" {
		cfg.SponsorImageDir = v
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim         SimConfig
	Planet      PlanetConfig
	Limits      ResourceLimits
	Economy     EconomyConfig
	Combat      CombatConfig
	Server      ServerConfig
	Persistence PersistenceConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:         SimFromEnv(),
		Planet:      PlanetFromEnv(),
		Limits:      DefaultLimits(),
		Economy:     DefaultEconomy(),
		Combat:      DefaultCombat(),
		Server:      ServerFromEnv(),
		Persistence: PersistenceFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
