// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all server and arena settings.
//
// IMPORTANT: When changing defaults, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"

	"worm-arena/internal/game"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	DebugPort       int    // localhost-only pprof/metrics listener, 0 disables
	AllowedOrigins  string // comma-separated CORS origins, "*" for any
	EventLogPath    string // JSONL event log file, empty disables
	ShutdownSeconds int    // graceful shutdown window
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:            3000,
		DebugPort:       6060,
		AllowedOrigins:  "*",
		EventLogPath:    "events.jsonl",
		ShutdownSeconds: 10,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if p := getEnvInt("DEBUG_PORT", -1); p >= 0 {
		cfg.DebugPort = p
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = v
	}
	if v, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = v
	}
	if s := getEnvInt("SHUTDOWN_SECONDS", 0); s > 0 {
		cfg.ShutdownSeconds = s
	}

	return cfg
}

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaFromEnv returns the default room options with environment variable
// overrides. Per-room options supplied at creation time still win over these.
func ArenaFromEnv() game.RoomOptions {
	opts := game.DefaultRoomOptions()

	if n := getEnvInt("ARENA_MAX_PLAYERS", 0); n > 0 {
		opts.MaxPlayers = n
	}
	if v := getEnvFloat("ARENA_BASE_SIZE", 0); v > 0 {
		opts.BaseArenaSize = v
	}
	if v := getEnvFloat("ARENA_PER_PLAYER_GROWTH", -1); v >= 0 {
		opts.PerPlayerGrowth = v
	}
	if v := getEnvFloat("ARENA_MAX_SIZE", 0); v > 0 {
		opts.MaxArenaSize = v
	}
	if v := getEnvFloat("ARENA_BOT_RATIO", -1); v >= 0 {
		opts.BotRatio = v
	}
	if hz := getEnvInt("ARENA_TICK_RATE", 0); hz > 0 {
		opts.TickRateHz = hz
	}
	if hz := getEnvInt("ARENA_FALLBACK_TICK_RATE", 0); hz > 0 {
		opts.FallbackTickRateHz = hz
	}
	if t := getEnvInt("ARENA_TIME_LIMIT_TICKS", -1); t >= 0 {
		opts.TimeLimitTicks = uint64(t)
	}

	return opts
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server ServerConfig
	Arena  game.RoomOptions
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server: ServerFromEnv(),
		Arena:  ArenaFromEnv(),
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

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
