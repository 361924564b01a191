package api

import (
	"net/http"
	"strings"

	"worm-arena/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RegistryInterface defines the room registry methods used by the API.
// This interface enables mocking for tests without spinning up room
// goroutines. Keep this minimal - only include methods the API layer
// actually calls.
type RegistryInterface interface {
	// CreateRoom creates and starts a room, returning its id
	CreateRoom(opts game.RoomOptions) string
	// List returns public info for every active room
	List() []game.RoomInfo
	// Snapshot returns the latest published snapshot (nil before first tick)
	Snapshot(roomID string) (*game.Snapshot, error)
	// JoinRoom adds a player to a room
	JoinRoom(roomID, name string) (*game.JoinedWorm, error)
	// LeaveRoom removes a player from a room
	LeaveRoom(roomID, playerID string) error
	// RespawnPlayer replaces a player's dead worm
	RespawnPlayer(roomID, playerID string) (*game.JoinedWorm, error)
	// SubmitInput buffers a player's heading and boost for the next tick
	SubmitInput(roomID, playerID string, heading float64, boost bool) error
	// SetRoomBroadcast installs the transport's snapshot sink on a room
	SetRoomBroadcast(roomID string, fn func(*game.Snapshot)) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Registry: mockRegistry,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Registry is the room registry (required)
	Registry RegistryInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, allows any origin (the sim is authoritative, CORS is
	// not a security boundary here).
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	registry RegistryInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE except for the rate limiter cleanup
// goroutine when one is constructed here. Pass a RateLimiter you own to
// keep it fully side-effect free:
//   - No network listeners are opened
//   - No room goroutines are started
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	h := &routerHandlers{registry: cfg.Registry}

	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", h.handleCreateRoom)
			r.Get("/", h.handleListRooms)

			r.Route("/{roomID}", func(r chi.Router) {
				r.Get("/state", h.handleRoomState)
				r.Post("/join", h.handleJoin)
				r.Post("/leave", h.handleLeave)
				r.Post("/respawn", h.handleRespawn)
				r.Post("/input", h.handleInput)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

// ParseCORSOrigins splits a comma-separated origin list from config.
func ParseCORSOrigins(s string) []string {
	if s == "" || s == "*" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
