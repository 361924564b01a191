package api

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support. It combines
// the REST router with the per-room snapshot streams.
type Server struct {
	registry    RegistryInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server with default production configuration.
//
// No goroutines are started and no listeners are opened until Start()
// is called, so tests can construct a Server and use Router() with
// httptest directly.
func NewServer(registry RegistryInterface, corsOrigins []string) *Server {
	s := &Server{
		registry: registry,
		wsHub:    NewWebSocketHub(registry),
	}

	// The limiter is tracked so Stop() can halt its cleanup goroutine
	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Registry:    registry,
		RateLimiter: s.rateLimiter,
		CORSOrigins: corsOrigins,
	})

	// WebSocket route needs the wsHub instance, so it can't be part of
	// the generic NewRouter factory.
	s.router.Get("/ws/{roomID}", func(w http.ResponseWriter, r *http.Request) {
		s.wsHub.HandleWebSocket(w, r, chi.URLParam(r, "roomID"))
	})

	return s
}

// Start begins serving on addr. Blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	log.Printf("API server starting on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the HTTP handler for use with httptest.
//
// Example:
//
//	server := api.NewServer(registry, nil)
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/rooms")
func (s *Server) Router() http.Handler {
	return s.router
}
