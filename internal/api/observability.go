package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player or per-room labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_rooms_active",
		Help: "Current number of live rooms",
	})

	deathsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_deaths_total",
		Help: "Total worm deaths across all rooms",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "ws_total_limit", "ws_ip_limit"

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket snapshots sent",
	})

	wsClientsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_clients_dropped_total",
		Help: "Clients disconnected for not keeping up with the broadcast rate",
	})
)

// PromMetrics is the game.Metrics implementation backed by the
// package-level Prometheus collectors.
type PromMetrics struct{}

func (PromMetrics) ObserveTickDuration(d time.Duration) { tickDuration.Observe(d.Seconds()) }
func (PromMetrics) IncDeaths()                          { deathsTotal.Inc() }
func (PromMetrics) SetRooms(n int)                      { roomsActive.Set(float64(n)) }

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // MUST stay localhost in production
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// StartDebugServer starts the internal observability server.
// CRITICAL: this MUST bind to localhost only to prevent pprof-based DoS.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("debug server disabled")
		return nil
	}

	// SECURITY: force localhost unless explicitly overridden
	host, _, _ := net.SplitHostPort(cfg.ListenAddr)
	if host != "127.0.0.1" && host != "localhost" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Printf("debug server starting on %s", cfg.ListenAddr)
		log.Printf("  pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("  metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Printf("debug server error: %v", err)
		}
	}()

	return nil
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections updates the WebSocket connection gauge
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments the WebSocket snapshot counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// IncrementWSDropped counts a slow client being disconnected
func IncrementWSDropped() {
	wsClientsDropped.Inc()
}
