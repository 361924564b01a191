package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"worm-arena/internal/api"
	"worm-arena/internal/config"
	"worm-arena/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🐛 ================================")
	log.Println("🐛  WORM ARENA - SIM SERVER")
	log.Println("🐛 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	serverCfg := appConfig.Server
	arenaCfg := appConfig.Arena

	log.Printf("🎮 Arena defaults: %d players, %.0fpx base (%.0fpx max), %d Hz",
		arenaCfg.MaxPlayers, arenaCfg.BaseArenaSize, arenaCfg.MaxArenaSize, arenaCfg.TickRateHz)

	// Start event log
	events := game.NewEventLog()
	if serverCfg.EventLogPath != "" {
		if err := events.Start(serverCfg.EventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
			events = nil
		} else {
			log.Printf("📝 Event log: %s", serverCfg.EventLogPath)
		}
	} else {
		events = nil
	}

	// Start debug server (pprof + prometheus, localhost only)
	if serverCfg.DebugPort > 0 && os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = "127.0.0.1:" + strconv.Itoa(serverCfg.DebugPort)
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Room registry. Results go to the log bridge; swap in a real
	// persistence bridge here when one exists.
	registry := game.NewRegistry(nil, events, api.PromMetrics{})

	// Default room so clients have somewhere to land
	defaultRoom := registry.CreateRoom(arenaCfg)
	log.Printf("🏟️ Default room: %s", defaultRoom)

	server := api.NewServer(registry, api.ParseCORSOrigins(serverCfg.AllowedOrigins))

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(serverCfg.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	registry.Shutdown()
	if events != nil {
		events.Stop()
	}
	log.Println("👋 Goodbye!")
}
