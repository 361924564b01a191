package game

import (
	"context"
	"log"
	"time"
)

// PlayerResult is the final outcome for one participant, reported to the
// persistence bridge when a room ends.
type PlayerResult struct {
	PlayerID      string `json:"playerId"`
	Name          string `json:"name"`
	IsBot         bool   `json:"isBot"`
	FinalScore    int    `json:"finalScore"`
	SurvivalTicks uint64 `json:"survivalTicks"`
}

// RoomResult is the per-room batch handed to the bridge.
type RoomResult struct {
	RoomID  string         `json:"roomId"`
	EndTick uint64         `json:"endTick"`
	Reason  string         `json:"reason"`
	Results []PlayerResult `json:"results"`
}

// Bridge is the external persistence boundary. Implementations own
// durable storage, leaderboards, and reward issuance; the simulation only
// hands over final scores. Calls are best-effort: an error is logged and
// never retried, and the call must not assume the room still exists.
type Bridge interface {
	SaveResult(ctx context.Context, result RoomResult) error
}

// bridgeTimeout bounds a single SaveResult call so a hung external
// system cannot leak goroutines indefinitely.
const bridgeTimeout = 5 * time.Second

// notifyBridge fires a SaveResult without blocking room teardown.
func notifyBridge(bridge Bridge, result RoomResult) {
	if bridge == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), bridgeTimeout)
		defer cancel()
		if err := bridge.SaveResult(ctx, result); err != nil {
			log.Printf("persistence bridge failed for room %s: %v", result.RoomID, err)
		}
	}()
}

// LogBridge is the default Bridge: it only logs the outcome. Useful in
// development and as the fallback when no real bridge is configured.
type LogBridge struct{}

func (LogBridge) SaveResult(_ context.Context, result RoomResult) error {
	log.Printf("room %s ended (%s) with %d participants", result.RoomID, result.Reason, len(result.Results))
	return nil
}
