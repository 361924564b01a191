package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"worm-arena/internal/game"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers.
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var opts game.RoomOptions
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeError(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}

	id := h.registry.CreateRoom(opts)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"roomId": id})
}

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"rooms": h.registry.List()})
}

func (h *routerHandlers) handleRoomState(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	snap, err := h.registry.Snapshot(roomID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if snap == nil {
		// Room exists but the first tick has not published yet
		writeError(w, "State not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleJoin(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "Name is required", http.StatusBadRequest)
		return
	}

	joined, err := h.registry.JoinRoom(roomID, req.Name)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, joined)
}

func (h *routerHandlers) handleLeave(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.registry.LeaveRoom(roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleRespawn(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	joined, err := h.registry.RespawnPlayer(roomID, req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, joined)
}

// handleInput is the HTTP fallback for clients without WebSocket.
// The normal input path is the per-room socket.
func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req struct {
		PlayerID string  `json:"playerId"`
		Heading  float64 `json:"h"`
		Boost    bool    `json:"b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.registry.SubmitInput(roomID, req.PlayerID, req.Heading, req.Boost); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeGameError maps registry errors to HTTP status codes.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, game.ErrRoomFull):
		writeError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, game.ErrRoomEnded):
		writeError(w, err.Error(), http.StatusGone)
	case errors.Is(err, game.ErrUnknownPlayer):
		writeError(w, err.Error(), http.StatusNotFound)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
