package game

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns the set of active rooms. It routes the join/leave/input
// boundary to the owning room and tears rooms down when they end. Rooms
// are fully isolated from each other: the registry holds only the map,
// never room internals.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	bridge  Bridge
	events  *EventLog
	metrics Metrics

	// seedFn produces per-room RNG seeds; overridable in tests.
	seedFn func() int64
}

// RoomInfo is the public listing entry for one room.
type RoomInfo struct {
	ID      string  `json:"id"`
	State   string  `json:"state"`
	Players int     `json:"players"`
	Bounds  float64 `json:"bounds"`
	Tick    uint64  `json:"tick"`
}

// NewRegistry creates an empty registry. A nil bridge falls back to
// LogBridge; events and metrics may be nil.
func NewRegistry(bridge Bridge, events *EventLog, metrics Metrics) *Registry {
	if bridge == nil {
		bridge = LogBridge{}
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		bridge:  bridge,
		events:  events,
		metrics: metrics,
		seedFn:  func() int64 { return time.Now().UnixNano() },
	}
}

// CreateRoom creates and starts a room with the given options (zero
// values fall back to defaults) and returns its id.
func (reg *Registry) CreateRoom(opts RoomOptions) string {
	id := uuid.NewString()
	room := newRoom(id, opts, reg.seedFn(), reg.bridge, reg.events, reg.metrics)
	room.onEnd = reg.removeRoom

	reg.mu.Lock()
	reg.rooms[id] = room
	count := len(reg.rooms)
	reg.mu.Unlock()

	go room.Run()

	if reg.events != nil {
		reg.events.EmitSimple(EventTypeRoomCreated, 0, id, room.opts)
	}
	if reg.metrics != nil {
		reg.metrics.SetRooms(count)
	}
	log.Printf("room %s: created (%d rooms active)", id, count)
	return id
}

// removeRoom drops the registry entry once the room's clock has stopped.
func (reg *Registry) removeRoom(id string) {
	reg.mu.Lock()
	delete(reg.rooms, id)
	count := len(reg.rooms)
	reg.mu.Unlock()
	if reg.metrics != nil {
		reg.metrics.SetRooms(count)
	}
	log.Printf("room %s: removed (%d rooms active)", id, count)
}

// Room returns the live room by id, or nil.
func (reg *Registry) Room(id string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[id]
}

// List returns public info for every active room.
func (reg *Registry) List() []RoomInfo {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]RoomInfo, 0, len(reg.rooms))
	for id, room := range reg.rooms {
		info := RoomInfo{ID: id}
		if snap := room.LatestSnapshot(); snap != nil {
			info.State = snap.State
			info.Players = len(snap.Worms)
			info.Bounds = snap.Bounds
			info.Tick = snap.Tick
		} else {
			info.State = StateWaiting.String()
			info.Bounds = room.opts.BaseArenaSize
		}
		out = append(out, info)
	}
	return out
}

// JoinRoom adds a player to a room.
func (reg *Registry) JoinRoom(roomID, name string) (*JoinedWorm, error) {
	room := reg.Room(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room.Join(name)
}

// LeaveRoom removes a player from a room.
func (reg *Registry) LeaveRoom(roomID, playerID string) error {
	room := reg.Room(roomID)
	if room == nil {
		return ErrRoomNotFound
	}
	return room.Leave(playerID)
}

// RespawnPlayer replaces a player's dead worm.
func (reg *Registry) RespawnPlayer(roomID, playerID string) (*JoinedWorm, error) {
	room := reg.Room(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room.Respawn(playerID)
}

// SubmitInput buffers a player's heading and boost for the next tick.
func (reg *Registry) SubmitInput(roomID, playerID string, heading float64, boost bool) error {
	room := reg.Room(roomID)
	if room == nil {
		return ErrRoomNotFound
	}
	return room.SubmitInput(playerID, heading, boost)
}

// Snapshot returns the latest snapshot for a room.
func (reg *Registry) Snapshot(roomID string) (*Snapshot, error) {
	room := reg.Room(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room.LatestSnapshot(), nil
}

// SetRoomBroadcast installs the transport's snapshot sink on a room.
func (reg *Registry) SetRoomBroadcast(roomID string, fn func(*Snapshot)) error {
	room := reg.Room(roomID)
	if room == nil {
		return ErrRoomNotFound
	}
	room.SetBroadcast(fn)
	return nil
}

// Shutdown stops every room. Used on process exit.
func (reg *Registry) Shutdown() {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()
	for _, room := range rooms {
		room.Stop()
	}
}
