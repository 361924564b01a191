package game

import (
	"encoding/json"
	"time"
)

// EventType classifies entries in the event log.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick
	EventTypeJoin
	EventTypeLeave
	EventTypeDeath
	EventTypeConsume
	EventTypeRoomCreated
	EventTypeRoomEnded
)

// EventVersion is bumped on incompatible payload changes.
const EventVersion uint8 = 1

// Event is one entry in the append-only event log.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`
	Tick      uint64    `json:"tick"`
	RoomID    string    `json:"roomId"`
	Payload   []byte    `json:"payload"`
}

func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeJoin:
		return "join"
	case EventTypeLeave:
		return "leave"
	case EventTypeDeath:
		return "death"
	case EventTypeConsume:
		return "consume"
	case EventTypeRoomCreated:
		return "room_created"
	case EventTypeRoomEnded:
		return "room_ended"
	default:
		return "unknown"
	}
}

// DeathCause names what killed a worm on the wire.
type DeathCause string

const (
	DeathByWall  DeathCause = "wall"
	DeathBySelf  DeathCause = "self"
	DeathByWorm  DeathCause = "worm"
	DeathByError DeathCause = "invariant"
)

// DeathEvent is queued by the collision resolver and carried in the next
// broadcast.
type DeathEvent struct {
	WormID     string     `json:"wormId"`
	Name       string     `json:"name"`
	Pos        Vec2       `json:"pos"`
	Cause      DeathCause `json:"cause"`
	KillerID   string     `json:"killerId,omitempty"`
	KillerName string     `json:"killerName,omitempty"`
	FinalScore int        `json:"finalScore"`
	Tick       uint64     `json:"tick"`
}

// JoinPayload records a worm entering a room.
type JoinPayload struct {
	WormID string  `json:"wormId"`
	Name   string  `json:"name"`
	IsBot  bool    `json:"isBot"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// RoomEndPayload records why a room ended and the final standings.
type RoomEndPayload struct {
	Reason  string         `json:"reason"`
	Results []PlayerResult `json:"results"`
}

// EncodePayload marshals a payload to JSON bytes, nil on failure.
func EncodePayload(payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent stamps an event with the current wall time.
func NewEvent(eventType EventType, tick uint64, roomID string, payload any) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Tick:      tick,
		RoomID:    roomID,
		Payload:   EncodePayload(payload),
	}
}
