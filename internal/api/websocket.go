package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"worm-arena/internal/game"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 2000

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// clientSendBuffer is the per-client outbound queue. A client that
	// falls this many snapshots behind is disconnected rather than
	// allowed to stall the broadcast.
	clientSendBuffer = 16

	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The simulation is authoritative and join requires no credentials,
	// so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one socket subscribed to one room's snapshot stream.
type wsClient struct {
	conn     *websocket.Conn
	ip       string
	playerID string // empty for spectators
	send     chan []byte
	dropOnce sync.Once
}

// roomHub fans one room's snapshots out to its subscribed sockets.
type roomHub struct {
	wh      *WebSocketHub
	roomID  string
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func (h *roomHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// broadcastSnapshot is installed on the room as its snapshot sink. It
// runs on the room's tick goroutine, so it must never block: the
// snapshot is marshalled once and queued per client, and clients whose
// queue is full are dropped.
func (h *roomHub) broadcastSnapshot(snap *game.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}

	var slow []*wsClient
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	IncrementWSMessages()

	for _, c := range slow {
		log.Printf("room %s: dropping slow websocket client %s", h.roomID, c.ip)
		IncrementWSDropped()
		h.wh.dropClient(h, c)
	}
}

// WebSocketHub manages per-room snapshot streams with DoS protection.
type WebSocketHub struct {
	registry RegistryInterface

	mu   sync.Mutex
	hubs map[string]*roomHub

	total     int // connected sockets across all rooms
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub with connection limiting.
func NewWebSocketHub(registry RegistryInterface) *WebSocketHub {
	return &WebSocketHub{
		registry:  registry,
		hubs:      make(map[string]*roomHub),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// hubFor returns the room's hub, creating it and installing the
// broadcast sink on first use. Returns an error if the room is gone.
func (wh *WebSocketHub) hubFor(roomID string) (*roomHub, error) {
	wh.mu.Lock()
	defer wh.mu.Unlock()

	if hub, ok := wh.hubs[roomID]; ok {
		return hub, nil
	}

	hub := &roomHub{wh: wh, roomID: roomID, clients: make(map[*wsClient]struct{})}
	if err := wh.registry.SetRoomBroadcast(roomID, hub.broadcastSnapshot); err != nil {
		return nil, err
	}
	wh.hubs[roomID] = hub
	return hub, nil
}

// dropClient is the single teardown path for a socket. The client is
// removed from the hub BEFORE its send channel is closed, so a
// concurrent broadcast can never write to a closed channel.
func (wh *WebSocketHub) dropClient(hub *roomHub, c *wsClient) {
	c.dropOnce.Do(func() {
		hub.mu.Lock()
		delete(hub.clients, c)
		remaining := len(hub.clients)
		hub.mu.Unlock()

		close(c.send)
		wh.wsLimiter.Release(c.ip)

		wh.mu.Lock()
		wh.total--
		UpdateWSConnections(wh.total)
		if remaining == 0 && wh.hubs[hub.roomID] == hub {
			// Last subscriber gone; a future connection recreates the
			// hub and reinstalls the broadcast sink.
			delete(wh.hubs, hub.roomID)
		}
		wh.mu.Unlock()
	})
}

// HandleWebSocket upgrades GET /ws/{roomID}?player={playerID} into a
// snapshot stream. The player query parameter is optional; without it
// the socket is a spectator and inbound input frames are ignored.
func (wh *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request, roomID string) {
	ip := GetClientIP(r)

	wh.mu.Lock()
	total := wh.total
	wh.mu.Unlock()
	if total >= MaxWSConnectionsTotal {
		log.Printf("websocket rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !wh.wsLimiter.Allow(ip) {
		log.Printf("websocket rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	hub, err := wh.hubFor(roomID)
	if err != nil {
		wh.wsLimiter.Release(ip)
		writeGameError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		wh.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{
		conn:     conn,
		ip:       ip,
		playerID: r.URL.Query().Get("player"),
		send:     make(chan []byte, clientSendBuffer),
	}
	hub.add(client)
	wh.mu.Lock()
	wh.total++
	UpdateWSConnections(wh.total)
	wh.mu.Unlock()

	go wh.writePump(hub, client)
	go wh.readPump(hub, client)
}

// writePump drains the client's queue onto the socket. It owns the
// connection's write side and closes the socket on exit, which in turn
// unblocks readPump.
func (wh *WebSocketHub) writePump(hub *roomHub, c *wsClient) {
	defer c.conn.Close()

	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			// Drain until dropClient closes the channel so broadcasts
			// keep finding a full buffer and trigger the drop.
			wh.dropClient(hub, c)
			for range c.send {
			}
			return
		}
	}
}

// inputFrame is the inbound wire format, matching the HTTP input body.
type inputFrame struct {
	Heading float64 `json:"h"`
	Boost   bool    `json:"b"`
}

// readPump handles inbound frames. Player sockets forward heading and
// boost to the room; spectator frames are discarded.
func (wh *WebSocketHub) readPump(hub *roomHub, c *wsClient) {
	defer wh.dropClient(hub, c)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.playerID == "" {
			continue
		}

		var frame inputFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		// Errors here mean the worm or room is gone; the client learns
		// that from the snapshot stream, not from the input path.
		wh.registry.SubmitInput(hub.roomID, c.playerID, frame.Heading, frame.Boost)
	}
}

// ClientCount returns the number of connected sockets.
func (wh *WebSocketHub) ClientCount() int {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	return wh.total
}
