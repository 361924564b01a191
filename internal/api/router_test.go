package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"worm-arena/internal/game"
)

// mockRegistry implements RegistryInterface without any room goroutines.
type mockRegistry struct {
	rooms    map[string]*game.Snapshot
	players  map[string]int // roomID -> joined count
	maxSeats int
	inputs   int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		rooms:    make(map[string]*game.Snapshot),
		players:  make(map[string]int),
		maxSeats: 2,
	}
}

func (m *mockRegistry) CreateRoom(opts game.RoomOptions) string {
	id := fmt.Sprintf("room-%d", len(m.rooms)+1)
	m.rooms[id] = &game.Snapshot{RoomID: id, Tick: 1, State: "waiting", Bounds: 2000}
	return id
}

func (m *mockRegistry) List() []game.RoomInfo {
	out := make([]game.RoomInfo, 0, len(m.rooms))
	for id, snap := range m.rooms {
		out = append(out, game.RoomInfo{ID: id, State: snap.State, Bounds: snap.Bounds})
	}
	return out
}

func (m *mockRegistry) Snapshot(roomID string) (*game.Snapshot, error) {
	snap, ok := m.rooms[roomID]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	return snap, nil
}

func (m *mockRegistry) JoinRoom(roomID, name string) (*game.JoinedWorm, error) {
	if _, ok := m.rooms[roomID]; !ok {
		return nil, game.ErrRoomNotFound
	}
	if m.players[roomID] >= m.maxSeats {
		return nil, game.ErrRoomFull
	}
	m.players[roomID]++
	return &game.JoinedWorm{PlayerID: name + "-id", RoomID: roomID, Color: "#fff", Bounds: 2000}, nil
}

func (m *mockRegistry) LeaveRoom(roomID, playerID string) error {
	if _, ok := m.rooms[roomID]; !ok {
		return game.ErrRoomNotFound
	}
	if m.players[roomID] == 0 {
		return game.ErrUnknownPlayer
	}
	m.players[roomID]--
	return nil
}

func (m *mockRegistry) RespawnPlayer(roomID, playerID string) (*game.JoinedWorm, error) {
	if _, ok := m.rooms[roomID]; !ok {
		return nil, game.ErrRoomNotFound
	}
	return &game.JoinedWorm{PlayerID: playerID, RoomID: roomID}, nil
}

func (m *mockRegistry) SubmitInput(roomID, playerID string, heading float64, boost bool) error {
	if _, ok := m.rooms[roomID]; !ok {
		return game.ErrRoomNotFound
	}
	m.inputs++
	return nil
}

func (m *mockRegistry) SetRoomBroadcast(roomID string, fn func(*game.Snapshot)) error {
	if _, ok := m.rooms[roomID]; !ok {
		return game.ErrRoomNotFound
	}
	return nil
}

func testServer(t *testing.T) (*mockRegistry, *httptest.Server) {
	t.Helper()
	reg := newMockRegistry()
	router := NewRouter(RouterConfig{
		Registry:        reg,
		DisableLogging:  true,
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return reg, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// TestCreateRoomEndpoint verifies room creation returns 201 and a room id
func TestCreateRoomEndpoint(t *testing.T) {
	_, ts := testServer(t)

	resp := postJSON(t, ts.URL+"/api/rooms", map[string]int{"maxPlayers": 10})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["roomId"] == "" {
		t.Error("response missing roomId")
	}
}

// TestListRoomsEndpoint verifies the listing shape
func TestListRoomsEndpoint(t *testing.T) {
	reg, ts := testServer(t)
	reg.CreateRoom(game.RoomOptions{})
	reg.CreateRoom(game.RoomOptions{})

	resp, err := http.Get(ts.URL + "/api/rooms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out struct {
		Rooms []game.RoomInfo `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Rooms) != 2 {
		t.Errorf("listed %d rooms, want 2", len(out.Rooms))
	}
}

// TestRoomStateEndpoint verifies state retrieval and the 404 for unknown
// rooms
func TestRoomStateEndpoint(t *testing.T) {
	reg, ts := testServer(t)
	id := reg.CreateRoom(game.RoomOptions{})

	resp, err := http.Get(ts.URL + "/api/rooms/" + id + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d, want 200", resp.StatusCode)
	}
	var snap game.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.RoomID != id {
		t.Errorf("snapshot room %s, want %s", snap.RoomID, id)
	}

	resp2, err := http.Get(ts.URL + "/api/rooms/bogus/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("unknown room status %d, want 404", resp2.StatusCode)
	}
}

// TestJoinEndpoint verifies join happy path, validation, and the 503 on
// a full room
func TestJoinEndpoint(t *testing.T) {
	reg, ts := testServer(t)
	id := reg.CreateRoom(game.RoomOptions{})
	joinURL := ts.URL + "/api/rooms/" + id + "/join"

	resp := postJSON(t, joinURL, map[string]string{"name": "alice"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status %d, want 200", resp.StatusCode)
	}
	var joined game.JoinedWorm
	if err := json.NewDecoder(resp.Body).Decode(&joined); err != nil {
		t.Fatal(err)
	}
	if joined.PlayerID == "" || joined.RoomID != id {
		t.Errorf("bad join reply: %+v", joined)
	}

	// Missing name is a 400
	resp = postJSON(t, joinURL, map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty name status %d, want 400", resp.StatusCode)
	}

	// Fill the room, then expect 503
	postJSON(t, joinURL, map[string]string{"name": "bob"}).Body.Close()
	resp = postJSON(t, joinURL, map[string]string{"name": "carol"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("full room status %d, want 503", resp.StatusCode)
	}
}

// TestLeaveEndpoint verifies leave and its error mapping
func TestLeaveEndpoint(t *testing.T) {
	reg, ts := testServer(t)
	id := reg.CreateRoom(game.RoomOptions{})
	reg.JoinRoom(id, "alice")

	resp := postJSON(t, ts.URL+"/api/rooms/"+id+"/leave", map[string]string{"playerId": "alice-id"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("leave status %d, want 200", resp.StatusCode)
	}

	// Second leave: nobody left, mapped to 404
	resp = postJSON(t, ts.URL+"/api/rooms/"+id+"/leave", map[string]string{"playerId": "alice-id"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown player status %d, want 404", resp.StatusCode)
	}
}

// TestInputEndpoint verifies the HTTP input fallback reaches the registry
func TestInputEndpoint(t *testing.T) {
	reg, ts := testServer(t)
	id := reg.CreateRoom(game.RoomOptions{})

	resp := postJSON(t, ts.URL+"/api/rooms/"+id+"/input",
		map[string]any{"playerId": "p", "h": 1.5, "b": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("input status %d, want 200", resp.StatusCode)
	}
	if reg.inputs != 1 {
		t.Errorf("registry received %d inputs, want 1", reg.inputs)
	}
}

// TestRespawnEndpoint verifies the respawn route
func TestRespawnEndpoint(t *testing.T) {
	reg, ts := testServer(t)
	id := reg.CreateRoom(game.RoomOptions{})

	resp := postJSON(t, ts.URL+"/api/rooms/"+id+"/respawn", map[string]string{"playerId": "p1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("respawn status %d, want 200", resp.StatusCode)
	}
	var joined game.JoinedWorm
	if err := json.NewDecoder(resp.Body).Decode(&joined); err != nil {
		t.Fatal(err)
	}
	if joined.PlayerID != "p1" {
		t.Errorf("respawn player %s, want p1", joined.PlayerID)
	}
}

// TestHealthEndpoint verifies the liveness probe
func TestHealthEndpoint(t *testing.T) {
	_, ts := testServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status %d, want 200", resp.StatusCode)
	}
}

// TestRateLimitRejects verifies the limiter returns 429 once the burst
// is exhausted
func TestRateLimitRejects(t *testing.T) {
	reg := newMockRegistry()
	router := NewRouter(RouterConfig{
		Registry:        reg,
		DisableLogging:  true,
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 1, Burst: 2},
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/api/rooms")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes[resp.StatusCode]++
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Errorf("no 429s across 5 requests with burst 2: %v", codes)
	}
}
