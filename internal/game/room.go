package game

import (
	"errors"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"worm-arena/internal/game/spatial"
)

// Typed errors returned by the join/leave/input boundary.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room full")
	ErrRoomEnded     = errors.New("room already ended")
	ErrUnknownPlayer = errors.New("unknown player")
)

// RoomState is the room lifecycle state.
type RoomState uint8

const (
	StateWaiting RoomState = iota
	StateRunning
	StateEnded
)

func (s RoomState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateRunning:
		return "running"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Grid ref packing: kind(4 bits) | slot(28 bits) | seq(32 bits).
// Body points need a per-point seq because control points come and go
// while the worm lives; food and power-ups use seq 0.
const (
	refBody    = 1
	refFood    = 2
	refPowerUp = 3
)

func packRef(kind uint8, slot uint32, seq uint32) uint64 {
	return uint64(kind)<<60 | uint64(slot&0x0fffffff)<<32 | uint64(seq)
}

func refKind(ref uint64) uint8  { return uint8(ref >> 60) }
func refSlot(ref uint64) uint32 { return uint32(ref>>32) & 0x0fffffff }

// playerInput is the overwrite-only latest-input slot for one player.
// Submission may run concurrently with a tick; the tick reads the slot
// under the same small mutex and never blocks on the network.
type playerInput struct {
	heading float64
	boost   bool
	set     bool
}

// Metrics receives simulation measurements. The API layer provides the
// Prometheus implementation; a nil Metrics disables recording.
type Metrics interface {
	ObserveTickDuration(d time.Duration)
	IncDeaths()
	SetRooms(n int)
}

// JoinedWorm is what the join boundary returns to a client.
type JoinedWorm struct {
	PlayerID string  `json:"playerId"`
	RoomID   string  `json:"roomId"`
	Color    string  `json:"color"`
	Bounds   float64 `json:"bounds"`
}

type joinReply struct {
	worm *JoinedWorm
	err  error
}

type joinRequest struct {
	name  string
	reply chan joinReply
}

type leaveRequest struct {
	playerID string
	reply    chan error
}

type respawnRequest struct {
	playerID string
	reply    chan joinReply
}

// Room is one isolated arena instance. It exclusively owns its worms,
// food, power-ups and spatial index; all mutation happens on the room's
// own goroutine in the fixed per-tick phase order. Only input submission
// runs concurrently, through the overwrite-only input slots.
type Room struct {
	id   string
	opts RoomOptions

	state  RoomState
	tick   uint64
	bounds float64

	rng  *rand.Rand
	grid *spatial.Grid

	worms       map[string]*Worm // keyed by playerID, stable across respawns
	wormsBySlot map[uint32]*Worm
	food        map[uint32]*Food
	powerUps    map[uint32]*PowerUp

	nextWormSlot uint32
	nextItemSlot uint32
	nextBodySeq  uint32

	bots map[string]*botState // keyed by bot playerID

	inputMu sync.Mutex
	inputs  map[string]playerInput

	inbox chan any
	done  chan struct{}

	ticker    *time.Ticker
	currentHz int
	slowTicks int
	degraded  bool

	humanCount int
	present    map[string]bool // connected human playerIDs
	emptyTicks int
	popChanged bool
	everHadTwo bool

	deaths  []DeathEvent
	results []PlayerResult
	scored  map[string]bool // playerIDs already in results

	latest atomic.Pointer[Snapshot]

	broadcast atomic.Pointer[func(*Snapshot)]
	onEnd     func(roomID string)
	bridge    Bridge
	events    *EventLog
	metrics   Metrics
}

// newRoom builds a room in the waiting state with its initial food and
// power-up population. The clock does not advance until Run is called
// and a human joins.
func newRoom(id string, opts RoomOptions, seed int64, bridge Bridge, events *EventLog, metrics Metrics) *Room {
	opts = opts.normalized()
	r := &Room{
		id:          id,
		opts:        opts,
		state:       StateWaiting,
		bounds:      opts.BaseArenaSize,
		rng:         rand.New(rand.NewSource(seed)),
		grid:        spatial.NewGrid(GridCellSize),
		worms:       make(map[string]*Worm),
		wormsBySlot: make(map[uint32]*Worm),
		food:        make(map[uint32]*Food),
		powerUps:    make(map[uint32]*PowerUp),
		bots:        make(map[string]*botState),
		present:     make(map[string]bool),
		inputs:      make(map[string]playerInput),
		inbox:       make(chan any, 64),
		done:        make(chan struct{}),
		currentHz:   opts.TickRateHz,
		scored:      make(map[string]bool),
		bridge:      bridge,
		events:      events,
		metrics:     metrics,
	}
	r.replenishItems()
	return r
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// LatestSnapshot returns the most recent post-tick snapshot, or nil
// before the first tick. Safe from any goroutine.
func (r *Room) LatestSnapshot() *Snapshot {
	return r.latest.Load()
}

// SetBroadcast installs the outbound snapshot sink. Safe from any
// goroutine, including while the room is ticking; the transport installs
// it when the first client connects. The sink must not block: the
// simulation fires and forgets.
func (r *Room) SetBroadcast(fn func(*Snapshot)) { r.broadcast.Store(&fn) }

// Run drives the simulation clock until the room ends. It is the only
// goroutine that mutates room state.
func (r *Room) Run() {
	r.ticker = time.NewTicker(time.Second / time.Duration(r.currentHz))
	defer r.ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case msg := <-r.inbox:
			r.handleCommand(msg)
		case <-r.ticker.C:
			r.step()
			if r.state == StateEnded {
				close(r.done)
				if r.onEnd != nil {
					r.onEnd(r.id)
				}
				return
			}
		}
	}
}

// Stop ends the room administratively. Idempotent.
func (r *Room) Stop() {
	select {
	case <-r.done:
	default:
		select {
		case r.inbox <- stopRequest{}:
		case <-r.done:
		}
	}
}

type stopRequest struct{}

func (r *Room) handleCommand(msg any) {
	switch c := msg.(type) {
	case joinRequest:
		worm, err := r.handleJoin(c.name)
		c.reply <- joinReply{worm: worm, err: err}
	case leaveRequest:
		c.reply <- r.handleLeave(c.playerID)
	case respawnRequest:
		worm, err := r.handleRespawn(c.playerID)
		c.reply <- joinReply{worm: worm, err: err}
	case stopRequest:
		r.endRoom("stopped")
		close(r.done)
		if r.onEnd != nil {
			r.onEnd(r.id)
		}
	}
}

// Join adds a human player. Synchronous: the request crosses to the room
// goroutine and the reply crosses back.
func (r *Room) Join(name string) (*JoinedWorm, error) {
	req := joinRequest{name: name, reply: make(chan joinReply, 1)}
	select {
	case r.inbox <- req:
	case <-r.done:
		return nil, ErrRoomEnded
	}
	select {
	case rep := <-req.reply:
		return rep.worm, rep.err
	case <-r.done:
		return nil, ErrRoomEnded
	}
}

// Leave removes a player and their worm.
func (r *Room) Leave(playerID string) error {
	req := leaveRequest{playerID: playerID, reply: make(chan error, 1)}
	select {
	case r.inbox <- req:
	case <-r.done:
		return ErrRoomEnded
	}
	select {
	case err := <-req.reply:
		return err
	case <-r.done:
		return ErrRoomEnded
	}
}

// Respawn replaces a player's dead worm with a fresh one under the same
// player ID.
func (r *Room) Respawn(playerID string) (*JoinedWorm, error) {
	req := respawnRequest{playerID: playerID, reply: make(chan joinReply, 1)}
	select {
	case r.inbox <- req:
	case <-r.done:
		return nil, ErrRoomEnded
	}
	select {
	case rep := <-req.reply:
		return rep.worm, rep.err
	case <-r.done:
		return nil, ErrRoomEnded
	}
}

// SubmitInput overwrites the player's latest-input slot. It never blocks
// and is safe concurrently with an in-flight tick; the value takes
// effect on the next tick. Input for unknown or dead players is dropped
// when the tick reads the slot.
func (r *Room) SubmitInput(playerID string, heading float64, boost bool) error {
	select {
	case <-r.done:
		return ErrRoomEnded
	default:
	}
	r.inputMu.Lock()
	r.inputs[playerID] = playerInput{heading: heading, boost: boost, set: true}
	r.inputMu.Unlock()
	return nil
}

func (r *Room) handleJoin(name string) (*JoinedWorm, error) {
	if r.state == StateEnded {
		return nil, ErrRoomEnded
	}
	if r.humanCount >= r.opts.MaxPlayers {
		return nil, ErrRoomFull
	}
	w := r.spawnWorm(name, false)
	r.present[w.ID] = true
	r.humanCount++
	r.popChanged = true
	if r.state == StateWaiting {
		r.state = StateRunning
		log.Printf("room %s: running at %d tps", r.id, r.currentHz)
	}
	r.emptyTicks = 0
	if r.events != nil {
		r.events.EmitSimple(EventTypeJoin, r.tick, r.id, JoinPayload{
			WormID: w.ID, Name: w.Name, SpawnX: w.Head.X, SpawnY: w.Head.Y,
		})
	}
	log.Printf("room %s: %s joined (%d humans)", r.id, name, r.humanCount)
	return &JoinedWorm{PlayerID: w.ID, RoomID: r.id, Color: w.Color, Bounds: r.bounds}, nil
}

func (r *Room) handleLeave(playerID string) error {
	if !r.present[playerID] {
		return ErrUnknownPlayer
	}
	delete(r.present, playerID)
	w, ok := r.worms[playerID]
	if !ok {
		// Worm already reaped after death; the leave still releases
		// the seat.
		r.humanCount--
		r.popChanged = true
		return nil
	}
	r.recordResult(w)
	if w.Alive {
		r.detachWorm(w)
		w.Alive = false
	}
	delete(r.worms, playerID)
	delete(r.wormsBySlot, w.Slot)
	r.inputMu.Lock()
	delete(r.inputs, playerID)
	r.inputMu.Unlock()
	r.humanCount--
	r.popChanged = true
	if r.events != nil {
		r.events.EmitSimple(EventTypeLeave, r.tick, r.id, JoinPayload{WormID: w.ID, Name: w.Name})
	}
	return nil
}

func (r *Room) handleRespawn(playerID string) (*JoinedWorm, error) {
	if r.state == StateEnded {
		return nil, ErrRoomEnded
	}
	if old, ok := r.worms[playerID]; ok {
		if old.IsBot {
			return nil, ErrUnknownPlayer
		}
		if old.Alive {
			// Already alive: respawn is a no-op echo.
			return &JoinedWorm{PlayerID: old.ID, RoomID: r.id, Color: old.Color, Bounds: r.bounds}, nil
		}
		delete(r.worms, playerID)
		delete(r.wormsBySlot, old.Slot)
	} else if !r.present[playerID] {
		return nil, ErrUnknownPlayer
	}
	w := r.spawnWormWithID(playerID, "", false)
	return &JoinedWorm{PlayerID: w.ID, RoomID: r.id, Color: w.Color, Bounds: r.bounds}, nil
}

// spawnWorm creates a worm at a clear random position and indexes its
// initial spine.
func (r *Room) spawnWorm(name string, isBot bool) *Worm {
	return r.spawnWormWithID(uuid.NewString(), name, isBot)
}

func (r *Room) spawnWormWithID(id, name string, isBot bool) *Worm {
	slot := r.nextWormSlot
	r.nextWormSlot++
	pos := r.clearPosition()
	w := NewWorm(name, isBot, slot, pos, r.rng)
	w.ID = id
	if name == "" {
		w.Name = prevName(r, id)
	}
	w.SpawnTick = r.tick
	r.worms[w.ID] = w
	r.wormsBySlot[slot] = w
	for i := 1; i < len(w.Spine); i++ {
		ref := r.bodyRef(slot)
		w.bodyRefs = append(w.bodyRefs, ref)
		r.grid.Insert(ref, w.Spine[i].X, w.Spine[i].Y)
	}
	return w
}

// prevName recovers the display name for a respawning player from the
// recorded results.
func prevName(r *Room, playerID string) string {
	for _, res := range r.results {
		if res.PlayerID == playerID {
			return res.Name
		}
	}
	return "worm"
}

func (r *Room) bodyRef(slot uint32) uint64 {
	r.nextBodySeq++
	return packRef(refBody, slot, r.nextBodySeq)
}

// clearPosition picks a random point away from walls and existing
// entities, falling back to a plain random point after a few tries.
func (r *Room) clearPosition() Vec2 {
	for try := 0; try < 12; try++ {
		p := Vec2{
			X: SpawnMargin + r.rng.Float64()*(r.bounds-2*SpawnMargin),
			Y: SpawnMargin + r.rng.Float64()*(r.bounds-2*SpawnMargin),
		}
		occupied := false
		r.grid.QueryNear(p.X, p.Y, SpawnClearance, func(uint64, float64, float64) bool {
			occupied = true
			return false
		})
		if !occupied {
			return p
		}
	}
	return Vec2{
		X: SpawnMargin + r.rng.Float64()*(r.bounds-2*SpawnMargin),
		Y: SpawnMargin + r.rng.Float64()*(r.bounds-2*SpawnMargin),
	}
}

// step runs one authoritative tick in the fixed phase order.
func (r *Room) step() {
	if r.state != StateRunning {
		r.tickEmptyCountdown()
		return
	}
	start := time.Now()
	r.tick++
	r.deaths = r.deaths[:0]

	r.applyInputs()
	r.steerBots()
	r.advanceWorms()
	r.applyMagnet()
	deaths := r.resolveCollisions()
	r.decrementEffects()
	r.reapDead()
	r.replenishItems()
	r.replenishBots()
	if r.popChanged {
		r.rescale()
		r.popChanged = false
	}
	r.checkEnd()

	snap := r.buildSnapshot(deaths)
	r.latest.Store(snap)
	if fn := r.broadcast.Load(); fn != nil && *fn != nil {
		(*fn)(snap)
	}

	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveTickDuration(elapsed)
	}
	r.observeTickBudget(elapsed)
	r.tickEmptyCountdown()
}

// applyInputs consumes the latest-input slot for every live human worm.
// Last input wins; inputs for dead or unknown worms are dropped.
func (r *Room) applyInputs() {
	r.inputMu.Lock()
	defer r.inputMu.Unlock()
	for playerID, in := range r.inputs {
		if !in.set {
			continue
		}
		w, ok := r.worms[playerID]
		if !ok || !w.Alive || w.IsBot {
			// Protocol error: input for a worm that cannot receive it.
			log.Printf("room %s: dropping input for %s (no live worm)", r.id, playerID)
			delete(r.inputs, playerID)
			continue
		}
		w.ApplyInput(in.heading, in.boost)
	}
}

// advanceWorms moves every live worm and mirrors spine churn into the
// spatial index: a dropped control point is inserted, a trimmed tail
// point removed.
func (r *Room) advanceWorms() {
	for _, w := range r.wormsByID() {
		if !w.Alive {
			continue
		}
		if len(w.Spine) == 0 {
			// Invariant violation: fail safe by killing the worm.
			log.Printf("room %s: worm %s has empty spine; removing", r.id, w.ID)
			r.killWorm(w, DeathEvent{
				WormID: w.ID, Name: w.Name, Cause: DeathByError,
				FinalScore: w.Score, Tick: r.tick,
			})
			continue
		}
		dropped, trimmed := w.Advance()
		if dropped {
			ref := r.bodyRef(w.Slot)
			w.bodyRefs = append(w.bodyRefs, 0)
			copy(w.bodyRefs[1:], w.bodyRefs)
			w.bodyRefs[0] = ref
			r.grid.Insert(ref, w.Spine[1].X, w.Spine[1].Y)
			if trimmed {
				tail := w.bodyRefs[len(w.bodyRefs)-1]
				w.bodyRefs = w.bodyRefs[:len(w.bodyRefs)-1]
				r.grid.Remove(tail)
			}
		}
	}
}

// applyMagnet pulls food toward heads of worms with an active magnet
// effect, leaving anything already in pickup range for the resolver.
func (r *Room) applyMagnet() {
	for _, w := range r.wormsByID() {
		if !w.Alive || !w.Effects.Active(EffectMagnet) {
			continue
		}
		pickup := w.EffectiveRadius() + FoodRadius
		var pulled []uint32
		r.grid.QueryNear(w.Head.X, w.Head.Y, MagnetRadius, func(ref uint64, x, y float64) bool {
			if refKind(ref) == refFood {
				pulled = append(pulled, refSlot(ref))
			}
			return true
		})
		for _, slot := range pulled {
			f, ok := r.food[slot]
			if !ok {
				continue
			}
			dist := w.Head.Dist(f.Pos)
			if dist <= pickup {
				continue
			}
			move := MagnetPull
			if move > dist {
				move = dist
			}
			f.Pos.X += (w.Head.X - f.Pos.X) / dist * move
			f.Pos.Y += (w.Head.Y - f.Pos.Y) / dist * move
			r.grid.Update(packRef(refFood, slot, 0), f.Pos.X, f.Pos.Y)
		}
	}
}

// decrementEffects ages every live worm's active effects exactly once
// per tick, independent of collision outcomes.
func (r *Room) decrementEffects() {
	for _, w := range r.worms {
		if w.Alive {
			w.Effects.Decrement()
		}
	}
}

// reapDead removes dead worms whose grace window has passed. Their grid
// presence was already released at death.
func (r *Room) reapDead() {
	for id, w := range r.worms {
		if w.Alive {
			continue
		}
		if r.tick >= w.DeathTick+DeathGraceTicks {
			delete(r.worms, id)
			delete(r.wormsBySlot, w.Slot)
			if w.IsBot {
				delete(r.bots, id)
			}
		}
	}
}

// recordResult captures a participant's final outcome exactly once.
func (r *Room) recordResult(w *Worm) {
	if r.scored[w.ID] {
		// Respawned players accumulate their best run.
		for i := range r.results {
			if r.results[i].PlayerID == w.ID && w.Score > r.results[i].FinalScore {
				r.results[i].FinalScore = w.Score
				r.results[i].SurvivalTicks = w.SurvivalTicks(r.tick)
			}
		}
		return
	}
	r.scored[w.ID] = true
	r.results = append(r.results, PlayerResult{
		PlayerID:      w.ID,
		Name:          w.Name,
		IsBot:         w.IsBot,
		FinalScore:    w.Score,
		SurvivalTicks: w.SurvivalTicks(r.tick),
	})
}

// checkEnd applies the end-of-game rules: optional time limit, and the
// last-worm-standing rule once the room has ever held two live worms.
func (r *Room) checkEnd() {
	if r.state != StateRunning {
		return
	}
	live := 0
	for _, w := range r.worms {
		if w.Alive {
			live++
		}
	}
	if live >= 2 {
		r.everHadTwo = true
	}
	if r.opts.TimeLimitTicks > 0 && r.tick >= r.opts.TimeLimitTicks {
		r.endRoom("time_limit")
		return
	}
	if r.everHadTwo && live == 1 {
		r.endRoom("last_worm")
	}
}

// endRoom finalizes results, emits the room-end event and notifies the
// persistence bridge. The caller's tick still broadcasts the final
// snapshot; the run loop stops after it.
func (r *Room) endRoom(reason string) {
	if r.state == StateEnded {
		return
	}
	r.state = StateEnded
	for _, w := range r.worms {
		r.recordResult(w)
	}
	result := RoomResult{
		RoomID:  r.id,
		EndTick: r.tick,
		Reason:  reason,
		Results: r.results,
	}
	if r.events != nil {
		r.events.EmitSimple(EventTypeRoomEnded, r.tick, r.id, RoomEndPayload{
			Reason: reason, Results: r.results,
		})
	}
	log.Printf("room %s: ended (%s) after %d ticks", r.id, reason, r.tick)
	notifyBridge(r.bridge, result)
}

// tickEmptyCountdown tears the room down after it has had no connected
// humans for the grace period.
func (r *Room) tickEmptyCountdown() {
	if r.state == StateEnded {
		return
	}
	if r.humanCount > 0 {
		r.emptyTicks = 0
		return
	}
	r.emptyTicks++
	if r.emptyTicks >= EmptyRoomGraceTicks {
		r.endRoom("empty")
	}
}

// observeTickBudget degrades the clock to the fallback rate after
// repeated over-budget ticks, trading smoothness for correctness.
func (r *Room) observeTickBudget(elapsed time.Duration) {
	budget := time.Second / time.Duration(r.currentHz)
	if elapsed <= budget {
		r.slowTicks = 0
		return
	}
	r.slowTicks++
	if r.slowTicks >= SlowTickThreshold && !r.degraded {
		r.degraded = true
		r.slowTicks = 0
		r.currentHz = r.opts.FallbackTickRateHz
		if r.ticker != nil {
			r.ticker.Reset(time.Second / time.Duration(r.currentHz))
		}
		log.Printf("room %s: tick budget exceeded, degrading to %d tps", r.id, r.currentHz)
	}
}
