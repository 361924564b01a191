package game

import (
	"math"
	"sort"
)

// Wire DTOs use single-character JSON keys to keep the per-tick
// full-state broadcast small. Coordinates are rounded to one decimal.
//
//	WormDTO:    {"i":id,"n":name,"s":[[x,y],...],"c":color,"p":score,"b":1,"w":radius,"e":["speed"],"a":1}
//	FoodDTO:    {"i":id,"x":x,"y":y,"v":value,"l":tier}
//	PowerUpDTO: {"i":id,"x":x,"y":y,"k":"magnet"}

// MaxSpineWire bounds the spine sample carried per worm per tick.
const MaxSpineWire = 128

// MaxLeaderboard bounds the standings carried per tick.
const MaxLeaderboard = 10

// WormDTO is the compact per-tick worm state.
type WormDTO struct {
	ID       string       `json:"i"`
	Name     string       `json:"n"`
	Spine    [][2]float64 `json:"s"`
	Color    string       `json:"c"`
	Score    int          `json:"p"`
	Boosting int          `json:"b,omitempty"`
	Radius   float64      `json:"w"`
	Effects  []string     `json:"e,omitempty"`
	Alive    int          `json:"a"`
	Bot      int          `json:"o,omitempty"`
}

// FoodDTO is the compact per-tick food state.
type FoodDTO struct {
	ID    string  `json:"i"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value int     `json:"v"`
	Tier  int     `json:"l"`
}

// PowerUpDTO is the compact per-tick power-up state.
type PowerUpDTO struct {
	ID   string  `json:"i"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Kind string  `json:"k"`
}

// LeaderboardEntry is one standings row.
type LeaderboardEntry struct {
	ID    string `json:"i"`
	Name  string `json:"n"`
	Score int    `json:"p"`
}

// Snapshot is the full room state broadcast once per tick. It is built
// after the tick completes and is immutable from then on; readers never
// touch live entities.
type Snapshot struct {
	RoomID      string             `json:"r"`
	Tick        uint64             `json:"t"`
	State       string             `json:"st"`
	Bounds      float64            `json:"bb"`
	Worms       []WormDTO          `json:"s"`
	Food        []FoodDTO          `json:"f"`
	PowerUps    []PowerUpDTO       `json:"u"`
	Deaths      []DeathEvent       `json:"d,omitempty"`
	Leaderboard []LeaderboardEntry `json:"l"`
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

// wormDTO samples the spine down to MaxSpineWire points. Dead worms in
// their grace window are still included, flagged a=0, so clients can
// render the corpse once.
func wormDTO(w *Worm) WormDTO {
	spine := w.Spine
	if len(spine) == 0 {
		// A worm killed on the empty-spine fail-safe path is still
		// snapshotted the same tick; render it as its head alone.
		spine = []Vec2{w.Head}
	}
	step := 1
	if len(spine) > MaxSpineWire {
		step = (len(spine) + MaxSpineWire - 1) / MaxSpineWire
	}
	pairs := make([][2]float64, 0, len(spine)/step+1)
	for i := 0; i < len(spine); i += step {
		pairs = append(pairs, [2]float64{roundTo1(spine[i].X), roundTo1(spine[i].Y)})
	}
	last := spine[len(spine)-1]
	lastPt := [2]float64{roundTo1(last.X), roundTo1(last.Y)}
	if pairs[len(pairs)-1] != lastPt {
		pairs = append(pairs, lastPt)
	}

	dto := WormDTO{
		ID:     w.ID,
		Name:   w.Name,
		Spine:  pairs,
		Color:  w.Color,
		Score:  w.Score,
		Radius: roundTo1(w.EffectiveRadius()),
	}
	if w.Boosting {
		dto.Boosting = 1
	}
	if w.Alive {
		dto.Alive = 1
	}
	if w.IsBot {
		dto.Bot = 1
	}
	if len(w.Effects) > 0 {
		names := make([]string, 0, len(w.Effects))
		for kind := range w.Effects {
			names = append(names, kind.String())
		}
		sort.Strings(names)
		dto.Effects = names
	}
	return dto
}

// buildSnapshot copies room state into an immutable snapshot. Called at
// the end of a tick while the room still owns its entities.
func (r *Room) buildSnapshot(deaths []DeathEvent) *Snapshot {
	snap := &Snapshot{
		RoomID:   r.id,
		Tick:     r.tick,
		State:    r.state.String(),
		Bounds:   r.bounds,
		Worms:    make([]WormDTO, 0, len(r.worms)),
		Food:     make([]FoodDTO, 0, len(r.food)),
		PowerUps: make([]PowerUpDTO, 0, len(r.powerUps)),
		Deaths:   deaths,
	}

	for _, w := range r.wormsByID() {
		snap.Worms = append(snap.Worms, wormDTO(w))
	}
	for _, f := range r.food {
		snap.Food = append(snap.Food, FoodDTO{
			ID: f.ID, X: roundTo1(f.Pos.X), Y: roundTo1(f.Pos.Y),
			Value: f.Value, Tier: f.Kind,
		})
	}
	for _, p := range r.powerUps {
		snap.PowerUps = append(snap.PowerUps, PowerUpDTO{
			ID: p.ID, X: roundTo1(p.Pos.X), Y: roundTo1(p.Pos.Y),
			Kind: p.Kind.String(),
		})
	}
	snap.Leaderboard = r.leaderboard()
	return snap
}

// leaderboard returns the top live worms by score, name as tie-break so
// the ordering is stable across ticks.
func (r *Room) leaderboard() []LeaderboardEntry {
	live := make([]*Worm, 0, len(r.worms))
	for _, w := range r.worms {
		if w.Alive {
			live = append(live, w)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].Score != live[j].Score {
			return live[i].Score > live[j].Score
		}
		return live[i].Name < live[j].Name
	})
	if len(live) > MaxLeaderboard {
		live = live[:MaxLeaderboard]
	}
	entries := make([]LeaderboardEntry, len(live))
	for i, w := range live {
		entries[i] = LeaderboardEntry{ID: w.ID, Name: w.Name, Score: w.Score}
	}
	return entries
}

// wormsByID returns all worms (including dead ones in grace) ordered by
// slot for deterministic output.
func (r *Room) wormsByID() []*Worm {
	worms := make([]*Worm, 0, len(r.worms))
	for _, w := range r.worms {
		worms = append(worms, w)
	}
	sort.Slice(worms, func(i, j int) bool { return worms[i].Slot < worms[j].Slot })
	return worms
}
