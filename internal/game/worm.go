package game

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Worm is a player- or bot-controlled growing entity. One exists per
// connected player or bot in a room; the room owns it exclusively.
type Worm struct {
	ID    string
	Slot  uint32 // per-room index, used for grid refs and stable ordering
	Name  string
	IsBot bool
	Color string

	Head    Vec2
	Heading float64
	Speed   float64

	// Spine holds sparse control points, one every SpineSpacing px of
	// travel. Spine[0] tracks the head exactly; the rest are fixed once
	// dropped. Visual segments are interpolated client-side.
	Spine []Vec2

	Alive    bool
	Boosting bool

	Score  int
	Mass   float64
	Energy float64

	Effects ActiveEffects

	SpawnTick uint64
	DeathTick uint64

	// bodyRefs[i] is the grid ref of Spine[i+1]. Maintained by the room
	// so dead worms can be swept out of the index in one pass.
	bodyRefs []uint64

	// distance travelled since the last control point drop
	sinceDrop float64
}

// wormColors is the spawn palette.
var wormColors = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6",
	"#1abc9c", "#e67e22", "#e91e63", "#00bcd4", "#8bc34a",
	"#ff5722", "#607d8b", "#ffeb3b", "#673ab7", "#03a9f4",
}

// NewWorm creates a live worm at pos with a straight initial spine laid
// out behind the spawn heading.
func NewWorm(name string, isBot bool, slot uint32, pos Vec2, rng *rand.Rand) *Worm {
	angle := rng.Float64() * 2 * math.Pi
	spine := make([]Vec2, InitialSpinePoints)
	for i := range spine {
		spine[i] = Vec2{
			X: pos.X - float64(i)*SpineSpacing*math.Cos(angle),
			Y: pos.Y - float64(i)*SpineSpacing*math.Sin(angle),
		}
	}
	return &Worm{
		ID:      uuid.NewString(),
		Slot:    slot,
		Name:    name,
		IsBot:   isBot,
		Color:   wormColors[rng.Intn(len(wormColors))],
		Head:    pos,
		Heading: angle,
		Speed:   NormalSpeed,
		Spine:   spine,
		Alive:   true,
		Mass:    InitialMass,
		Energy:  EnergyStart,
		Effects: make(ActiveEffects),
	}
}

// EffectiveRadius is the collision radius, growing with mass and capped
// below the neck exclusion distance.
func (w *Worm) EffectiveRadius() float64 {
	r := BaseRadius + RadiusGrowth*math.Sqrt(w.Mass)
	if r > MaxRadius {
		r = MaxRadius
	}
	return r
}

// ApplyInput steers toward the requested heading, clamped to the per-tick
// turn cap, and arms or disarms boost.
func (w *Worm) ApplyInput(target float64, boost bool) {
	w.Heading = clampTurn(w.Heading, target, MaxTurnRate)
	w.Boosting = boost
}

// steer is the bot variant of ApplyInput with the smaller turn cap.
func (w *Worm) steer(target float64) {
	w.Heading = clampTurn(w.Heading, target, BotTurnRate)
}

// currentSpeed resolves base or boosted speed for this tick, spending
// energy when boosting. The speed power-up stacks multiplicatively on the
// resolved base.
func (w *Worm) currentSpeed() float64 {
	speed := NormalSpeed
	if w.Boosting && w.Energy >= BoostEnergyCost {
		w.Energy -= BoostEnergyCost
		speed = BoostSpeed
	}
	if w.Effects.Active(EffectSpeed) {
		speed *= SpeedEffectFactor
	}
	return speed
}

// Advance moves the head one tick along the current heading and maintains
// the sparse spine: a new control point is dropped every SpineSpacing px
// of travel, and the tail is trimmed only when the spine exceeds its
// score-derived target length.
//
// Returns (dropped, trimmed): whether a control point was inserted at the
// neck and whether one was removed at the tail. The room mirrors both
// changes into the spatial index.
func (w *Worm) Advance() (dropped, trimmed bool) {
	w.Speed = w.currentSpeed()
	step := heading(w.Heading, w.Speed)
	w.Head = w.Head.Add(step)
	w.sinceDrop += w.Speed

	if w.sinceDrop >= SpineSpacing {
		w.sinceDrop -= SpineSpacing
		// Insert the new fixed point just behind the head.
		w.Spine = append(w.Spine, Vec2{})
		copy(w.Spine[2:], w.Spine[1:])
		w.Spine[1] = w.Head
		dropped = true
		if len(w.Spine) > w.targetSpinePoints() {
			w.Spine = w.Spine[:len(w.Spine)-1]
			trimmed = true
		}
	}
	w.Spine[0] = w.Head
	return dropped, trimmed
}

// targetSpinePoints is the score-derived spine length. It never
// decreases because score never decreases.
func (w *Worm) targetSpinePoints() int {
	return InitialSpinePoints + w.Score/ScorePerPoint
}

// Grow credits eaten food: score and mass rise monotonically and the
// boost energy budget refills.
func (w *Worm) Grow(value int) {
	w.Score += value
	w.Mass += float64(value)
	w.Energy += float64(value) * EnergyPerScore
	if w.Energy > EnergyMax {
		w.Energy = EnergyMax
	}
}

// SurvivalTicks reports how long the worm lived, in ticks, as of now.
func (w *Worm) SurvivalTicks(currentTick uint64) uint64 {
	end := currentTick
	if !w.Alive && w.DeathTick > 0 {
		end = w.DeathTick
	}
	if end < w.SpawnTick {
		return 0
	}
	return end - w.SpawnTick
}
