package game

import "math"

// Simulation tuning constants. Per-room knobs live in RoomOptions; the
// values here are shared physics that every room uses.
const (
	// Movement, px per tick.
	NormalSpeed = 3.0
	BoostSpeed  = 5.0
	// Speed power-up multiplies the worm's base speed.
	SpeedEffectFactor = 1.5

	// MaxTurnRate caps the human per-tick heading change, radians.
	// Bots turn slower so they stay beatable.
	MaxTurnRate = 0.25
	BotTurnRate = 0.12

	// Spine control points are dropped every SpineSpacing px of head
	// travel. A worm starts with InitialSpinePoints and earns one more
	// control point per ScorePerPoint score.
	SpineSpacing       = 8.0
	InitialSpinePoints = 10
	ScorePerPoint      = 10

	// NeckSkip control points nearest the head are excluded from the
	// self-collision check so a tight turn is not instantly fatal.
	NeckSkip = 4

	// Body radius grows with mass: r = BaseRadius + RadiusGrowth*sqrt(mass).
	// MaxRadius must stay below NeckSkip*SpineSpacing or a straight worm
	// would collide with its own neck.
	BaseRadius   = 10.0
	RadiusGrowth = 0.5
	MaxRadius    = 24.0

	// Mass economy. Mass starts at InitialMass and only grows; boosting
	// spends a separate energy budget refilled by eating, so mass and
	// score stay monotonic and the spine never shrinks.
	InitialMass     = 10.0
	EnergyStart     = 50.0
	EnergyMax       = 100.0
	EnergyPerScore  = 0.5
	BoostEnergyCost = 1.0

	FoodRadius    = 5.0
	PowerUpRadius = 7.0

	// Magnet effect pulls food within MagnetRadius toward the head at
	// MagnetPull px per tick.
	MagnetRadius = 90.0
	MagnetPull   = 3.0

	// Fraction of a dead worm's score returned to the arena as food,
	// dropped along its spine.
	DeathDropFraction = 0.5

	// Grid cell size covers the largest interaction radius in play
	// (worm-vs-worm kill radius at 2*MaxRadius).
	GridCellSize = 64.0

	// SpawnClearance is the minimum distance from any indexed entity
	// when picking a spawn position.
	SpawnClearance = 60.0
	SpawnMargin    = 40.0

	// Dead worms stay in the worm set for DeathGraceTicks so clients
	// receive the death broadcast before the body disappears.
	DeathGraceTicks = 24

	// Rooms with no connected humans for EmptyRoomGraceTicks are torn down.
	EmptyRoomGraceTicks = 150

	// After SlowTickThreshold consecutive over-budget ticks the clock
	// degrades to the fallback rate.
	SlowTickThreshold = 5

	// Bots steer away from the wall inside this margin.
	BotWallMargin = 120.0
	// Food within this range is targeted by bots.
	BotFoodSense = 300.0
)

// killRadius is the head-to-body collision distance for two worms.
func killRadius(a, b *Worm) float64 {
	return a.EffectiveRadius() + b.EffectiveRadius()
}

// normalizeAngle wraps an angle into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// clampTurn limits a heading change to at most maxTurn radians per tick.
func clampTurn(current, target, maxTurn float64) float64 {
	diff := normalizeAngle(target - current)
	if diff > maxTurn {
		diff = maxTurn
	} else if diff < -maxTurn {
		diff = -maxTurn
	}
	return current + diff
}
