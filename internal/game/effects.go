package game

// EffectKind enumerates the timed modifiers a power-up can install.
type EffectKind uint8

const (
	EffectSpeed EffectKind = iota + 1
	EffectManeuver
	EffectMagnet
	EffectMultiplier
	EffectRadar
	EffectZoom
)

// String returns the wire name of an effect kind.
func (k EffectKind) String() string {
	switch k {
	case EffectSpeed:
		return "speed"
	case EffectManeuver:
		return "maneuver"
	case EffectMagnet:
		return "magnet"
	case EffectMultiplier:
		return "multiplier"
	case EffectRadar:
		return "radar"
	case EffectZoom:
		return "zoom"
	default:
		return "unknown"
	}
}

// effectDurations is the fixed duration, in ticks, installed or refreshed
// when a power-up of each kind is consumed.
var effectDurations = map[EffectKind]int{
	EffectSpeed:      150,
	EffectManeuver:   120,
	EffectMagnet:     240,
	EffectMultiplier: 240,
	EffectRadar:      300,
	EffectZoom:       300,
}

// allEffectKinds is used when rolling a random power-up kind.
var allEffectKinds = []EffectKind{
	EffectSpeed, EffectManeuver, EffectMagnet,
	EffectMultiplier, EffectRadar, EffectZoom,
}

// ActiveEffects maps effect kind to remaining tick count. Absent or zero
// means inactive.
type ActiveEffects map[EffectKind]int

// Install sets or refreshes an effect to its full duration.
func (a ActiveEffects) Install(kind EffectKind) {
	a[kind] = effectDurations[kind]
}

// Active reports whether an effect has ticks remaining.
func (a ActiveEffects) Active(kind EffectKind) bool {
	return a[kind] > 0
}

// Decrement ages every active effect by one tick, deleting expired
// entries so a lapsed kind is absent from the map.
func (a ActiveEffects) Decrement() {
	for kind, left := range a {
		left--
		if left <= 0 {
			delete(a, kind)
		} else {
			a[kind] = left
		}
	}
}
