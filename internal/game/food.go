package game

import (
	"math/rand"

	"github.com/google/uuid"
)

// Food value tiers. Tier 1 is the common random spawn, tier 3 the rarer
// one, tier 5 only appears in death drops.
const (
	FoodTier1 = 1
	FoodTier3 = 3
	FoodTier5 = 5
)

// Food is a static consumable granting score.
type Food struct {
	ID     string
	Slot   uint32
	Pos    Vec2
	Radius float64
	Kind   int // value tier
	Value  int
}

// PowerUp is a consumable installing a timed effect instead of score.
type PowerUp struct {
	ID     string
	Slot   uint32
	Pos    Vec2
	Radius float64
	Kind   EffectKind
}

// newFood rolls a random-tier food at pos: 90% tier 1, 10% tier 3.
func newFood(slot uint32, pos Vec2, rng *rand.Rand) *Food {
	tier := FoodTier1
	if rng.Float64() < 0.10 {
		tier = FoodTier3
	}
	return newFoodTier(slot, pos, tier)
}

func newFoodTier(slot uint32, pos Vec2, tier int) *Food {
	return &Food{
		ID:     uuid.NewString(),
		Slot:   slot,
		Pos:    pos,
		Radius: FoodRadius,
		Kind:   tier,
		Value:  tier,
	}
}

// newPowerUp rolls a uniformly random effect kind at pos.
func newPowerUp(slot uint32, pos Vec2, rng *rand.Rand) *PowerUp {
	return &PowerUp{
		ID:     uuid.NewString(),
		Slot:   slot,
		Pos:    pos,
		Radius: PowerUpRadius,
		Kind:   allEffectKinds[rng.Intn(len(allEffectKinds))],
	}
}
