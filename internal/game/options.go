package game

// RoomOptions is the per-room configuration surface. It is decoded from
// the JSON body of a create-room request; unknown keys are ignored by
// encoding/json and zero values fall back to the defaults below.
type RoomOptions struct {
	MaxPlayers           int     `json:"maxPlayers"`
	BaseArenaSize        float64 `json:"baseArenaSize"`
	PerPlayerGrowth      float64 `json:"perPlayerGrowth"`
	MaxArenaSize         float64 `json:"maxArenaSize"`
	BotRatio             float64 `json:"botRatio"`
	FoodDensityTarget    float64 `json:"foodDensityTarget"`
	PowerUpDensityTarget float64 `json:"powerUpDensityTarget"`
	TickRateHz           int     `json:"tickRateHz"`
	FallbackTickRateHz   int     `json:"fallbackTickRateHz"`

	// TimeLimitTicks ends the room after a fixed number of ticks.
	// Zero disables the time limit.
	TimeLimitTicks uint64 `json:"timeLimitTicks"`
}

// DefaultRoomOptions returns the documented defaults.
func DefaultRoomOptions() RoomOptions {
	return RoomOptions{
		MaxPlayers:           40,
		BaseArenaSize:        2000,
		PerPlayerGrowth:      150,
		MaxArenaSize:         8000,
		BotRatio:             0.5,
		FoodDensityTarget:    4e-5, // items per px^2; ~160 food on the base arena
		PowerUpDensityTarget: 1.5e-6,
		TickRateHz:           30,
		FallbackTickRateHz:   15,
	}
}

// normalized fills every unset (zero or negative) field from the defaults
// and clamps inconsistent pairs.
func (o RoomOptions) normalized() RoomOptions {
	d := DefaultRoomOptions()
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = d.MaxPlayers
	}
	if o.BaseArenaSize <= 0 {
		o.BaseArenaSize = d.BaseArenaSize
	}
	if o.PerPlayerGrowth < 0 {
		o.PerPlayerGrowth = d.PerPlayerGrowth
	}
	if o.MaxArenaSize <= 0 {
		o.MaxArenaSize = d.MaxArenaSize
	}
	if o.MaxArenaSize < o.BaseArenaSize {
		o.MaxArenaSize = o.BaseArenaSize
	}
	if o.BotRatio < 0 {
		o.BotRatio = d.BotRatio
	}
	if o.FoodDensityTarget <= 0 {
		o.FoodDensityTarget = d.FoodDensityTarget
	}
	if o.PowerUpDensityTarget < 0 {
		o.PowerUpDensityTarget = d.PowerUpDensityTarget
	}
	if o.TickRateHz <= 0 {
		o.TickRateHz = d.TickRateHz
	}
	if o.FallbackTickRateHz <= 0 || o.FallbackTickRateHz > o.TickRateHz {
		o.FallbackTickRateHz = d.FallbackTickRateHz
		if o.FallbackTickRateHz > o.TickRateHz {
			o.FallbackTickRateHz = o.TickRateHz
		}
	}
	return o
}
