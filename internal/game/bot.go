package game

import (
	"fmt"
	"math"
	"math/rand"
)

// botNames is the spawn name pool; a numeric suffix keeps names unique
// enough within a room.
var botNames = []string{
	"Wriggler", "Noodle", "Sidewinder", "Burrower", "Inchworm",
	"Looper", "Digger", "Nightcrawler", "Tangler", "Squirmer",
}

func botName(rng *rand.Rand) string {
	return fmt.Sprintf("%s-%d", botNames[rng.Intn(len(botNames))], rng.Intn(100))
}

// botState is the per-bot wander memory kept alongside the worm.
type botState struct {
	targetHeading float64
	wanderTicks   int
}

// steerBots decides one heading per bot per tick. Priorities: steer away
// from the wall inside the safety margin, then toward the nearest food
// in sensor range, otherwise hold a slowly-varying wander heading. Bots
// never chase power-ups and never boost, and their turn rate is capped
// below the human cap.
func (r *Room) steerBots() {
	for id, bot := range r.bots {
		w, ok := r.worms[id]
		if !ok || !w.Alive {
			continue
		}

		if target, urgent := r.wallEscape(w); urgent {
			bot.targetHeading = target
			bot.wanderTicks = r.wanderDuration()
		} else if target, found := r.nearestFoodHeading(w); found {
			bot.targetHeading = target
		} else {
			if bot.wanderTicks <= 0 {
				bot.targetHeading = w.Heading + (r.rng.Float64()*2-1)*math.Pi/2
				bot.wanderTicks = r.wanderDuration()
			}
			bot.wanderTicks--
		}

		w.steer(bot.targetHeading)
	}
}

func (r *Room) wanderDuration() int {
	return 20 + r.rng.Intn(40)
}

// wallEscape reports a heading toward the arena center when the head is
// within the wall safety margin.
func (r *Room) wallEscape(w *Worm) (float64, bool) {
	if w.Head.X > BotWallMargin && w.Head.X < r.bounds-BotWallMargin &&
		w.Head.Y > BotWallMargin && w.Head.Y < r.bounds-BotWallMargin {
		return 0, false
	}
	center := Vec2{X: r.bounds / 2, Y: r.bounds / 2}
	return w.Head.AngleTo(center), true
}

// nearestFoodHeading returns the heading toward the closest food within
// sensor range. Power-up refs are ignored on purpose.
func (r *Room) nearestFoodHeading(w *Worm) (float64, bool) {
	best := math.MaxFloat64
	var bestPos Vec2
	found := false
	r.grid.QueryNear(w.Head.X, w.Head.Y, BotFoodSense, func(ref uint64, x, y float64) bool {
		if refKind(ref) != refFood {
			return true
		}
		pos := Vec2{X: x, Y: y}
		d := w.Head.Dist2(pos)
		if d < best {
			best = d
			bestPos = pos
			found = true
		}
		return true
	})
	if !found {
		return 0, false
	}
	return w.Head.AngleTo(bestPos), true
}
