package game

import "math"

// MaxBots caps the bot population regardless of room size.
const MaxBots = 32

// rescale recomputes arena bounds from the human population. It runs
// only when the population changed, never every tick, and the bounds
// never shrink: existing entities are never relocated, growth only
// widens the legal region for the wall check and future spawns.
func (r *Room) rescale() {
	size := r.opts.BaseArenaSize + float64(r.humanCount)*r.opts.PerPlayerGrowth
	if size > r.opts.MaxArenaSize {
		size = r.opts.MaxArenaSize
	}
	if size > r.bounds {
		r.bounds = size
	}
}

// foodTarget and powerUpTarget scale with arena area so per-tile density
// stays roughly constant as the world grows.
func (r *Room) foodTarget() int {
	return int(r.bounds * r.bounds * r.opts.FoodDensityTarget)
}

func (r *Room) powerUpTarget() int {
	return int(r.bounds * r.bounds * r.opts.PowerUpDensityTarget)
}

// botTarget is a fraction of the human count, capped.
func (r *Room) botTarget() int {
	target := int(math.Ceil(float64(r.humanCount) * r.opts.BotRatio))
	if target > MaxBots {
		target = MaxBots
	}
	return target
}

// maxItemSpawnPerTick bounds replenishment churn on any single tick.
const maxItemSpawnPerTick = 50

// replenishItems tops food and power-ups up to their density targets.
func (r *Room) replenishItems() {
	spawned := 0
	for len(r.food) < r.foodTarget() && spawned < maxItemSpawnPerTick {
		r.addFood(newFood(r.itemSlot(), r.itemPosition(), r.rng))
		spawned++
	}
	for len(r.powerUps) < r.powerUpTarget() && spawned < maxItemSpawnPerTick {
		r.addPowerUp(newPowerUp(r.itemSlot(), r.itemPosition(), r.rng))
		spawned++
	}
}

// replenishBots keeps the bot population at its target. Dead bots are
// reaped by the grace sweep; replacements spawn fresh.
func (r *Room) replenishBots() {
	alive := 0
	for _, w := range r.worms {
		if w.IsBot && w.Alive {
			alive++
		}
	}
	for alive < r.botTarget() {
		w := r.spawnWorm(botName(r.rng), true)
		r.bots[w.ID] = &botState{targetHeading: w.Heading}
		alive++
	}
}

// itemPosition picks a uniform random point inside the bounds.
func (r *Room) itemPosition() Vec2 {
	return Vec2{
		X: r.rng.Float64() * r.bounds,
		Y: r.rng.Float64() * r.bounds,
	}
}

func (r *Room) itemSlot() uint32 {
	r.nextItemSlot++
	return r.nextItemSlot
}

func (r *Room) addFood(f *Food) {
	r.food[f.Slot] = f
	r.grid.Insert(packRef(refFood, f.Slot, 0), f.Pos.X, f.Pos.Y)
}

func (r *Room) removeFood(slot uint32) {
	delete(r.food, slot)
	r.grid.Remove(packRef(refFood, slot, 0))
}

func (r *Room) addPowerUp(p *PowerUp) {
	r.powerUps[p.Slot] = p
	r.grid.Insert(packRef(refPowerUp, p.Slot, 0), p.Pos.X, p.Pos.Y)
}

func (r *Room) removePowerUp(slot uint32) {
	delete(r.powerUps, slot)
	r.grid.Remove(packRef(refPowerUp, slot, 0))
}
