package game

import "log"

// resolveCollisions is the per-tick death and consumption pass. Worms
// are visited in ascending slot order so outcomes are reproducible: when
// two heads land inside each other's bodies on the same tick, the lower
// slot is resolved first, dies, leaves the index, and the other worm
// survives.
//
// Per worm the checks run in a fixed order: wall, self, other-worm,
// consumption. The head-only model applies throughout: a worm dies by
// running into something, never by being run into.
func (r *Room) resolveCollisions() []DeathEvent {
	for _, w := range r.wormsByID() {
		if !w.Alive {
			continue
		}

		// Wall check. The edge itself is inside: a head exactly on the
		// boundary survives. Maneuver immunity does not cover walls.
		if w.Head.X < 0 || w.Head.X > r.bounds || w.Head.Y < 0 || w.Head.Y > r.bounds {
			r.killWorm(w, r.deathEvent(w, DeathByWall, nil))
			continue
		}

		immune := w.Effects.Active(EffectManeuver)

		// Self check against own control points, skipping the neck.
		if !immune && r.selfCollides(w) {
			r.killWorm(w, r.deathEvent(w, DeathBySelf, nil))
			continue
		}

		// Other-worm check via the spatial index.
		if !immune {
			if killer := r.bodyCollision(w); killer != nil {
				r.killWorm(w, r.deathEvent(w, DeathByWorm, killer))
				continue
			}
		}

		r.consume(w)
	}

	return r.deaths
}

func (r *Room) deathEvent(w *Worm, cause DeathCause, killer *Worm) DeathEvent {
	ev := DeathEvent{
		WormID:     w.ID,
		Name:       w.Name,
		Pos:        w.Head,
		Cause:      cause,
		FinalScore: w.Score,
		Tick:       r.tick,
	}
	if killer != nil {
		ev.KillerID = killer.ID
		ev.KillerName = killer.Name
	}
	return ev
}

// selfCollides tests the head against the worm's own spine, skipping the
// NeckSkip control points nearest the head.
func (r *Room) selfCollides(w *Worm) bool {
	radius := w.EffectiveRadius()
	r2 := radius * radius
	for i := NeckSkip + 1; i < len(w.Spine); i++ {
		if w.Head.Dist2(w.Spine[i]) < r2 {
			return true
		}
	}
	return false
}

// bodyCollision returns the live worm whose body the head ran into, or
// nil. The query radius is the worst-case kill radius; the per-hit check
// uses the actual pair radius.
func (r *Room) bodyCollision(w *Worm) *Worm {
	var killer *Worm
	query := w.EffectiveRadius() + MaxRadius
	r.grid.QueryNear(w.Head.X, w.Head.Y, query, func(ref uint64, x, y float64) bool {
		if refKind(ref) != refBody {
			return true
		}
		slot := refSlot(ref)
		if slot == w.Slot {
			return true
		}
		other, ok := r.wormsBySlot[slot]
		if !ok || !other.Alive {
			// Stale body point would be an index bug; dead worms are
			// swept out of the grid at death.
			return true
		}
		kill := killRadius(w, other)
		if w.Head.Dist2(Vec2{X: x, Y: y}) < kill*kill {
			killer = other
			return false
		}
		return true
	})
	return killer
}

// consume picks up food and power-ups within pickup radius of the head.
// Food grants score and mass (doubled under an active multiplier);
// power-ups install or refresh their timed effect.
func (r *Room) consume(w *Worm) {
	headR := w.EffectiveRadius()
	query := headR + PowerUpRadius
	var foodSlots, puSlots []uint32
	r.grid.QueryNear(w.Head.X, w.Head.Y, query, func(ref uint64, x, y float64) bool {
		switch refKind(ref) {
		case refFood:
			foodSlots = append(foodSlots, refSlot(ref))
		case refPowerUp:
			puSlots = append(puSlots, refSlot(ref))
		}
		return true
	})

	for _, slot := range foodSlots {
		f, ok := r.food[slot]
		if !ok {
			continue
		}
		reach := headR + f.Radius
		if w.Head.Dist2(f.Pos) > reach*reach {
			continue
		}
		r.removeFood(slot)
		value := f.Value
		if w.Effects.Active(EffectMultiplier) {
			value *= 2
		}
		w.Grow(value)
	}

	for _, slot := range puSlots {
		p, ok := r.powerUps[slot]
		if !ok {
			continue
		}
		reach := headR + p.Radius
		if w.Head.Dist2(p.Pos) > reach*reach {
			continue
		}
		r.removePowerUp(slot)
		w.Effects.Install(p.Kind)
		if r.events != nil {
			r.events.EmitSimple(EventTypeConsume, r.tick, r.id, map[string]string{
				"wormId": w.ID, "kind": p.Kind.String(),
			})
		}
	}
}

// killWorm flags the worm dead, releases its grid presence immediately,
// scatters its death drop, queues the death event and records the final
// result. The worm object lingers until the grace window passes.
func (r *Room) killWorm(w *Worm, ev DeathEvent) {
	if !w.Alive {
		return
	}
	w.Alive = false
	w.Boosting = false
	w.DeathTick = r.tick
	r.detachWorm(w)
	r.dropRemains(w)
	r.deaths = append(r.deaths, ev)
	r.recordResult(w)
	if r.metrics != nil {
		r.metrics.IncDeaths()
	}
	if r.events != nil {
		r.events.EmitSimple(EventTypeDeath, r.tick, r.id, ev)
	}
	log.Printf("room %s: %s died (%s, score %d)", r.id, w.Name, ev.Cause, w.Score)
}

// detachWorm removes every body control point of the worm from the
// spatial index.
func (r *Room) detachWorm(w *Worm) {
	for _, ref := range w.bodyRefs {
		r.grid.Remove(ref)
	}
	w.bodyRefs = w.bodyRefs[:0]
}

// dropRemains converts part of a dead worm's score back into tier-5 food
// scattered along its frozen spine.
func (r *Room) dropRemains(w *Worm) {
	budget := int(float64(w.Score) * DeathDropFraction)
	drops := budget / FoodTier5
	if drops == 0 || len(w.Spine) == 0 {
		return
	}
	stride := len(w.Spine) / drops
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(w.Spine) && drops > 0; i += stride {
		p := w.Spine[i]
		jitter := Vec2{
			X: p.X + (r.rng.Float64()*2-1)*SpineSpacing,
			Y: p.Y + (r.rng.Float64()*2-1)*SpineSpacing,
		}
		jitter.X = clamp(jitter.X, 0, r.bounds)
		jitter.Y = clamp(jitter.Y, 0, r.bounds)
		r.addFood(newFoodTier(r.itemSlot(), jitter, FoodTier5))
		drops--
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
