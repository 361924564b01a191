package game

import (
	"testing"
)

// newTestRoom builds an unstarted room with item spawning effectively
// disabled so tests control exactly what is in the arena. Ticks are
// driven by calling step directly.
func newTestRoom(opts RoomOptions) *Room {
	if opts.MaxPlayers == 0 {
		opts.MaxPlayers = 8
	}
	if opts.BaseArenaSize == 0 {
		opts.BaseArenaSize = 2000
	}
	if opts.FoodDensityTarget == 0 {
		opts.FoodDensityTarget = 1e-12
	}
	// BotRatio and PowerUpDensityTarget stay zero
	return newRoom("test-room", opts, 7, nil, nil, nil)
}

// placeWorm rebuilds a worm's spine at an exact location, mirroring the
// change into the spatial index the way spawning does.
func placeWorm(r *Room, w *Worm, head Vec2, body []Vec2) {
	r.detachWorm(w)
	w.Head = head
	w.Spine = append([]Vec2{head}, body...)
	for i := 1; i < len(w.Spine); i++ {
		ref := r.bodyRef(w.Slot)
		w.bodyRefs = append(w.bodyRefs, ref)
		r.grid.Insert(ref, w.Spine[i].X, w.Spine[i].Y)
	}
}

// straightBody lays n control points in a row starting at (x, y),
// stepping right by SpineSpacing.
func straightBody(x, y float64, n int) []Vec2 {
	body := make([]Vec2, n)
	for i := range body {
		body[i] = Vec2{X: x + float64(i)*SpineSpacing, Y: y}
	}
	return body
}

// TestWallDeath verifies a head past the boundary dies and the edge
// itself is survivable
func TestWallDeath(t *testing.T) {
	tests := []struct {
		name string
		head Vec2
		dead bool
	}{
		{"inside", Vec2{X: 500, Y: 500}, false},
		{"exactly on left edge", Vec2{X: 0, Y: 500}, false},
		{"exactly on corner", Vec2{X: 2000, Y: 2000}, false},
		{"past left", Vec2{X: -0.1, Y: 500}, true},
		{"past right", Vec2{X: 2000.1, Y: 500}, true},
		{"past bottom", Vec2{X: 500, Y: 2000.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(RoomOptions{})
			w := r.spawnWorm("wally", false)
			placeWorm(r, w, tt.head, straightBody(1000, 1000, 6))

			deaths := r.resolveCollisions()

			if w.Alive == tt.dead {
				t.Errorf("alive=%v, want dead=%v", w.Alive, tt.dead)
			}
			if tt.dead {
				if len(deaths) != 1 || deaths[0].Cause != DeathByWall {
					t.Errorf("deaths=%v, want one wall death", deaths)
				}
			} else if len(deaths) != 0 {
				t.Errorf("unexpected deaths: %v", deaths)
			}
		})
	}
}

// TestManeuverImmunityNeverCoversWalls verifies the maneuver power-up
// suppresses body collisions but not the wall check
func TestManeuverImmunityNeverCoversWalls(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("icarus", false)
	w.Effects.Install(EffectManeuver)
	placeWorm(r, w, Vec2{X: -5, Y: 500}, straightBody(1000, 1000, 6))

	r.resolveCollisions()

	if w.Alive {
		t.Error("maneuver immunity must not prevent wall death")
	}
}

// TestSelfCollision verifies a head touching its own body dies, that the
// neck window is excluded, and that a straight worm never self-collides
func TestSelfCollision(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("ouro", false)

	// Straight worm: no self collision over many configurations
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(500+SpineSpacing, 500, 12))
	if r.selfCollides(w) {
		t.Fatal("straight worm must not self-collide")
	}

	// A point inside the neck window does not kill
	neck := straightBody(500+SpineSpacing, 500, NeckSkip)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, neck)
	if r.selfCollides(w) {
		t.Fatal("neck points must be excluded from the self check")
	}

	// A distant point folded back within radius kills
	body := straightBody(500+SpineSpacing, 500, 8)
	body = append(body, Vec2{X: 500, Y: 505}) // index 8 -> Spine[9], past NeckSkip
	placeWorm(r, w, Vec2{X: 500, Y: 500}, body)
	if !r.selfCollides(w) {
		t.Fatal("folded-back body point within radius should collide")
	}

	deaths := r.resolveCollisions()
	if w.Alive {
		t.Error("self collision should kill")
	}
	if len(deaths) != 1 || deaths[0].Cause != DeathBySelf {
		t.Errorf("deaths=%v, want one self death", deaths)
	}
}

// TestManeuverImmunitySuppressesSelfCollision verifies the maneuver
// effect lets a worm cross its own body
func TestManeuverImmunitySuppressesSelfCollision(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("weaver", false)
	w.Effects.Install(EffectManeuver)

	body := straightBody(500+SpineSpacing, 500, 8)
	body = append(body, Vec2{X: 500, Y: 505})
	placeWorm(r, w, Vec2{X: 500, Y: 500}, body)

	r.resolveCollisions()
	if !w.Alive {
		t.Error("maneuver immunity should suppress self collision")
	}
}

// TestHeadOnlyCollision verifies the head-only model: running a head into
// a body kills the runner, while the worm being run into is untouched
func TestHeadOnlyCollision(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	a := r.spawnWorm("alpha", false) // slot 0
	b := r.spawnWorm("beta", false)  // slot 1

	// a's head sits on b's body; b's head is far away from a
	placeWorm(r, a, Vec2{X: 500, Y: 502}, straightBody(800, 800, 6))
	placeWorm(r, b, Vec2{X: 1500, Y: 1500}, straightBody(500, 500, 6))

	deaths := r.resolveCollisions()

	if a.Alive {
		t.Error("worm running into a body should die")
	}
	if !b.Alive {
		t.Error("worm being run into should survive")
	}
	if len(deaths) != 1 {
		t.Fatalf("got %d deaths, want 1", len(deaths))
	}
	if deaths[0].Cause != DeathByWorm || deaths[0].KillerID != b.ID {
		t.Errorf("death %+v, want worm death credited to beta", deaths[0])
	}
}

// TestMutualHeadCollisionDeterministic verifies the simultaneous case:
// both heads inside each other's bodies resolves to exactly one death,
// the lower slot, every time
func TestMutualHeadCollisionDeterministic(t *testing.T) {
	for trial := 0; trial < 5; trial++ {
		r := newTestRoom(RoomOptions{})
		a := r.spawnWorm("alpha", false) // slot 0
		b := r.spawnWorm("beta", false)  // slot 1

		// Each head within kill radius of the other's nearest body point,
		// own bodies trailing away so the self check stays clean
		placeWorm(r, a, Vec2{X: 500, Y: 518}, straightBody(500, 540, 6))
		placeWorm(r, b, Vec2{X: 500, Y: 522}, straightBody(500, 500, 6))

		deaths := r.resolveCollisions()

		if len(deaths) != 1 {
			t.Fatalf("trial %d: got %d deaths, want exactly 1", trial, len(deaths))
		}
		if a.Alive || !b.Alive {
			t.Errorf("trial %d: lower slot should die, higher survive (a.Alive=%v b.Alive=%v)",
				trial, a.Alive, b.Alive)
		}
	}
}

// TestDeadWormBodyIsInert verifies a dead worm's body cannot kill: its
// grid presence is released at death
func TestDeadWormBodyIsInert(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	a := r.spawnWorm("alpha", false)
	b := r.spawnWorm("beta", false)

	placeWorm(r, a, Vec2{X: 1500, Y: 1500}, straightBody(500, 500, 6))
	r.killWorm(a, r.deathEvent(a, DeathBySelf, nil))

	// b's head lands where a's body used to be
	placeWorm(r, b, Vec2{X: 502, Y: 500}, straightBody(800, 800, 6))

	r.resolveCollisions()
	if !b.Alive {
		t.Error("dead worm's body should not kill")
	}
}

// TestConsumeFood verifies pickup radius, score and mass growth, and
// index cleanup
func TestConsumeFood(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("eater", false)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(800, 800, 6))

	near := newFoodTier(r.itemSlot(), Vec2{X: 505, Y: 500}, FoodTier3)
	far := newFoodTier(r.itemSlot(), Vec2{X: 700, Y: 700}, FoodTier1)
	r.addFood(near)
	r.addFood(far)

	massBefore := w.Mass
	r.resolveCollisions()

	if w.Score != FoodTier3 {
		t.Errorf("score %d, want %d", w.Score, FoodTier3)
	}
	if w.Mass != massBefore+FoodTier3 {
		t.Errorf("mass %f, want %f", w.Mass, massBefore+FoodTier3)
	}
	if _, ok := r.food[near.Slot]; ok {
		t.Error("eaten food still in the room")
	}
	if r.grid.Contains(packRef(refFood, near.Slot, 0)) {
		t.Error("eaten food still in the index")
	}
	if _, ok := r.food[far.Slot]; !ok {
		t.Error("out-of-range food should remain")
	}
}

// TestMultiplierDoublesFood verifies the multiplier effect doubles food
// value on pickup
func TestMultiplierDoublesFood(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("greedy", false)
	w.Effects.Install(EffectMultiplier)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(800, 800, 6))

	r.addFood(newFoodTier(r.itemSlot(), Vec2{X: 505, Y: 500}, FoodTier3))
	r.resolveCollisions()

	if w.Score != 2*FoodTier3 {
		t.Errorf("score %d under multiplier, want %d", w.Score, 2*FoodTier3)
	}
}

// TestPowerUpPickup verifies a power-up installs its effect and leaves
// the arena
func TestPowerUpPickup(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("picker", false)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(800, 800, 6))

	pu := &PowerUp{ID: "pu", Slot: r.itemSlot(), Pos: Vec2{X: 506, Y: 500}, Radius: PowerUpRadius, Kind: EffectMagnet}
	r.addPowerUp(pu)

	r.resolveCollisions()

	if !w.Effects.Active(EffectMagnet) {
		t.Error("power-up should install its effect")
	}
	if _, ok := r.powerUps[pu.Slot]; ok {
		t.Error("consumed power-up still in the room")
	}
	if w.Score != 0 {
		t.Error("power-ups must not grant score")
	}
}

// TestPowerUpRefresh verifies picking up an already-active kind resets
// the timer to full rather than stacking
func TestPowerUpRefresh(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("refresher", false)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(800, 800, 6))

	w.Effects[EffectMagnet] = 3
	r.addPowerUp(&PowerUp{ID: "pu", Slot: r.itemSlot(), Pos: Vec2{X: 506, Y: 500}, Radius: PowerUpRadius, Kind: EffectMagnet})

	r.resolveCollisions()

	if w.Effects[EffectMagnet] != effectDurations[EffectMagnet] {
		t.Errorf("effect at %d ticks, want refreshed to %d",
			w.Effects[EffectMagnet], effectDurations[EffectMagnet])
	}
}

// TestDeathDropsFood verifies a dead worm returns part of its score as
// tier-5 food along its spine, inside bounds
func TestDeathDropsFood(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("rich", false)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(500+SpineSpacing, 500, 12))
	w.Score = 100

	foodBefore := len(r.food)
	r.killWorm(w, r.deathEvent(w, DeathBySelf, nil))

	budget := int(float64(w.Score) * DeathDropFraction)
	wantDrops := budget / FoodTier5
	if len(r.food)-foodBefore != wantDrops {
		t.Errorf("dropped %d food, want %d", len(r.food)-foodBefore, wantDrops)
	}
	for _, f := range r.food {
		if f.Kind != FoodTier5 {
			t.Errorf("drop has tier %d, want %d", f.Kind, FoodTier5)
		}
		if f.Pos.X < 0 || f.Pos.X > r.bounds || f.Pos.Y < 0 || f.Pos.Y > r.bounds {
			t.Errorf("drop at (%f,%f) outside bounds", f.Pos.X, f.Pos.Y)
		}
	}
}

// TestKillWormIdempotent verifies killing an already-dead worm changes
// nothing
func TestKillWormIdempotent(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("lazarus", false)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(800, 800, 6))
	w.Score = 100

	r.killWorm(w, r.deathEvent(w, DeathBySelf, nil))
	deathsAfterFirst := len(r.deaths)
	foodAfterFirst := len(r.food)

	r.killWorm(w, r.deathEvent(w, DeathBySelf, nil))

	if len(r.deaths) != deathsAfterFirst {
		t.Error("second kill queued another death event")
	}
	if len(r.food) != foodAfterFirst {
		t.Error("second kill dropped more food")
	}
}

// TestMagnetPullsFood verifies out-of-pickup food inside the magnet
// radius moves toward the head and its index entry follows
func TestMagnetPullsFood(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("magneto", false)
	w.Effects.Install(EffectMagnet)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(800, 800, 6))

	f := newFoodTier(r.itemSlot(), Vec2{X: 560, Y: 500}, FoodTier1)
	r.addFood(f)
	distBefore := w.Head.Dist(f.Pos)

	r.applyMagnet()

	distAfter := w.Head.Dist(f.Pos)
	if distAfter >= distBefore {
		t.Errorf("food distance %f after magnet, was %f", distAfter, distBefore)
	}

	// Index position follows the pull
	found := false
	r.grid.QueryNear(f.Pos.X, f.Pos.Y, 1, func(ref uint64, x, y float64) bool {
		if ref == packRef(refFood, f.Slot, 0) {
			found = true
		}
		return true
	})
	if !found {
		t.Error("index entry did not follow the pulled food")
	}
}

// TestMagnetIgnoresFoodOutOfRange verifies food beyond the magnet radius
// stays put
func TestMagnetIgnoresFoodOutOfRange(t *testing.T) {
	r := newTestRoom(RoomOptions{})
	w := r.spawnWorm("magneto", false)
	w.Effects.Install(EffectMagnet)
	placeWorm(r, w, Vec2{X: 500, Y: 500}, straightBody(800, 800, 6))

	f := newFoodTier(r.itemSlot(), Vec2{X: 500 + MagnetRadius + 50, Y: 500}, FoodTier1)
	r.addFood(f)
	before := f.Pos

	r.applyMagnet()
	if f.Pos != before {
		t.Error("food beyond magnet radius should not move")
	}
}

// BenchmarkResolveCollisions measures a full resolution pass over a
// populated arena where nothing is close enough to die or eat, which is
// the steady-state cost of a tick.
func BenchmarkResolveCollisions(b *testing.B) {
	r := newTestRoom(RoomOptions{MaxPlayers: 32, BaseArenaSize: 4000})
	for i := 0; i < 20; i++ {
		w := r.spawnWorm("bench", true)
		x := 300 + float64(i%5)*700
		y := 300 + float64(i/5)*700
		placeWorm(r, w, Vec2{X: x, Y: y}, straightBody(x+200, y, 10))
	}
	for i := 0; i < 500; i++ {
		x := 150 + float64(i%25)*150
		y := 150 + float64(i/25)*150
		r.addFood(newFoodTier(r.itemSlot(), Vec2{X: x, Y: y + 80}, FoodTier1))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.resolveCollisions()
	}
}
