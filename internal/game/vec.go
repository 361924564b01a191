package game

import "math"

// Vec2 is a 2D position or direction.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Dist2 returns the squared distance to o.
func (v Vec2) Dist2(o Vec2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return dx*dx + dy*dy
}

func (v Vec2) Dist(o Vec2) float64 {
	return math.Sqrt(v.Dist2(o))
}

// AngleTo returns the heading from v toward o.
func (v Vec2) AngleTo(o Vec2) float64 {
	return math.Atan2(o.Y-v.Y, o.X-v.X)
}

// heading returns the unit step for an angle scaled by speed.
func heading(angle, speed float64) Vec2 {
	return Vec2{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed}
}
