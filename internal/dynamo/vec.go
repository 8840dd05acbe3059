package dynamo

import "math"

// Vec2 is a 2D vector in arena coordinates (y grows downward).
type Vec2 struct {
	X, Y float64
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }

func (v Vec2) Neg() Vec2 { return Vec2{X: -v.X, Y: -v.Y} }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

func (v Vec2) LenSq() float64 { return v.X*v.X + v.Y*v.Y }

func (v Vec2) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y) }

// IsFinite reports whether both components are neither NaN nor Inf.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
