// Package geom holds the plane-geometry primitives shared by the map model,
// the collision detector and the wire serializers.
package geom

import "math"

// Point is a position on the map plane.
type Point struct {
	X float64
	Y float64
}

// Speed is a velocity in map units per second.
type Speed struct {
	VX float64
	VY float64
}

// IsZero reports whether both velocity components are exactly zero.
func (s Speed) IsZero() bool {
	return s.VX == 0 && s.VY == 0
}

// Offset is a displacement relative to an anchor point, used for office
// sign placement on the client side.
type Offset struct {
	DX float64
	DY float64
}

// Rect is an axis-aligned rectangle. Borders are inclusive.
type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Contains reports whether p lies inside the rectangle, borders included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Clamp returns p pulled to the nearest point inside the rectangle.
func (r Rect) Clamp(p Point) Point {
	return Point{
		X: math.Min(math.Max(p.X, r.MinX), r.MaxX),
		Y: math.Min(math.Max(p.Y, r.MinY), r.MaxY),
	}
}

// Union returns the smallest rectangle covering both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, other.MinX),
		MinY: math.Min(r.MinY, other.MinY),
		MaxX: math.Max(r.MaxX, other.MaxX),
		MaxY: math.Max(r.MaxY, other.MaxY),
	}
}

// SqDistance returns the squared euclidean distance between two points.
func SqDistance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// Round6 rounds v to six decimal places, halves away from zero. Positions
// and speeds cross the wire and the state file at this fidelity.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
