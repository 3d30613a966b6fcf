// Package game implements the authoritative world simulation: road-bound
// movement, loot spawning, pickup and delivery collisions, scoring and
// player retirement.
package game

import (
	"math"

	"loothound/internal/geom"
)

// RoadHalfWidth is half the width of every road's drivable band.
const RoadHalfWidth = 0.4

// Road is one horizontal or vertical segment of a map's road network. The
// endpoints share exactly one coordinate. Dogs may occupy the band of
// RoadHalfWidth around the centerline, borders included.
type Road struct {
	Start geom.Point
	End   geom.Point
}

// NewHorizontalRoad builds a road running along y0 from x0 to x1.
func NewHorizontalRoad(x0, y0, x1 float64) Road {
	return Road{Start: geom.Point{X: x0, Y: y0}, End: geom.Point{X: x1, Y: y0}}
}

// NewVerticalRoad builds a road running along x0 from y0 to y1.
func NewVerticalRoad(x0, y0, y1 float64) Road {
	return Road{Start: geom.Point{X: x0, Y: y0}, End: geom.Point{X: x0, Y: y1}}
}

// IsHorizontal reports whether the road runs along the x axis.
func (r Road) IsHorizontal() bool {
	return r.Start.Y == r.End.Y
}

// IsVertical reports whether the road runs along the y axis.
func (r Road) IsVertical() bool {
	return r.Start.X == r.End.X
}

// Bounds returns the drivable rectangle: the segment's bounding box grown by
// RoadHalfWidth on every side.
func (r Road) Bounds() geom.Rect {
	return geom.Rect{
		MinX: math.Min(r.Start.X, r.End.X) - RoadHalfWidth,
		MinY: math.Min(r.Start.Y, r.End.Y) - RoadHalfWidth,
		MaxX: math.Max(r.Start.X, r.End.X) + RoadHalfWidth,
		MaxY: math.Max(r.Start.Y, r.End.Y) + RoadHalfWidth,
	}
}

// Contains reports whether p lies on the road's drivable band.
func (r Road) Contains(p geom.Point) bool {
	return r.Bounds().Contains(p)
}
