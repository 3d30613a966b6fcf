package game

import (
	"encoding/json"
	"math"
	"math/rand"

	"loothound/internal/geom"
)

// Building is a decorative rectangle; it does not constrain movement.
type Building struct {
	X float64
	Y float64
	W float64
	H float64
}

// Office is a drop-off point. A dog passing over one banks its whole bag.
type Office struct {
	ID       string
	Position geom.Point
	Offset   geom.Offset
}

// LootType is one entry of a map's loot table. Raw carries the original
// config JSON for the map endpoint; the simulation only reads Value.
type LootType struct {
	Value int
	Raw   json.RawMessage
}

// Map is the immutable topology of one game world.
type Map struct {
	ID          string
	Name        string
	Roads       []Road
	Buildings   []Building
	Offices     []Office
	LootTypes   []LootType
	DogSpeed    float64
	BagCapacity int

	bounds geom.Rect
}

// NewMap assembles a map and caches its movement bounds. Roads must not be
// empty; the config loader enforces that.
func NewMap(id, name string, roads []Road, buildings []Building, offices []Office,
	lootTypes []LootType, dogSpeed float64, bagCapacity int) *Map {

	m := &Map{
		ID:          id,
		Name:        name,
		Roads:       roads,
		Buildings:   buildings,
		Offices:     offices,
		LootTypes:   lootTypes,
		DogSpeed:    dogSpeed,
		BagCapacity: bagCapacity,
	}
	if len(roads) > 0 {
		m.bounds = roads[0].Bounds()
		for _, road := range roads[1:] {
			m.bounds = m.bounds.Union(road.Bounds())
		}
	}
	return m
}

// MovementBounds returns the bounding box of every road rectangle. No dog
// position ever leaves it.
func (m *Map) MovementBounds() geom.Rect {
	return m.bounds
}

// ContainsPoint reports whether p lies on any road of the map.
func (m *Map) ContainsPoint(p geom.Point) bool {
	for _, road := range m.Roads {
		if road.Contains(p) {
			return true
		}
	}
	return false
}

// MoveDog advances a dog from start by speed over delta seconds while
// keeping it on the road network. hitBoundary reports that the dog could not
// travel the full distance and must stop.
func (m *Map) MoveDog(start geom.Point, speed geom.Speed, delta float64) (pos geom.Point, hitBoundary bool) {
	target := geom.Point{
		X: start.X + speed.VX*delta,
		Y: start.Y + speed.VY*delta,
	}

	clamped := m.bounds.Clamp(target)
	hitBoundary = clamped != target
	target = clamped

	if m.ContainsPoint(target) {
		return target, hitBoundary
	}

	// The target left the road band. Pull it back into each road the dog
	// started on and keep the candidate closest to where it wanted to go.
	best := start
	bestSq := math.Inf(1)
	found := false
	for _, road := range m.Roads {
		rect := road.Bounds()
		if !rect.Contains(start) {
			continue
		}
		candidate := rect.Clamp(target)
		if sq := geom.SqDistance(candidate, target); sq < bestSq {
			best = candidate
			bestSq = sq
			found = true
		}
	}
	if !found {
		return start, true
	}
	return best, true
}

// StartPosition returns the fixed spawn point: the start of the first road.
func (m *Map) StartPosition() geom.Point {
	if len(m.Roads) == 0 {
		return geom.Point{}
	}
	return m.Roads[0].Start
}

// RandomPosition picks a uniformly random road, then a uniform point on its
// centerline inset by RoadHalfWidth from both ends. Roads too short for the
// inset use their raw endpoints.
func (m *Map) RandomPosition(rnd *rand.Rand) geom.Point {
	if len(m.Roads) == 0 {
		return geom.Point{}
	}
	road := m.Roads[rnd.Intn(len(m.Roads))]

	if road.IsHorizontal() {
		lo := math.Min(road.Start.X, road.End.X) + RoadHalfWidth
		hi := math.Max(road.Start.X, road.End.X) - RoadHalfWidth
		if lo >= hi {
			lo, hi = road.Start.X, road.End.X
		}
		return geom.Point{X: lo + rnd.Float64()*(hi-lo), Y: road.Start.Y}
	}

	lo := math.Min(road.Start.Y, road.End.Y) + RoadHalfWidth
	hi := math.Max(road.Start.Y, road.End.Y) - RoadHalfWidth
	if lo >= hi {
		lo, hi = road.Start.Y, road.End.Y
	}
	return geom.Point{X: road.Start.X, Y: lo + rnd.Float64()*(hi-lo)}
}
