package game

import "loothound/internal/geom"

// Direction is a compass heading. North points toward decreasing y.
type Direction int

const (
	North Direction = iota
	South
	West
	East
)

// String returns the heading name used by the state file.
func (d Direction) String() string {
	switch d {
	case South:
		return "south"
	case West:
		return "west"
	case East:
		return "east"
	default:
		return "north"
	}
}

// ParseDirection maps a state-file heading name back to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "north":
		return North, true
	case "south":
		return South, true
	case "west":
		return West, true
	case "east":
		return East, true
	}
	return North, false
}

// Dog is a player's avatar on the map. PrevPos holds the position at the
// start of the current tick and anchors the collision sweep segment.
type Dog struct {
	ID      string
	Name    string
	MapID   string
	Pos     geom.Point
	PrevPos geom.Point
	Speed   geom.Speed
	Dir     Direction
}

// NewDog spawns a stationary dog at pos. The id is derived from the owner
// name and the map so it stays stable across snapshots.
func NewDog(name, mapID string, pos geom.Point) *Dog {
	return &Dog{
		ID:      name + "_" + mapID,
		Name:    name,
		MapID:   mapID,
		Pos:     pos,
		PrevPos: pos,
		Dir:     North,
	}
}

// Head points the dog in dir and sets its velocity to magnitude speed along
// that heading.
func (d *Dog) Head(dir Direction, speed float64) {
	d.Dir = dir
	switch dir {
	case West:
		d.Speed = geom.Speed{VX: -speed}
	case East:
		d.Speed = geom.Speed{VX: speed}
	case North:
		d.Speed = geom.Speed{VY: -speed}
	case South:
		d.Speed = geom.Speed{VY: speed}
	}
}

// Stop zeroes the velocity. The heading is kept.
func (d *Dog) Stop() {
	d.Speed = geom.Speed{}
}

// IsMoving reports whether any velocity component is non-zero.
func (d *Dog) IsMoving() bool {
	return !d.Speed.IsZero()
}
