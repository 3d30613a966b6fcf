package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"loothound/internal/game"
	"loothound/internal/geom"
)

// World is everything LoadWorld reads from the game config file: the map
// set plus the simulation parameters shared by all sessions.
type World struct {
	Maps []*game.Map

	// LootPeriod is zero when the file has no lootGeneratorConfig; such
	// worlds never spawn loot.
	LootPeriod      time.Duration
	LootProbability float64

	// RetireAfter is the idle time in seconds after which a player retires.
	RetireAfter float64
}

// Wire shapes of the world config file. Optional scalars are pointers so a
// missing key falls back to the file-level default rather than zero.
type worldFile struct {
	DefaultDogSpeed    float64      `json:"defaultDogSpeed"`
	DefaultBagCapacity int          `json:"defaultBagCapacity"`
	DogRetirementTime  float64      `json:"dogRetirementTime"`
	LootGenerator      *lootGenJSON `json:"lootGeneratorConfig"`
	Maps               []mapJSON    `json:"maps"`
}

type lootGenJSON struct {
	Period      float64 `json:"period"` // seconds
	Probability float64 `json:"probability"`
}

type mapJSON struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DogSpeed    *float64          `json:"dogSpeed"`
	BagCapacity *int              `json:"bagCapacity"`
	Roads       []roadJSON        `json:"roads"`
	Buildings   []buildingJSON    `json:"buildings"`
	Offices     []officeJSON      `json:"offices"`
	LootTypes   []json.RawMessage `json:"lootTypes"`
}

type roadJSON struct {
	X0 *float64 `json:"x0"`
	Y0 *float64 `json:"y0"`
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
}

type buildingJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type officeJSON struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// lootValueJSON extracts the one loot-type field the simulation scores by.
type lootValueJSON struct {
	Value int `json:"value"`
}

// LoadWorld parses the game config file at path. Any structural problem is a
// startup error; the server never runs on a partially loaded world.
func LoadWorld(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world config: %w", err)
	}

	// Presets stand in for absent optional keys.
	wf := worldFile{
		DefaultDogSpeed:    1.0,
		DefaultBagCapacity: 3,
		DogRetirementTime:  60.0,
	}
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parsing world config: %w", err)
	}
	if wf.Maps == nil {
		return nil, errors.New("world config has no maps field")
	}

	world := &World{
		RetireAfter: wf.DogRetirementTime,
	}
	if wf.LootGenerator != nil {
		world.LootPeriod = time.Duration(wf.LootGenerator.Period * float64(time.Second))
		world.LootProbability = wf.LootGenerator.Probability
	}

	seen := make(map[string]struct{}, len(wf.Maps))
	for _, mj := range wf.Maps {
		if mj.ID == "" {
			return nil, errors.New("world config has a map without an id")
		}
		if _, dup := seen[mj.ID]; dup {
			return nil, fmt.Errorf("duplicate map id %q", mj.ID)
		}
		seen[mj.ID] = struct{}{}

		m, err := buildMap(mj, wf.DefaultDogSpeed, wf.DefaultBagCapacity)
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", mj.ID, err)
		}
		world.Maps = append(world.Maps, m)
	}
	return world, nil
}

func buildMap(mj mapJSON, defaultSpeed float64, defaultCapacity int) (*game.Map, error) {
	if len(mj.Roads) == 0 {
		return nil, errors.New("no roads")
	}

	roads := make([]game.Road, 0, len(mj.Roads))
	for i, rj := range mj.Roads {
		road, err := buildRoad(rj)
		if err != nil {
			return nil, fmt.Errorf("road %d: %w", i, err)
		}
		roads = append(roads, road)
	}

	buildings := make([]game.Building, 0, len(mj.Buildings))
	for _, bj := range mj.Buildings {
		buildings = append(buildings, game.Building{X: bj.X, Y: bj.Y, W: bj.W, H: bj.H})
	}

	offices := make([]game.Office, 0, len(mj.Offices))
	for _, oj := range mj.Offices {
		offices = append(offices, game.Office{
			ID:       oj.ID,
			Position: geom.Point{X: oj.X, Y: oj.Y},
			Offset:   geom.Offset{DX: oj.OffsetX, DY: oj.OffsetY},
		})
	}

	lootTypes := make([]game.LootType, 0, len(mj.LootTypes))
	for i, raw := range mj.LootTypes {
		var lv lootValueJSON // value defaults to 0 when the key is absent
		if err := json.Unmarshal(raw, &lv); err != nil {
			return nil, fmt.Errorf("lootTypes[%d]: %w", i, err)
		}
		lootTypes = append(lootTypes, game.LootType{Value: lv.Value, Raw: raw})
	}

	speed := defaultSpeed
	if mj.DogSpeed != nil {
		speed = *mj.DogSpeed
	}
	capacity := defaultCapacity
	if mj.BagCapacity != nil {
		capacity = *mj.BagCapacity
	}

	return game.NewMap(mj.ID, mj.Name, roads, buildings, offices, lootTypes, speed, capacity), nil
}

func buildRoad(rj roadJSON) (game.Road, error) {
	if rj.X0 == nil || rj.Y0 == nil {
		return game.Road{}, errors.New("missing x0/y0")
	}
	switch {
	case rj.X1 != nil && rj.Y1 != nil:
		return game.Road{}, errors.New("both x1 and y1 set")
	case rj.X1 != nil:
		return game.NewHorizontalRoad(*rj.X0, *rj.Y0, *rj.X1), nil
	case rj.Y1 != nil:
		return game.NewVerticalRoad(*rj.X0, *rj.Y0, *rj.Y1), nil
	default:
		return game.Road{}, errors.New("neither x1 nor y1 set")
	}
}
