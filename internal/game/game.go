package game

import (
	"errors"
	"math/rand"
	"time"

	"loothound/internal/geom"
)

// ErrMapNotFound reports a map id with no loaded map behind it.
var ErrMapNotFound = errors.New("map not found")

// Options configures a Game.
type Options struct {
	// LootPeriod is the base interval of the loot generator.
	LootPeriod time.Duration
	// LootProbability is the drop chance per LootPeriod of accumulated time.
	LootProbability float64
	// RetireAfter is how many seconds of idleness retire a player.
	RetireAfter float64
	// RandomSpawns places joining dogs at random road points instead of the
	// first road's start.
	RandomSpawns bool
	// Seed pins every random draw. Zero seeds from the clock.
	Seed int64
}

// Game owns the immutable map set, the live sessions and the simulation
// parameters shared by every session. It is not safe for concurrent use;
// the application strand serializes access.
type Game struct {
	maps     []*Map
	mapsByID map[string]*Map

	sessions  []*Session
	sessByMap map[string]*Session

	opts    Options
	rnd     *rand.Rand
	retired RetirementFunc
}

// NewGame builds a game over the given map set. Map ids must be distinct;
// the config loader guarantees that.
func NewGame(maps []*Map, opts Options) *Game {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Game{
		maps:      maps,
		mapsByID:  make(map[string]*Map, len(maps)),
		sessByMap: make(map[string]*Session),
		opts:      opts,
		rnd:       rand.New(rand.NewSource(seed)),
	}
	for _, m := range maps {
		g.mapsByID[m.ID] = m
	}
	return g
}

// SetRetirementHandler installs the callback receiving retired players.
func (g *Game) SetRetirementHandler(fn RetirementFunc) {
	g.retired = fn
}

// Maps returns the map set in load order.
func (g *Game) Maps() []*Map {
	return g.maps
}

// FindMap returns the map with the given id, or nil.
func (g *Game) FindMap(id string) *Map {
	return g.mapsByID[id]
}

// Sessions returns the live sessions in creation order.
func (g *Game) Sessions() []*Session {
	return g.sessions
}

// FindSession returns the live session on the given map, or nil when no one
// has joined it yet.
func (g *Game) FindSession(mapID string) *Session {
	return g.sessByMap[mapID]
}

// GetOrCreateSession returns the session running the given map, creating it
// on first use.
func (g *Game) GetOrCreateSession(mapID string) (*Session, error) {
	if s, ok := g.sessByMap[mapID]; ok {
		return s, nil
	}
	m := g.mapsByID[mapID]
	if m == nil {
		return nil, ErrMapNotFound
	}

	// A zero loot period means no generator was configured; such sessions
	// never spawn loot.
	var gen *LootGenerator
	if g.opts.LootPeriod > 0 {
		gen = NewLootGenerator(g.opts.LootPeriod, g.opts.LootProbability, g.rnd.Float64)
	}
	s := newSession(mapID+"_session", m, gen, g.rnd)
	g.sessions = append(g.sessions, s)
	g.sessByMap[mapID] = s
	return s, nil
}

// SpawnPoint picks where a joining dog appears on m.
func (g *Game) SpawnPoint(m *Map) geom.Point {
	if g.opts.RandomSpawns {
		return m.RandomPosition(g.rnd)
	}
	return m.StartPosition()
}

// Update advances every session by delta seconds.
func (g *Game) Update(delta float64) {
	for _, s := range g.sessions {
		s.Update(delta, g.opts.RetireAfter, g.retired)
	}
}
