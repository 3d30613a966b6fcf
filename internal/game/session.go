package game

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"loothound/internal/geom"
)

const (
	// dogGatherRadius is the capture radius of every dog's collision sweep.
	dogGatherRadius = 0.6
	// officeItemRadius is the nominal size of an office as a collision item.
	officeItemRadius = 0.5
	// idleEps is the speed magnitude below which a dog counts as idle.
	idleEps = 1e-10
)

// RetirementFunc receives a player at the moment it leaves the game. The
// player is already detached from its session when the callback runs.
type RetirementFunc func(p *Player)

// Session is the live world of a single map: the players on it and the loot
// lying on the ground. All mutation happens on the owner's strand.
type Session struct {
	ID         string
	Map        *Map
	Players    []*Player
	Loots      []Loot
	NextLootID int

	gen *LootGenerator
	rnd *rand.Rand
}

func newSession(id string, m *Map, gen *LootGenerator, rnd *rand.Rand) *Session {
	return &Session{
		ID:  id,
		Map: m,
		gen: gen,
		rnd: rnd,
	}
}

// AddPlayer places a player into the session.
func (s *Session) AddPlayer(p *Player) {
	s.Players = append(s.Players, p)
}

// AddLoot drops a restored loot item back on the ground.
func (s *Session) AddLoot(l Loot) {
	s.Loots = append(s.Loots, l)
}

// Update advances the session by delta seconds: timers, loot spawn, motion,
// pickup and delivery, then retirement. Retirement runs last so that the
// collision pass always sees a stable player list.
func (s *Session) Update(delta float64, retireAfter float64, retired RetirementFunc) {
	for _, p := range s.Players {
		p.PlayTime += delta
		speed := p.Dog.Speed
		if math.Abs(speed.VX) < idleEps && math.Abs(speed.VY) < idleEps {
			p.IdleTime += delta
		} else {
			p.IdleTime = 0
		}
	}

	s.spawnLoot(delta)

	for _, p := range s.Players {
		p.Dog.PrevPos = p.Dog.Pos
	}

	for _, p := range s.Players {
		dog := p.Dog
		if !dog.IsMoving() {
			continue
		}
		pos, hitBoundary := s.Map.MoveDog(dog.Pos, dog.Speed, delta)
		dog.Pos = pos
		if hitBoundary {
			dog.Stop()
		}
	}

	s.handleCollisions()
	s.retireIdle(retireAfter, retired)
}

func (s *Session) spawnLoot(delta float64) {
	if s.gen == nil || len(s.Map.LootTypes) == 0 {
		return
	}
	count := s.gen.Generate(time.Duration(delta*float64(time.Second)), len(s.Loots), len(s.Players))
	for i := 0; i < count; i++ {
		typ := s.rnd.Intn(len(s.Map.LootTypes))
		s.Loots = append(s.Loots, Loot{
			ID:       s.NextLootID,
			Type:     typ,
			Value:    s.Map.LootTypes[typ].Value,
			Position: s.Map.RandomPosition(s.rnd),
		})
		s.NextLootID++
	}
}

// lootProvider exposes ground loot to the collision detector. Loot is
// point-like.
type lootProvider struct {
	loots   []Loot
	players []*Player
}

func (p lootProvider) ItemsCount() int { return len(p.loots) }
func (p lootProvider) Item(i int) geom.Item {
	return geom.Item{Position: p.loots[i].Position}
}
func (p lootProvider) GatherersCount() int { return len(p.players) }
func (p lootProvider) Gatherer(i int) geom.Gatherer {
	dog := p.players[i].Dog
	return geom.Gatherer{Start: dog.PrevPos, End: dog.Pos, Radius: dogGatherRadius}
}

// officeProvider exposes the map's offices to the collision detector.
type officeProvider struct {
	offices []Office
	players []*Player
}

func (p officeProvider) ItemsCount() int { return len(p.offices) }
func (p officeProvider) Item(i int) geom.Item {
	return geom.Item{Position: p.offices[i].Position, Radius: officeItemRadius}
}
func (p officeProvider) GatherersCount() int { return len(p.players) }
func (p officeProvider) Gatherer(i int) geom.Gatherer {
	dog := p.players[i].Dog
	return geom.Gatherer{Start: dog.PrevPos, End: dog.Pos, Radius: dogGatherRadius}
}

// tickEvent is a pickup or delivery, time-ordered within one tick.
type tickEvent struct {
	time   float64
	office bool
	player int
	item   int
}

func (s *Session) handleCollisions() {
	lootEvents := geom.FindGatherEvents(lootProvider{loots: s.Loots, players: s.Players})
	officeEvents := geom.FindGatherEvents(officeProvider{offices: s.Map.Offices, players: s.Players})

	if len(lootEvents) == 0 && len(officeEvents) == 0 {
		return
	}

	events := make([]tickEvent, 0, len(lootEvents)+len(officeEvents))
	for _, e := range lootEvents {
		events = append(events, tickEvent{time: e.Time, player: e.GathererID, item: e.ItemID})
	}
	for _, e := range officeEvents {
		events = append(events, tickEvent{time: e.Time, office: true, player: e.GathererID, item: e.ItemID})
	}
	// Pickups and deliveries interleave chronologically, so a dog that runs
	// over loot and then an office in one tick banks that loot.
	sort.SliceStable(events, func(i, j int) bool { return events[i].time < events[j].time })

	collected := make(map[int]struct{})
	for _, e := range events {
		player := s.Players[e.player]
		if e.office {
			player.DeliverBag()
			continue
		}
		loot := s.Loots[e.item]
		if _, taken := collected[loot.ID]; taken {
			continue
		}
		if player.AddToBag(loot) {
			collected[loot.ID] = struct{}{}
		}
	}

	if len(collected) == 0 {
		return
	}
	kept := s.Loots[:0]
	for _, l := range s.Loots {
		if _, taken := collected[l.ID]; !taken {
			kept = append(kept, l)
		}
	}
	s.Loots = kept
}

func (s *Session) retireIdle(retireAfter float64, retired RetirementFunc) {
	kept := s.Players[:0]
	for _, p := range s.Players {
		if p.IdleTime >= retireAfter {
			if retired != nil {
				retired(p)
			}
			continue
		}
		kept = append(kept, p)
	}
	// Clear the tail so retired players can be collected.
	for i := len(kept); i < len(s.Players); i++ {
		s.Players[i] = nil
	}
	s.Players = kept
}
