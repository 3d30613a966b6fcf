// Package snapshot persists the live world to a JSON state file and
// rebuilds it on startup. Saves are atomic; reloads are tolerant, so a
// damaged or outdated file never stops the server.
package snapshot

import (
	"errors"
	"fmt"
	"log"

	"loothound/internal/game"
	"loothound/internal/geom"
)

// State is the wire shape of a full world save.
type State struct {
	Sessions []SessionState `json:"sessions"`
}

// SessionState is one live session with everything on it.
type SessionState struct {
	ID         string        `json:"id"`
	MapID      string        `json:"map_id"`
	NextLootID int           `json:"next_loot_id"`
	Players    []PlayerState `json:"players"`
	Loots      []LootItem    `json:"loots"`
}

// PlayerState is one player: credentials, score and dog.
type PlayerState struct {
	ID          int        `json:"id"`
	Token       string     `json:"token"`
	Score       int        `json:"score"`
	BagCapacity int        `json:"bag_capacity"`
	Dog         DogState   `json:"dog"`
	Bag         []LootItem `json:"bag"`
}

// DogState is a dog frozen mid-walk.
type DogState struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	MapID     string     `json:"map_id"`
	Position  Vec        `json:"position"`
	Speed     SpeedState `json:"speed"`
	Direction string     `json:"direction"`
}

// Vec is a serialized point.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SpeedState is a serialized velocity.
type SpeedState struct {
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// LootItem is a loot instance, on the ground or in a bag.
type LootItem struct {
	ID       int `json:"id"`
	Type     int `json:"type"`
	Value    int `json:"value"`
	Position Vec `json:"position"`
}

// Capture freezes the observable game state into its wire shape. The caller
// must hold the world lock.
func Capture(g *game.Game) State {
	sessions := g.Sessions()
	st := State{Sessions: make([]SessionState, 0, len(sessions))}
	for _, s := range sessions {
		st.Sessions = append(st.Sessions, captureSession(s))
	}
	return st
}

func captureSession(s *game.Session) SessionState {
	ss := SessionState{
		ID:         s.ID,
		MapID:      s.Map.ID,
		NextLootID: s.NextLootID,
		Players:    make([]PlayerState, 0, len(s.Players)),
		Loots:      make([]LootItem, 0, len(s.Loots)),
	}
	for _, p := range s.Players {
		ss.Players = append(ss.Players, capturePlayer(p))
	}
	for _, l := range s.Loots {
		ss.Loots = append(ss.Loots, captureLoot(l))
	}
	return ss
}

func capturePlayer(p *game.Player) PlayerState {
	dog := p.Dog
	ps := PlayerState{
		ID:          p.ID,
		Token:       p.Token,
		Score:       p.Score,
		BagCapacity: p.BagCapacity,
		Dog: DogState{
			ID:        dog.ID,
			Name:      dog.Name,
			MapID:     dog.MapID,
			Position:  Vec{X: geom.Round6(dog.Pos.X), Y: geom.Round6(dog.Pos.Y)},
			Speed:     SpeedState{VX: geom.Round6(dog.Speed.VX), VY: geom.Round6(dog.Speed.VY)},
			Direction: dog.Dir.String(),
		},
		Bag: make([]LootItem, 0, len(p.Bag)),
	}
	for _, l := range p.Bag {
		ps.Bag = append(ps.Bag, captureLoot(l))
	}
	return ps
}

func captureLoot(l game.Loot) LootItem {
	return LootItem{
		ID:    l.ID,
		Type:  l.Type,
		Value: l.Value,
		Position: Vec{
			X: geom.Round6(l.Position.X),
			Y: geom.Round6(l.Position.Y),
		},
	}
}

// Restore rebuilds sessions from a saved state into a fresh game. Sessions
// on unknown maps are skipped with a warning, as are unusable players, so a
// partially valid file restores everything it can.
func Restore(g *game.Game, st *State) {
	for _, ss := range st.Sessions {
		if err := restoreSession(g, ss); err != nil {
			log.Printf("⚠️ Skipping saved session %q: %v", ss.ID, err)
		}
	}
}

func restoreSession(g *game.Game, ss SessionState) error {
	session, err := g.GetOrCreateSession(ss.MapID)
	if err != nil {
		return fmt.Errorf("map %q: %w", ss.MapID, err)
	}
	session.NextLootID = ss.NextLootID

	for _, ps := range ss.Players {
		p, err := restorePlayer(ps)
		if err != nil {
			log.Printf("⚠️ Dropping saved player %q: %v", ps.Dog.Name, err)
			continue
		}
		session.AddPlayer(p)
	}
	for _, ls := range ss.Loots {
		session.AddLoot(restoreLoot(ls))
	}
	return nil
}

func restorePlayer(ps PlayerState) (*game.Player, error) {
	if ps.Token == "" {
		return nil, errors.New("empty token")
	}
	if ps.Dog.MapID == "" {
		return nil, errors.New("dog has no map")
	}

	dir, ok := game.ParseDirection(ps.Dog.Direction)
	if !ok {
		log.Printf("⚠️ Saved dog %q has direction %q, using north", ps.Dog.Name, ps.Dog.Direction)
	}
	pos := geom.Point{X: ps.Dog.Position.X, Y: ps.Dog.Position.Y}
	dog := &game.Dog{
		ID:      ps.Dog.ID,
		Name:    ps.Dog.Name,
		MapID:   ps.Dog.MapID,
		Pos:     pos,
		PrevPos: pos,
		Speed:   geom.Speed{VX: ps.Dog.Speed.VX, VY: ps.Dog.Speed.VY},
		Dir:     dir,
	}

	p := game.NewPlayer(ps.ID, ps.Token, dog, ps.BagCapacity)
	p.Score = ps.Score
	for _, ls := range ps.Bag {
		p.AddToBag(restoreLoot(ls))
	}
	return p, nil
}

func restoreLoot(ls LootItem) game.Loot {
	return game.Loot{
		ID:       ls.ID,
		Type:     ls.Type,
		Value:    ls.Value,
		Position: geom.Point{X: ls.Position.X, Y: ls.Position.Y},
	}
}
