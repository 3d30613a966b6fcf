// Package app ties the transport to the simulation. Application owns the
// one lock every API operation and every tick goes through, the token
// registry and the player id counter; the game model below it is free of
// locking.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"loothound/internal/game"
	"loothound/internal/geom"
)

// Sentinel errors surfaced to the transport layer.
var (
	// ErrUnknownToken means no live player holds the presented token.
	ErrUnknownToken = errors.New("unknown token")
	// ErrManualTickDisabled means the server drives the clock itself.
	ErrManualTickDisabled = errors.New("manual ticks are disabled")
)

// TickListener observes every simulation advance, automatic or manual.
// Listeners run outside the world lock.
type TickListener interface {
	OnTick(delta time.Duration)
}

// RetirementSink receives the final record of every retired player.
// playTime is in seconds. It runs inside the tick, so it must not call back
// into the Application.
type RetirementSink func(name string, score int, playTime float64)

// Options configures an Application.
type Options struct {
	// TickPeriod drives the automatic simulation clock. Zero disables the
	// clock and opens the manual tick endpoint instead.
	TickPeriod time.Duration

	// Tokens overrides the auth token source, for reproducible tests.
	Tokens *TokenGenerator

	// OnTickDone observes every finished simulation step: how long the
	// step took to compute and the world population it left behind.
	OnTickDone func(elapsed time.Duration, players, loots int)
}

// Application is the single serialization point of the server. Handlers and
// the tick clock all lock here, so the game model always sees one caller at
// a time. HTTP parsing, JSON encoding and file I/O happen outside the lock.
type Application struct {
	mu sync.RWMutex

	game    *game.Game
	tokens  *TokenGenerator
	players map[string]*game.Player
	nextID  int

	tickPeriod time.Duration
	onTickDone func(elapsed time.Duration, players, loots int)

	listenerMu sync.Mutex
	listeners  []TickListener

	retired RetirementSink
}

// New builds the application over a game. Players already in the game (a
// restored snapshot) are indexed by token, and the id counter starts past
// the highest restored id.
func New(g *game.Game, opts Options) *Application {
	a := &Application{
		game:       g,
		tokens:     opts.Tokens,
		players:    make(map[string]*game.Player),
		tickPeriod: opts.TickPeriod,
		onTickDone: opts.OnTickDone,
	}
	if a.tokens == nil {
		a.tokens = NewTokenGenerator()
	}

	for _, s := range g.Sessions() {
		for _, p := range s.Players {
			a.players[p.Token] = p
			if p.ID >= a.nextID {
				a.nextID = p.ID + 1
			}
		}
	}

	g.SetRetirementHandler(a.onRetired)
	return a
}

// SetRetirementSink installs the retirement consumer. Call before serving.
func (a *Application) SetRetirementSink(sink RetirementSink) {
	a.retired = sink
}

// AddTickListener subscribes to simulation advances. Call before serving.
func (a *Application) AddTickListener(l TickListener) {
	a.listenerMu.Lock()
	defer a.listenerMu.Unlock()
	a.listeners = append(a.listeners, l)
}

// ManualTickEnabled reports whether clients drive the clock.
func (a *Application) ManualTickEnabled() bool {
	return a.tickPeriod <= 0
}

// onRetired runs inside game.Update with the write lock already held.
func (a *Application) onRetired(p *game.Player) {
	delete(a.players, p.Token)
	if a.retired != nil {
		a.retired(p.Dog.Name, p.Score, p.PlayTime)
	}
}

// JoinResult is what a successful join returns to the client.
type JoinResult struct {
	Token    string
	PlayerID int
}

// Join creates a player with a fresh dog on the given map and returns its
// credentials. Returns game.ErrMapNotFound for an unknown map id.
func (a *Application) Join(userName, mapID string) (JoinResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.game.FindMap(mapID)
	if m == nil {
		return JoinResult{}, game.ErrMapNotFound
	}
	session, err := a.game.GetOrCreateSession(mapID)
	if err != nil {
		return JoinResult{}, err
	}

	token := a.tokens.Next()
	for a.players[token] != nil {
		token = a.tokens.Next()
	}

	dog := game.NewDog(userName, mapID, a.game.SpawnPoint(m))
	p := game.NewPlayer(a.nextID, token, dog, m.BagCapacity)
	a.nextID++

	session.AddPlayer(p)
	a.players[token] = p

	return JoinResult{Token: token, PlayerID: p.ID}, nil
}

// Authorize reports whether a live player holds the token.
func (a *Application) Authorize(token string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.players[token] == nil {
		return ErrUnknownToken
	}
	return nil
}

// PlayerInfo is one row of the player list.
type PlayerInfo struct {
	ID   int
	Name string
}

// Players lists everyone sharing a session with the token's player.
func (a *Application) Players(token string) ([]PlayerInfo, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, err := a.sessionOf(token)
	if err != nil {
		return nil, err
	}
	infos := make([]PlayerInfo, 0, len(s.Players))
	for _, p := range s.Players {
		infos = append(infos, PlayerInfo{ID: p.ID, Name: p.Dog.Name})
	}
	return infos, nil
}

// PlayerState is one player's slice of the world state.
type PlayerState struct {
	ID    int
	Name  string
	Pos   geom.Point
	Speed geom.Speed
	Dir   game.Direction
	Bag   []game.Loot
	Score int
}

// LootState is one ground loot item in the world state.
type LootState struct {
	ID   int
	Type int
	Pos  geom.Point
}

// StateView is a copied, lock-free view of one session's observable state.
type StateView struct {
	Players []PlayerState
	Loots   []LootState
}

// State copies the observable state of the token's session.
func (a *Application) State(token string) (StateView, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, err := a.sessionOf(token)
	if err != nil {
		return StateView{}, err
	}
	return viewOf(s), nil
}

// StateByMap copies the observable state of the session running mapID. A
// known map without a session yet yields an empty view; an unknown map is
// game.ErrMapNotFound. The spectator feed reads through here.
func (a *Application) StateByMap(mapID string) (StateView, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.game.FindMap(mapID) == nil {
		return StateView{}, game.ErrMapNotFound
	}
	s := a.game.FindSession(mapID)
	if s == nil {
		return StateView{Players: []PlayerState{}, Loots: []LootState{}}, nil
	}
	return viewOf(s), nil
}

// viewOf copies a session's observable state. Callers hold the lock.
func viewOf(s *game.Session) StateView {
	view := StateView{
		Players: make([]PlayerState, 0, len(s.Players)),
		Loots:   make([]LootState, 0, len(s.Loots)),
	}
	for _, p := range s.Players {
		bag := make([]game.Loot, len(p.Bag))
		copy(bag, p.Bag)
		view.Players = append(view.Players, PlayerState{
			ID:    p.ID,
			Name:  p.Dog.Name,
			Pos:   p.Dog.Pos,
			Speed: p.Dog.Speed,
			Dir:   p.Dog.Dir,
			Bag:   bag,
			Score: p.Score,
		})
	}
	for _, l := range s.Loots {
		view.Loots = append(view.Loots, LootState{ID: l.ID, Type: l.Type, Pos: l.Position})
	}
	return view
}

// sessionOf resolves a token to its live session. Callers hold the lock.
func (a *Application) sessionOf(token string) (*game.Session, error) {
	p := a.players[token]
	if p == nil {
		return nil, ErrUnknownToken
	}
	s := a.game.FindSession(p.Dog.MapID)
	if s == nil {
		return nil, ErrUnknownToken
	}
	return s, nil
}

// Move points the token's dog along dir at the map's dog speed. stop zeroes
// the velocity instead and keeps the heading.
func (a *Application) Move(token string, dir game.Direction, stop bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.players[token]
	if p == nil {
		return ErrUnknownToken
	}
	if stop {
		p.Dog.Stop()
		return nil
	}
	m := a.game.FindMap(p.Dog.MapID)
	if m == nil {
		return game.ErrMapNotFound
	}
	p.Dog.Head(dir, m.DogSpeed)
	return nil
}

// Maps returns the immutable map set in load order.
func (a *Application) Maps() []*game.Map {
	return a.game.Maps()
}

// FindMap returns one map by id, or nil.
func (a *Application) FindMap(id string) *game.Map {
	return a.game.FindMap(id)
}

// ManualTick advances the world by delta. Only legal while the automatic
// clock is off.
func (a *Application) ManualTick(delta time.Duration) error {
	if !a.ManualTickEnabled() {
		return ErrManualTickDisabled
	}
	a.advance(delta)
	return nil
}

// Run drives the automatic simulation clock until ctx is canceled. Each
// wake feeds the real measured elapsed time into the world, so a slow tick
// loses no game time. Returns immediately when manual ticks are enabled.
func (a *Application) Run(ctx context.Context) error {
	if a.ManualTickEnabled() {
		return nil
	}

	ticker := time.NewTicker(a.tickPeriod)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			a.advance(now.Sub(last))
			last = now
		}
	}
}

// View runs fn under the read lock with the live game. fn must treat the
// game as read-only and must not retain it past the call.
func (a *Application) View(fn func(g *game.Game)) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	fn(a.game)
}

// advance runs one simulation step and fans the tick out to listeners.
func (a *Application) advance(delta time.Duration) {
	start := time.Now()

	a.mu.Lock()
	a.game.Update(delta.Seconds())
	players, loots := 0, 0
	for _, s := range a.game.Sessions() {
		players += len(s.Players)
		loots += len(s.Loots)
	}
	a.mu.Unlock()

	if a.onTickDone != nil {
		a.onTickDone(time.Since(start), players, loots)
	}

	a.listenerMu.Lock()
	listeners := a.listeners
	a.listenerMu.Unlock()
	for _, l := range listeners {
		l.OnTick(delta)
	}
}
