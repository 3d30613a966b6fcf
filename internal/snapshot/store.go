package snapshot

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"loothound/internal/app"
	"loothound/internal/game"
)

// WriteFile saves state atomically: the JSON lands in a sibling .tmp file
// which then replaces path, so readers never see a half-written save.
func WriteFile(path string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// ReadFile loads a saved state. A missing or empty file is not an error;
// both return a nil state meaning "start fresh".
func ReadFile(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	return &st, nil
}

// Saver writes the world to disk every period of accumulated game time and
// once more when Save is called directly (the shutdown path). With a zero
// period it saves only on demand.
type Saver struct {
	app    *app.Application
	path   string
	period time.Duration

	// OnSave observes every successful write, for metrics.
	OnSave func()

	mu    sync.Mutex
	since time.Duration
}

// NewSaver builds a saver. Register it with app.AddTickListener to enable
// periodic saves.
func NewSaver(a *app.Application, path string, period time.Duration) *Saver {
	return &Saver{
		app:    a,
		path:   path,
		period: period,
	}
}

// OnTick accumulates game time and saves when a full period has passed.
// Both the automatic clock and manual ticks land here.
func (s *Saver) OnTick(delta time.Duration) {
	if s.period <= 0 {
		return
	}

	s.mu.Lock()
	s.since += delta
	due := s.since >= s.period
	if due {
		s.since = 0
	}
	s.mu.Unlock()

	if !due {
		return
	}
	if err := s.Save(); err != nil {
		log.Printf("⚠️ Periodic state save failed: %v", err)
	}
}

// Save captures the world under the read lock and writes it out. The file
// write happens outside the lock.
func (s *Saver) Save() error {
	var st State
	s.app.View(func(g *game.Game) {
		st = Capture(g)
	})

	if err := WriteFile(s.path, st); err != nil {
		return err
	}
	if s.OnSave != nil {
		s.OnSave()
	}
	return nil
}
