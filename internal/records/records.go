// Package records persists retired players to Postgres and serves the
// leaderboard pages behind the records endpoint.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Record is one leaderboard row. PlayTime is seconds.
type Record struct {
	Name     string
	Score    int
	PlayTime float64
}

const (
	createSchemaSQL = `
CREATE TABLE IF NOT EXISTS retired_players (
    id           BIGSERIAL PRIMARY KEY,
    name         TEXT NOT NULL,
    score        INTEGER NOT NULL,
    play_time_ms BIGINT NOT NULL,
    created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS retired_players_score_idx
    ON retired_players (score DESC, play_time_ms ASC, name ASC);`

	insertRecordSQL = `INSERT INTO retired_players (name, score, play_time_ms) VALUES ($1, $2, $3)`

	selectRecordsSQL = `SELECT name, score, play_time_ms FROM retired_players ` +
		`ORDER BY score DESC, play_time_ms ASC, name ASC OFFSET $1 LIMIT $2`
)

// rows is the subset of *sql.Rows the store iterates with.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// queryer abstracts the database handle so tests can fake result sets.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (rows, error)
}

// sqlQueryer adapts *sql.DB to the queryer interface.
type sqlQueryer struct {
	db *sql.DB
}

func (q sqlQueryer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, query, args...)
}

func (q sqlQueryer) QueryContext(ctx context.Context, query string, args ...any) (rows, error) {
	return q.db.QueryContext(ctx, query, args...)
}

// Store is the retired-player leaderboard over Postgres.
type Store struct {
	q            queryer
	queryTimeout time.Duration
}

// New builds a store over an open database handle.
func New(db *sql.DB, queryTimeout time.Duration) *Store {
	return newWithQueryer(sqlQueryer{db: db}, queryTimeout)
}

func newWithQueryer(q queryer, queryTimeout time.Duration) *Store {
	return &Store{q: q, queryTimeout: queryTimeout}
}

// Open connects to Postgres and verifies the connection. The caller owns
// closing the handle.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the retired_players table and its leaderboard index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.q.ExecContext(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("creating retired_players schema: %w", err)
	}
	return nil
}

// Add stores one retired player. playTime arrives in seconds and is stored
// as whole milliseconds. Failures are logged and swallowed: losing a record
// must never disturb the simulation that emitted it.
func (s *Store) Add(ctx context.Context, name string, score int, playTime float64) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	playTimeMs := int64(playTime * 1000)
	if _, err := s.q.ExecContext(ctx, insertRecordSQL, name, score, playTimeMs); err != nil {
		log.Printf("⚠️ Failed to save record for %q: %v", name, err)
		return
	}
	log.Printf("🏆 Record saved: %s, score %d, play time %.1fs", name, score, playTime)
}

// Page reads one leaderboard page: best score first, faster play wins ties,
// then name. playTime comes back in seconds.
func (s *Store) Page(ctx context.Context, start, maxItems int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rs, err := s.q.QueryContext(ctx, selectRecordsSQL, start, maxItems)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rs.Close()

	records := make([]Record, 0, maxItems)
	for rs.Next() {
		var r Record
		var ms int64
		if err := rs.Scan(&r.Name, &r.Score, &ms); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.PlayTime = float64(ms) / 1000.0
		records = append(records, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}
