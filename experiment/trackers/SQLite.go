package trackers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	ts "github.com/samuelfneumann/tilesarsa/timestep"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	config     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS episodes (
	run_id   TEXT NOT NULL REFERENCES runs(run_id),
	episode  INTEGER NOT NULL,
	length   INTEGER NOT NULL,
	episode_return REAL NOT NULL,
	end_type TEXT NOT NULL,
	PRIMARY KEY (run_id, episode)
);`

// OpenSQLite opens the SQLite database at path, creating it if needed.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("openSQLite: %w", err)
	}

	// Every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("openSQLite: create schema: %w", err)
	}
	return db, nil
}

// SQLite records one row per finished episode in an SQLite database.
// Each SQLite tracker is a separate run, identified by a random UUID,
// whose configuration is stored as JSON alongside the run.
//
// Rows are written as episodes finish. Track cannot return errors, so
// the first write error is kept, further rows are dropped, and the
// error is returned by Save.
type SQLite struct {
	db    *sql.DB
	runID string

	episode       int
	currentReturn float64
	err           error
}

// NewSQLite starts a new run in db, storing config as the run's
// configuration
func NewSQLite(db *sql.DB, config interface{}) (*SQLite, error) {
	conf, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("newSQLite: could not encode config: %w", err)
	}

	runID := uuid.New().String()
	_, err = db.Exec(`INSERT INTO runs (run_id, created_at, config) `+
		`VALUES (?, ?, ?)`, runID, time.Now().UTC().Format(time.RFC3339),
		string(conf))
	if err != nil {
		return nil, fmt.Errorf("newSQLite: could not create run: %w", err)
	}

	return &SQLite{db: db, runID: runID}, nil
}

// RunID returns the identifier of the run
func (s *SQLite) RunID() string {
	return s.runID
}

// Track records a timestep, writing a row if the episode has ended
func (s *SQLite) Track(t ts.TimeStep) {
	if t.First() {
		s.currentReturn = 0
		return
	}
	s.currentReturn += t.Reward

	if !t.Last() || s.err != nil {
		return
	}

	_, err := s.db.Exec(`INSERT INTO episodes `+
		`(run_id, episode, length, episode_return, end_type) VALUES (?, ?, ?, ?, ?)`,
		s.runID, s.episode, t.Number, s.currentReturn, t.EndType.String())
	if err != nil {
		s.err = fmt.Errorf("track: could not record episode %d: %w",
			s.episode, err)
	}

	s.episode++
	s.currentReturn = 0
}

// Save returns the first error encountered while recording episodes
func (s *SQLite) Save() error {
	return s.err
}

// Episode is a single recorded episode
type Episode struct {
	Episode int
	Length  int
	Return  float64
	EndType string
}

// Episodes returns the recorded episodes of a run in order
func Episodes(db *sql.DB, runID string) ([]Episode, error) {
	rows, err := db.Query(`SELECT episode, length, episode_return, end_type `+
		`FROM episodes WHERE run_id = ? ORDER BY episode ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("episodes: query: %w", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.Episode, &e.Length, &e.Return,
			&e.EndType); err != nil {
			return nil, fmt.Errorf("episodes: scan row: %w", err)
		}
		episodes = append(episodes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("episodes: iterate rows: %w", err)
	}
	return episodes, nil
}
