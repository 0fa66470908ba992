// Package store provides the SQLite snapshot for the engine.
//
// The store is best-effort durability, not a correctness dependency: the
// in-memory pipeline keeps running when a write fails, and the failed write
// is simply retried on the next cycle. What the snapshot must support is
// resuming: signals and seen-observation ids within the decay window are
// reloaded at startup so aggregation recomputes without re-fetching posts
// the engine already consumed.
//
// # Thread Safety
//
// Store is safe for concurrent use. The underlying sql.DB serializes
// access; individual operations are atomic.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/glitchymagic/cardpulse/internal/card"
)

// Store handles persistence of signals, narratives, and predictions.
type Store struct {
	db *sql.DB
}

// Open creates a new SQLite store at the given path, creating directories
// and applying migrations as needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		observation_id TEXT NOT NULL,
		author TEXT,
		entity_id TEXT NOT NULL,
		strength REAL NOT NULL,
		engagement REAL NOT NULL,
		patterns TEXT NOT NULL,
		detected_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_signals_detected ON signals(detected_at DESC);
	CREATE INDEX IF NOT EXISTS idx_signals_entity ON signals(entity_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_signals_observation ON signals(kind, observation_id, entity_id);

	CREATE TABLE IF NOT EXISTS seen_observations (
		kind TEXT NOT NULL,
		observation_id TEXT NOT NULL,
		detected_at DATETIME NOT NULL,
		PRIMARY KEY (kind, observation_id)
	);

	CREATE TABLE IF NOT EXISTS narratives (
		entity_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		generated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		archetype TEXT NOT NULL,
		direction TEXT NOT NULL,
		magnitude_low REAL NOT NULL,
		magnitude_high REAL NOT NULL,
		horizon_hours REAL NOT NULL,
		confidence REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_entity ON predictions(entity_id);
	CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSignals inserts signals, ignoring ones already present.
func (s *Store) SaveSignals(signals []card.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO signals (id, kind, target, observation_id, author, entity_id, strength, engagement, patterns, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sig := range signals {
		patterns, err := json.Marshal(sig.Patterns)
		if err != nil {
			return fmt.Errorf("marshal patterns for %s: %w", sig.ID, err)
		}
		if _, err := stmt.Exec(sig.ID, string(sig.Kind), sig.Target, sig.ObservationID,
			sig.Author, sig.EntityID, sig.Strength, sig.Engagement, string(patterns), sig.DetectedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadSignals returns all signals detected after cutoff, oldest first.
func (s *Store) LoadSignals(cutoff time.Time) ([]card.Signal, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, target, observation_id, author, entity_id, strength, engagement, patterns, detected_at
		FROM signals WHERE detected_at > ? ORDER BY detected_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []card.Signal
	for rows.Next() {
		var sig card.Signal
		var kind, patterns string
		if err := rows.Scan(&sig.ID, &kind, &sig.Target, &sig.ObservationID,
			&sig.Author, &sig.EntityID, &sig.Strength, &sig.Engagement, &patterns, &sig.DetectedAt); err != nil {
			return nil, err
		}
		sig.Kind = card.SourceKind(kind)
		if err := json.Unmarshal([]byte(patterns), &sig.Patterns); err != nil {
			return nil, fmt.Errorf("unmarshal patterns for %s: %w", sig.ID, err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// MarkSeen records observation ids so restarts within the decay window skip
// already-consumed posts.
func (s *Store) MarkSeen(kind card.SourceKind, observationID string, detectedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO seen_observations (kind, observation_id, detected_at)
		VALUES (?, ?, ?) ON CONFLICT DO NOTHING
	`, string(kind), observationID, detectedAt)
	return err
}

// LoadSeen returns (kind, observation id) pairs recorded after cutoff.
func (s *Store) LoadSeen(cutoff time.Time) (map[card.SourceKind][]string, error) {
	rows, err := s.db.Query(`
		SELECT kind, observation_id FROM seen_observations WHERE detected_at > ?
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[card.SourceKind][]string)
	for rows.Next() {
		var kind, obsID string
		if err := rows.Scan(&kind, &obsID); err != nil {
			return nil, err
		}
		k := card.SourceKind(kind)
		out[k] = append(out[k], obsID)
	}
	return out, rows.Err()
}

// ReplaceNarratives swaps the narrative table wholesale for this cycle's
// set. Narratives are never updated in place so a stale correlation cannot
// linger past the cycle that produced it.
func (s *Store) ReplaceNarratives(narratives []card.Narrative) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM narratives`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO narratives (entity_id, payload, generated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range narratives {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal narrative %s: %w", n.EntityID, err)
		}
		if _, err := stmt.Exec(n.EntityID, string(payload), n.GeneratedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadNarratives returns the most recent cycle's narratives.
func (s *Store) LoadNarratives() ([]card.Narrative, error) {
	rows, err := s.db.Query(`SELECT payload FROM narratives ORDER BY entity_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []card.Narrative
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var n card.Narrative
		if err := json.Unmarshal([]byte(payload), &n); err != nil {
			return nil, fmt.Errorf("unmarshal narrative: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// SavePredictions appends prediction records. The log is append-only.
func (s *Store) SavePredictions(predictions []card.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO predictions (id, entity_id, archetype, direction, magnitude_low, magnitude_high, horizon_hours, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range predictions {
		if _, err := stmt.Exec(p.ID, p.EntityID, p.Archetype, p.Direction,
			p.MagnitudeLow, p.MagnitudeHigh, p.Horizon.Hours(), p.Confidence, p.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadPredictions returns up to limit predictions, newest first.
func (s *Store) LoadPredictions(limit int) ([]card.Prediction, error) {
	rows, err := s.db.Query(`
		SELECT id, entity_id, archetype, direction, magnitude_low, magnitude_high, horizon_hours, confidence, created_at
		FROM predictions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []card.Prediction
	for rows.Next() {
		var p card.Prediction
		var horizonHours float64
		if err := rows.Scan(&p.ID, &p.EntityID, &p.Archetype, &p.Direction,
			&p.MagnitudeLow, &p.MagnitudeHigh, &horizonHours, &p.Confidence, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Horizon = time.Duration(horizonHours * float64(time.Hour))
		out = append(out, p)
	}
	return out, rows.Err()
}

// PruneExpired removes signals and seen markers older than cutoff. The
// prediction log is never pruned.
func (s *Store) PruneExpired(cutoff time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM signals WHERE detected_at <= ?`, cutoff); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM seen_observations WHERE detected_at <= ?`, cutoff)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
