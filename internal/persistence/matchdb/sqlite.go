// Package matchdb maintains a sqlite read-model of matches, shots and
// outcomes. Writes go through a single goroutine fed by a buffered channel
// so the match loop never blocks on disk; nothing here affects simulation
// determinism.
package matchdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tanx.game/internal/protocol"
	"tanx.game/internal/sim/game"
	"tanx.game/internal/sim/terrain"
)

type Store struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqMatch reqKind = iota + 1
	reqShot
	reqEvent
	reqFinish
	reqBarrier
)

type req struct {
	kind reqKind

	matchRow  matchRow
	shotRow   shotRow
	eventRow  eventRow
	finishRow finishRow
	barrier   chan struct{}
}

type matchRow struct {
	ID           string
	Seed         int64
	Style        string
	Width        int
	Height       int
	TuningDigest string
	StartedAt    string
}

type shotRow struct {
	MatchID string
	Tick    uint64
	Slot    int
	Angle   int
	Power   float64
	Kind    string
	ImpactX float64
	ImpactY float64
	Fatal   bool
}

type eventRow struct {
	MatchID string
	Tick    uint64
	Kind    string
	RawJSON string
}

type finishRow struct {
	MatchID    string
	WinnerSlot int
	FinishedAt string
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only write pattern.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			style TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			tuning_digest TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			winner_slot INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS shots (
			match_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			angle INTEGER NOT NULL,
			power REAL NOT NULL,
			kind TEXT NOT NULL,
			impact_x REAL NOT NULL,
			impact_y REAL NOT NULL,
			fatal INTEGER NOT NULL,
			PRIMARY KEY (match_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			match_id TEXT NOT NULL,
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_match_tick ON events(match_id, tick);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loop() {
	for r := range s.ch {
		var err error
		switch r.kind {
		case reqMatch:
			_, err = s.db.Exec(
				`INSERT OR REPLACE INTO matches (id, seed, style, width, height, tuning_digest, started_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.matchRow.ID, r.matchRow.Seed, r.matchRow.Style, r.matchRow.Width,
				r.matchRow.Height, r.matchRow.TuningDigest, r.matchRow.StartedAt)
		case reqShot:
			_, err = s.db.Exec(
				`INSERT OR REPLACE INTO shots (match_id, tick, slot, angle, power, kind, impact_x, impact_y, fatal)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.shotRow.MatchID, r.shotRow.Tick, r.shotRow.Slot, r.shotRow.Angle,
				r.shotRow.Power, r.shotRow.Kind, r.shotRow.ImpactX, r.shotRow.ImpactY,
				boolInt(r.shotRow.Fatal))
		case reqEvent:
			_, err = s.db.Exec(
				`INSERT INTO events (match_id, tick, kind, raw_json) VALUES (?, ?, ?, ?)`,
				r.eventRow.MatchID, r.eventRow.Tick, r.eventRow.Kind, r.eventRow.RawJSON)
		case reqFinish:
			_, err = s.db.Exec(
				`UPDATE matches SET finished_at = ?, winner_slot = ? WHERE id = ?`,
				r.finishRow.FinishedAt, r.finishRow.WinnerSlot, r.finishRow.MatchID)
		case reqBarrier:
			close(r.barrier)
		}
		if err != nil {
			// Index writes are best effort; the replay log is the source of truth.
			continue
		}
	}
}

func (s *Store) enqueue(r req) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
	}
}

// StartMatch implements match.Recorder.
func (s *Store) StartMatch(matchID string, settings terrain.Settings, tuningDigest string) {
	s.enqueue(req{kind: reqMatch, matchRow: matchRow{
		ID:           matchID,
		Seed:         settings.Seed,
		Style:        settings.Style,
		Width:        settings.Width,
		Height:       settings.Height,
		TuningDigest: tuningDigest,
		StartedAt:    time.Now().UTC().Format(time.RFC3339),
	}})
}

// RecordShot implements match.Recorder.
func (s *Store) RecordShot(matchID string, tick uint64, slot int, angle int, power float64, result *game.ShotResult) {
	s.enqueue(req{kind: reqShot, shotRow: shotRow{
		MatchID: matchID,
		Tick:    tick,
		Slot:    slot,
		Angle:   angle,
		Power:   power,
		Kind:    string(result.Kind()),
		ImpactX: result.ImpactX,
		ImpactY: result.ImpactY,
		Fatal:   result.FatalHit,
	}})
}

// RecordEvent implements match.Recorder.
func (s *Store) RecordEvent(matchID string, tick uint64, ev protocol.EventMsg) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.enqueue(req{kind: reqEvent, eventRow: eventRow{
		MatchID: matchID,
		Tick:    tick,
		Kind:    ev.Kind,
		RawJSON: string(raw),
	}})
}

// FinishMatch implements match.Recorder.
func (s *Store) FinishMatch(matchID string, winnerSlot int) {
	s.enqueue(req{kind: reqFinish, finishRow: finishRow{
		MatchID:    matchID,
		WinnerSlot: winnerSlot,
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
	}})
}

// Drain blocks until every write queued before the call has been applied.
func (s *Store) Drain() {
	if s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqBarrier, barrier: done}
	<-done
}

// MatchSummary is a read-model row for listings.
type MatchSummary struct {
	ID         string
	Seed       int64
	Style      string
	WinnerSlot int
	Finished   bool
	Shots      int
}

func (s *Store) ListMatches() ([]MatchSummary, error) {
	rows, err := s.db.Query(
		`SELECT m.id, m.seed, m.style, COALESCE(m.winner_slot, -1), m.finished_at IS NOT NULL,
		        (SELECT COUNT(*) FROM shots sh WHERE sh.match_id = m.id)
		 FROM matches m ORDER BY m.started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchSummary
	for rows.Next() {
		var m MatchSummary
		if err := rows.Scan(&m.ID, &m.Seed, &m.Style, &m.WinnerSlot, &m.Finished, &m.Shots); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
