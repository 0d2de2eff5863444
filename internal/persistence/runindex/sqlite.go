package runindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// RunInfo describes one harness run for later lookup.
type RunInfo struct {
	RunID         string
	StartedAt     time.Time
	Seed          int64
	Generator     string
	Height        int
	ViewRadius    int
	TickRateHz    int
	PaletteDigest string
}

// FrameRow is one tick's pose sample.
type FrameRow struct {
	RunID    string
	Tick     uint64
	Pos      [3]float64
	Yaw      float64
	Pitch    float64
	ChunkX   int
	ChunkZ   int
	Resident int
}

// ChunkEventRow records a load or evict emitted by the view synchronizer.
type ChunkEventRow struct {
	RunID string
	Tick  uint64
	Kind  string // "load" or "evict"
	CX    int
	CZ    int
}

type reqKind int

const (
	reqFrame reqKind = iota + 1
	reqChunkEvent
)

type req struct {
	kind  reqKind
	frame FrameRow
	event ChunkEventRow
}

// SQLiteIndex is an append-mostly run index. Writes are queued to a single
// writer goroutine; on backpressure they are dropped, the flight log
// remains the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
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
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			generator TEXT NOT NULL,
			height INTEGER NOT NULL,
			view_radius INTEGER NOT NULL,
			tick_rate_hz INTEGER NOT NULL,
			palette_digest TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			yaw REAL NOT NULL,
			pitch REAL NOT NULL,
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			resident INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS chunk_events (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_events_pos ON chunk_events(cx, cz, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordRun registers the run synchronously so it exists before any frame
// row references it.
func (s *SQLiteIndex) RecordRun(info RunInfo) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO runs
		 (run_id, started_at, seed, generator, height, view_radius, tick_rate_hz, palette_digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.RunID, info.StartedAt.UTC().Format(time.RFC3339),
		info.Seed, info.Generator, info.Height, info.ViewRadius,
		info.TickRateHz, info.PaletteDigest,
	)
	return err
}

func (s *SQLiteIndex) WriteFrame(row FrameRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqFrame, frame: row}:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) WriteChunkEvent(row ChunkEventRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqChunkEvent, event: row}:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many rows were discarded under backpressure.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) loop() {
	var seq uint64
	var seqTick uint64
	for r := range s.ch {
		switch r.kind {
		case reqFrame:
			f := r.frame
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO frames
				 (run_id, tick, x, y, z, yaw, pitch, cx, cz, resident)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				f.RunID, f.Tick, f.Pos[0], f.Pos[1], f.Pos[2],
				f.Yaw, f.Pitch, f.ChunkX, f.ChunkZ, f.Resident,
			)
		case reqChunkEvent:
			e := r.event
			if e.Tick != seqTick {
				seqTick = e.Tick
				seq = 0
			}
			seq++
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO chunk_events
				 (run_id, tick, seq, kind, cx, cz)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				e.RunID, e.Tick, seq, e.Kind, e.CX, e.CZ,
			)
		}
	}
}

// CountFrames reports how many frame rows a run recorded.
func (s *SQLiteIndex) CountFrames(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM frames WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// CountChunkEvents reports load/evict rows recorded for a run.
func (s *SQLiteIndex) CountChunkEvents(runID, kind string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chunk_events WHERE run_id = ? AND kind = ?`,
		runID, kind,
	).Scan(&n)
	return n, err
}
