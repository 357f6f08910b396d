// Package indexdb keeps a queryable SQLite index of discoveries next to the
// compressed JSONL log. The log stays the source of truth; the index may drop
// events when its writer falls behind.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelscan.ai/internal/scan/discovery"
	"voxelscan.ai/internal/scan/geom"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type req struct {
	event discovery.Event
	// flush, when set, asks the writer to commit and then close it.
	flush chan struct{}
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
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
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
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS discoveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			material TEXT NOT NULL,
			size INTEGER NOT NULL,
			at_ms INTEGER NOT NULL,
			UNIQUE(run_id, kind, x, y, z)
		);`,
		`CREATE INDEX IF NOT EXISTS discoveries_kind_material ON discoveries(kind, material);`,
		`CREATE INDEX IF NOT EXISTS discoveries_xz ON discoveries(x, z);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
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

// Record queues e for indexing. It never blocks the scan workers.
func (s *SQLiteIndex) Record(e discovery.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{event: e}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropped.Add(1)
	}
	return nil
}

// Dropped counts events discarded because the writer queue was full.
func (s *SQLiteIndex) Dropped() int64 { return s.dropped.Load() }

// Flush waits until every event queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{flush: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insert, _ := s.db.Prepare(`INSERT OR IGNORE INTO discoveries(run_id,kind,x,y,z,material,size,at_ms) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.flush != nil {
			commit()
			close(r.flush)
			continue
		}
		begin()
		if tx == nil || insert == nil {
			continue
		}
		e := r.event
		if _, err := tx.Stmt(insert).Exec(
			e.RunID,
			string(e.Kind),
			e.Pos[0], e.Pos[1], e.Pos[2],
			e.Material,
			e.Size,
			e.Time.UnixMilli(),
		); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

// Filter narrows a Query. Zero fields match everything.
type Filter struct {
	RunID    string
	Kind     discovery.Kind
	Material string
	// Near with Radius > 0 keeps discoveries within Radius of Near.
	Near   geom.Vec3i
	Radius int
	Limit  int
}

// Query returns indexed discoveries in discovery order.
func (s *SQLiteIndex) Query(ctx context.Context, f Filter) ([]discovery.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Material != "" {
		where = append(where, "material = ?")
		args = append(args, f.Material)
	}
	if f.Radius > 0 {
		p, r := f.Near, f.Radius
		where = append(where,
			"x BETWEEN ? AND ?", "z BETWEEN ? AND ?",
			"(x-?)*(x-?) + (y-?)*(y-?) + (z-?)*(z-?) <= ?")
		args = append(args, p.X-r, p.X+r, p.Z-r, p.Z+r,
			p.X, p.X, p.Y, p.Y, p.Z, p.Z, int64(r)*int64(r))
	}

	q := `SELECT run_id,kind,x,y,z,material,size,at_ms FROM discoveries`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY at_ms, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []discovery.Event
	for rows.Next() {
		var (
			e    discovery.Event
			kind string
			atMs int64
		)
		if err := rows.Scan(&e.RunID, &kind, &e.Pos[0], &e.Pos[1], &e.Pos[2], &e.Material, &e.Size, &atMs); err != nil {
			return nil, err
		}
		e.Kind = discovery.Kind(kind)
		e.Time = time.UnixMilli(atMs).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
