package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tycoon.ai/internal/agent/tick"
	"tycoon.ai/internal/sim/state"
	"tycoon.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index over tick and command logs. Writes are
// queued and applied by a single goroutine; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
	reqTuning
)

type req struct {
	kind reqKind

	tick     tick.TickLogEntry
	audit    tick.AuditEntry
	snapshot snapshotRow
	tuning   tuningRow
}

type tuningRow struct {
	Digest string
	JSON   string
}

type snapshotRow struct {
	Tick    uint64
	Path    string
	Digest  string
	Balance int64
	Sites   int
	Workers int
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropTickTotal     uint64 `json:"drop_tick_total"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
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
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS tunings (
			digest TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			digest TEXT NOT NULL,
			planned INTEGER NOT NULL,
			executed INTEGER NOT NULL,
			error TEXT,
			error_code TEXT,
			failed_policy TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_started ON ticks(started_at);`,
		`CREATE TABLE IF NOT EXISTS commands (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			policy TEXT NOT NULL,
			kind TEXT NOT NULL,
			target TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			message TEXT,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, seq, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_target ON commands(target, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_kind ON commands(kind, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			balance INTEGER NOT NULL,
			sites INTEGER NOT NULL,
			workers INTEGER NOT NULL
		);`,
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

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry tick.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry tick.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap *state.Snapshot) {
	if s == nil || s.closed.Load() || snap == nil {
		return
	}
	r := snapshotRow{
		Tick:    snap.Tick,
		Path:    path,
		Digest:  snap.Digest(),
		Balance: snap.Person.Balance,
		Sites:   len(snap.Sites),
		Workers: len(snap.Workers),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertTuning records the tuning a run applies, keyed by its digest.
func (s *SQLiteIndex) UpsertTuning(t tuning.Tuning) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	select {
	case s.ch <- req{kind: reqTuning, tuning: tuningRow{Digest: t.Digest(), JSON: string(b)}}:
		return nil
	default:
		return fmt.Errorf("index queue full")
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,seq,tick,mode,started_at,duration_ms,digest,planned,executed,error,error_code,failed_policy,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(run_id,seq,idx,tick,policy,kind,target,ok,code,message,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,digest,balance,sites,workers) VALUES(?,?,?,?,?,?)`)
	insertTuning, _ := s.db.Prepare(`INSERT OR REPLACE INTO tunings(digest,json,recorded_at) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertCommand, insertSnapshot, insertTuning} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		// Command index within a tick, assigned here so it follows arrival order.
		lastRun string
		lastSeq uint64
		cmdIdx  int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
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
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	_, _ = s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`)

	flush := time.NewTicker(commitMaxWait)
	defer flush.Stop()

	for {
		var r req
		select {
		case <-flush.C:
			flushIfNeeded()
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}

		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			b, _ := json.Marshal(e)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					e.RunID,
					int64(e.Seq),
					int64(e.Tick),
					e.Mode,
					e.StartedAt.UTC().Format(time.RFC3339Nano),
					e.DurationMs,
					e.Digest,
					len(e.Commands()),
					e.Executed,
					nullable(e.Error),
					nullable(e.ErrorCode),
					nullable(e.FailedPolicy),
					string(b),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqAudit:
			a := r.audit
			if a.RunID != lastRun || a.Seq != lastSeq {
				lastRun, lastSeq, cmdIdx = a.RunID, a.Seq, 0
			}
			idx := cmdIdx
			cmdIdx++
			raw, _ := json.Marshal(a)
			if insertCommand != nil {
				if _, err := tx.Stmt(insertCommand).Exec(
					a.RunID,
					int64(a.Seq),
					idx,
					int64(a.Tick),
					a.Policy,
					string(a.Command.Kind),
					a.Command.Target(),
					a.OK,
					nullable(a.Code),
					nullable(a.Message),
					nullable(a.Command.Reason),
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqTuning:
			if insertTuning != nil {
				if _, err := tx.Stmt(insertTuning).Exec(r.tuning.Digest, r.tuning.JSON, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					int64(sn.Tick),
					sn.Path,
					sn.Digest,
					sn.Balance,
					sn.Sites,
					sn.Workers,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
