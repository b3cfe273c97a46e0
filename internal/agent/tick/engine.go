// Package tick runs the policies of one tick, in their fixed order, against the domain.
//
// A tick reads a snapshot, asks each policy for its commands and executes them one at a
// time, awaiting each before the next. The first failure aborts the rest of the tick.
// Ticks never overlap: a Tick call made while another is running fails with
// ErrTickInProgress.
package tick

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tycoon.ai/internal/agent/policy"
	"tycoon.ai/internal/protocol"
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
	"tycoon.ai/internal/sim/tuning"
)

// Domain is the authoritative store the engine reads from and writes to.
type Domain interface {
	Snapshot(ctx context.Context) (*state.Snapshot, error)
	Execute(ctx context.Context, c command.Command) error
}

// Reporter renders what a tick does for humans. It has no say in the tick's outcome.
type Reporter interface {
	TickStarted(seq uint64, s *state.Snapshot)
	CommandExecuted(c command.Command)
	CommandFailed(c command.Command, err error)
	TickFinished(entry TickLogEntry)
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

var ErrTickInProgress = errors.New("tick already in progress")

type Config struct {
	Domain Domain
	Tuning tuning.Tuning

	// Policies defaults to policy.Standard(Tuning).
	Policies []policy.Policy

	// Optional collaborators.
	Reporter    Reporter
	TickLogger  TickLogger
	AuditLogger AuditLogger
	Logger      *log.Logger

	// RunID tags every entry this engine records. Empty means a fresh uuid.
	RunID string
	Now   func() time.Time
}

type Engine struct {
	domain   Domain
	tuning   tuning.Tuning
	policies []policy.Policy

	reporter    Reporter
	tickLogger  TickLogger
	auditLogger AuditLogger
	log         *log.Logger

	runID string
	now   func() time.Time

	seq     atomic.Uint64
	running atomic.Bool
}

func New(cfg Config) (*Engine, error) {
	if cfg.Domain == nil {
		return nil, fmt.Errorf("tick: nil domain")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("tick: %w", err)
	}
	e := &Engine{
		domain:      cfg.Domain,
		tuning:      cfg.Tuning,
		policies:    cfg.Policies,
		reporter:    cfg.Reporter,
		tickLogger:  cfg.TickLogger,
		auditLogger: cfg.AuditLogger,
		log:         cfg.Logger,
		runID:       cfg.RunID,
		now:         cfg.Now,
	}
	if e.policies == nil {
		e.policies = policy.Standard(cfg.Tuning)
	}
	if e.reporter == nil {
		e.reporter = nopReporter{}
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

func (e *Engine) RunID() string { return e.runID }

// Tick performs one tick. The returned entry describes everything that was planned and
// executed, including on failure.
func (e *Engine) Tick(ctx context.Context) (TickLogEntry, error) {
	if !e.running.CompareAndSwap(false, true) {
		return TickLogEntry{}, ErrTickInProgress
	}
	defer e.running.Store(false)

	start := e.now()
	entry := TickLogEntry{
		RunID:     e.runID,
		Seq:       e.seq.Add(1),
		Mode:      e.tuning.Tick.Mode,
		Tuning:    e.tuning,
		StartedAt: start.UTC(),
	}
	err := e.runPolicies(ctx, &entry)
	entry.DurationMs = e.now().Sub(start).Milliseconds()
	if err != nil {
		entry.Error = err.Error()
		entry.ErrorCode = protocol.CodeOf(err)
		var ce *CommandError
		if errors.As(err, &ce) {
			entry.FailedPolicy = ce.Policy
		}
	}

	e.reporter.TickFinished(entry)
	if e.tickLogger != nil {
		if werr := e.tickLogger.WriteTick(entry); werr != nil {
			e.logf("tick log write failed: seq=%d err=%v", entry.Seq, werr)
		}
	}
	return entry, err
}

func (e *Engine) runPolicies(ctx context.Context, entry *TickLogEntry) error {
	snap, err := e.read(ctx, "")
	if err != nil {
		return err
	}
	entry.Tick = snap.Tick
	entry.Digest = snap.Digest()
	e.reporter.TickStarted(entry.Seq, snap)

	prevDigest := ""
	for i, p := range e.policies {
		if i > 0 && e.tuning.Tick.Mode == tuning.ModeRefresh {
			if snap, err = e.read(ctx, p.Name()); err != nil {
				return err
			}
		}
		step := StepRecord{Policy: p.Name(), Digest: snap.Digest()}
		if step.Digest != prevDigest {
			step.Snapshot = snap
		}
		prevDigest = step.Digest
		step.Planned = p.Plan(snap)

		entry.Steps = append(entry.Steps, step)
		rec := &entry.Steps[len(entry.Steps)-1]
		for _, c := range rec.Planned {
			if err := e.execute(ctx, entry, p.Name(), c); err != nil {
				return err
			}
			rec.Executed++
			entry.Executed++
		}
	}
	return nil
}

func (e *Engine) read(ctx context.Context, step string) (*state.Snapshot, error) {
	snap, err := e.domain.Snapshot(ctx)
	if err != nil {
		return nil, &ReadError{Step: step, Err: err}
	}
	if err := snap.Validate(); err != nil {
		return nil, &ReadError{Step: step, Err: err}
	}
	return snap, nil
}

func (e *Engine) execute(ctx context.Context, entry *TickLogEntry, policyName string, c command.Command) error {
	if c.Policy == "" {
		c.Policy = policyName
	}
	err := c.Validate()
	if err == nil {
		err = e.domain.Execute(ctx, c)
	}
	e.audit(entry, c, err)
	if err != nil {
		e.reporter.CommandFailed(c, err)
		return &CommandError{Policy: policyName, Command: c, Err: err}
	}
	e.reporter.CommandExecuted(c)
	return nil
}

func (e *Engine) audit(entry *TickLogEntry, c command.Command, err error) {
	if e.auditLogger == nil {
		return
	}
	a := AuditEntry{
		RunID:   entry.RunID,
		Seq:     entry.Seq,
		Tick:    entry.Tick,
		Policy:  c.Policy,
		Command: c,
		OK:      err == nil,
	}
	if err != nil {
		a.Code = protocol.CodeOf(err)
		a.Message = err.Error()
	}
	if werr := e.auditLogger.WriteAudit(a); werr != nil {
		e.logf("audit write failed: seq=%d err=%v", entry.Seq, werr)
	}
}

// Run ticks immediately and then every interval until ctx is done. A zero interval uses
// the tuning's tick interval. Failed ticks are logged and the loop goes on, unless the
// tuning asks to stop on error, in which case the failure is returned.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	return e.RunN(ctx, interval, 0, nil)
}

// RunN is Run with a tick limit (0 means none) and a hook called after every tick,
// failed or not, before waiting for the next one.
func (e *Engine) RunN(ctx context.Context, interval time.Duration, limit int, after func()) error {
	if interval <= 0 {
		interval = time.Duration(e.tuning.Tick.IntervalMs) * time.Millisecond
	}
	if interval <= 0 {
		return fmt.Errorf("tick: non-positive interval")
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for n := 1; ; n++ {
		if _, err := e.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.logf("tick failed: %v", err)
			if e.tuning.Tick.StopOnError {
				return err
			}
		}
		if after != nil {
			after()
		}
		if limit > 0 && n >= limit {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.log != nil {
		e.log.Printf(format, args...)
	}
}

type nopReporter struct{}

func (nopReporter) TickStarted(uint64, *state.Snapshot)  {}
func (nopReporter) CommandExecuted(command.Command)      {}
func (nopReporter) CommandFailed(command.Command, error) {}
func (nopReporter) TickFinished(TickLogEntry)            {}
