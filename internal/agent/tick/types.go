package tick

import (
	"time"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
	"tycoon.ai/internal/sim/tuning"
)

// TickLogEntry records one tick completely enough to re-plan it offline.
type TickLogEntry struct {
	RunID string `json:"run_id"`
	Seq   uint64 `json:"seq"`
	Tick  uint64 `json:"tick"` // domain turn at tick start

	Mode   string        `json:"mode"`
	Tuning tuning.Tuning `json:"tuning"`

	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`

	// Digest of the snapshot read at tick start.
	Digest string       `json:"digest"`
	Steps  []StepRecord `json:"steps"`

	Executed     int    `json:"executed"`
	Error        string `json:"error,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	FailedPolicy string `json:"failed_policy,omitempty"`
}

// StepRecord is one policy step. Snapshot is only set when it differs from the previous
// step's; a nil Snapshot means the step planned against the same state as the one before.
type StepRecord struct {
	Policy   string            `json:"policy"`
	Digest   string            `json:"digest"`
	Snapshot *state.Snapshot   `json:"snapshot,omitempty"`
	Planned  []command.Command `json:"planned,omitempty"`
	Executed int               `json:"executed"`
}

// AuditEntry is one attempted command.
type AuditEntry struct {
	RunID   string          `json:"run_id"`
	Seq     uint64          `json:"seq"`
	Tick    uint64          `json:"tick"`
	Policy  string          `json:"policy"`
	Command command.Command `json:"command"`
	OK      bool            `json:"ok"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Failed reports whether the tick aborted.
func (e TickLogEntry) Failed() bool { return e.Error != "" }

// Commands returns every planned command of the tick in issue order.
func (e TickLogEntry) Commands() []command.Command {
	var out []command.Command
	for _, s := range e.Steps {
		out = append(out, s.Planned...)
	}
	return out
}
