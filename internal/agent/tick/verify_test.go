package tick

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
	"tycoon.ai/internal/sim/tuning"
)

func busyState() *state.Snapshot {
	return &state.Snapshot{
		Person: state.Person{Balance: 2_000_000, Level: 1, NextScore: 100},
		Sites: []state.Site{
			{Domain: "a.com", HostingID: 2, Traffic: 40,
				Ads:  []state.Ad{{ID: "x1"}, {ID: "x2"}, {ID: "x3"}},
				Work: map[state.Specialty]int{state.SpecialtyDesign: 2}},
			{Domain: "b.com", HostingID: 4, Traffic: 180,
				Contents: []state.Content{{ID: "c1", TypeID: "article"}}},
		},
		Workers: []state.Worker{
			{Name: "mia", EnergyValue: 100, Specialty: state.SpecialtyMarketing},
			{Name: "dan", EnergyValue: 100, Specialty: state.SpecialtyDesign},
			{Name: "zed", EnergyValue: 2, Specialty: state.SpecialtyDesign},
		},
	}
}

// roundTrip runs entries through JSON, as the tick log does.
func roundTrip(t *testing.T, e TickLogEntry) TickLogEntry {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out TickLogEntry
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestVerify_RecordedTicksReplan(t *testing.T) {
	for _, mode := range []string{tuning.ModeRefresh, tuning.ModeFrozen} {
		t.Run(mode, func(t *testing.T) {
			d := newDomain(t, busyState())
			ml := &memLogger{}
			cfg := tuning.Defaults()
			cfg.Tick.Mode = mode
			cfg.Assignment.Reserve = true
			e, err := New(Config{Domain: d, Tuning: cfg, TickLogger: ml})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			for i := 0; i < 8; i++ {
				_, _ = e.Tick(context.Background())
				d.st.Advance()
			}
			if len(ml.ticks) != 8 {
				t.Fatalf("ticks logged: %d", len(ml.ticks))
			}
			for _, entry := range ml.ticks {
				if err := Verify(roundTrip(t, entry)); err != nil {
					t.Fatalf("Verify: %v", err)
				}
			}
		})
	}
}

func TestVerify_DetectsDivergence(t *testing.T) {
	d := newDomain(t, busyState())
	ml := &memLogger{}
	e, err := New(Config{Domain: d, Tuning: tuning.Defaults(), TickLogger: ml})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	planned := roundTrip(t, ml.ticks[0])
	planned.Steps[0].Planned = append(planned.Steps[0].Planned, command.NormalizeSite("a.com"))
	if err := Verify(planned); err == nil || !strings.Contains(err.Error(), "re-planned") {
		t.Fatalf("expected plan divergence, got %v", err)
	}

	edited := roundTrip(t, ml.ticks[0])
	edited.Steps[0].Snapshot.Person.Balance++
	if err := Verify(edited); err == nil || !strings.Contains(err.Error(), "digest") {
		t.Fatalf("expected digest mismatch, got %v", err)
	}

	reordered := roundTrip(t, ml.ticks[0])
	reordered.Steps[0].Policy, reordered.Steps[1].Policy = reordered.Steps[1].Policy, reordered.Steps[0].Policy
	if err := Verify(reordered); err == nil {
		t.Fatalf("expected policy order mismatch")
	}
}

type failingLogger struct{ err error }

func (f failingLogger) WriteTick(TickLogEntry) error { return f.err }
func (f failingLogger) WriteAudit(AuditEntry) error  { return f.err }

func TestLoggers_FanOut(t *testing.T) {
	a, b := &memLogger{}, &memLogger{}
	boom := errors.New("disk full")

	err := TickLoggers{a, failingLogger{boom}, nil, b}.WriteTick(TickLogEntry{Seq: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(a.ticks) != 1 || len(b.ticks) != 1 {
		t.Fatalf("every logger must receive the entry: a=%d b=%d", len(a.ticks), len(b.ticks))
	}

	if err := (AuditLoggers{a, b}).WriteAudit(AuditEntry{Seq: 1, OK: true}); err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	if len(a.audits) != 1 || len(b.audits) != 1 {
		t.Fatalf("audits: a=%d b=%d", len(a.audits), len(b.audits))
	}
}
