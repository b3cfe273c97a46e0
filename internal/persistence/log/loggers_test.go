package log

import (
	"path/filepath"
	"testing"
	"time"

	"tycoon.ai/internal/agent/tick"
	"tycoon.ai/internal/sim/command"
)

func TestTickLogger_RoundTripAcrossHours(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for seq := uint64(1); seq <= 3; seq++ {
		if seq == 3 {
			clock = clock.Add(2 * time.Minute)
		}
		e := tick.TickLogEntry{RunID: "r", Seq: seq, Mode: "refresh", Steps: []tick.StepRecord{
			{Policy: "hosting", Planned: []command.Command{command.ChangeHosting("a.com", 4)}, Executed: 1},
		}}
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListFiles(TicksDir(dir), "ticks")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "ticks-2026-03-01-10-r.jsonl.zst" {
		t.Fatalf("files=%v", files)
	}

	var seqs []uint64
	err = ReadTicks(dir, func(e tick.TickLogEntry) error {
		seqs = append(seqs, e.Seq)
		if len(e.Steps) != 1 || e.Steps[0].Planned[0].Kind != command.KindChangeHosting {
			t.Fatalf("entry %d lost its steps: %+v", e.Seq, e.Steps)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Fatalf("seqs=%v", seqs)
	}
}

func TestAuditLogger_Appends(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		l := NewAuditLogger(dir)
		l.w.now = func() time.Time { return at }
		if err := l.WriteAudit(tick.AuditEntry{RunID: "run-a", Seq: uint64(i + 1), Policy: "ads", Command: command.EnableAd("a", "x"), OK: true}); err != nil {
			t.Fatalf("WriteAudit: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	files, err := ListFiles(AuditDir(dir), "audit")
	if err != nil || len(files) != 1 || filepath.Base(files[0]) != "audit-2026-03-01-12-runa.jsonl.zst" {
		t.Fatalf("files=%v err=%v", files, err)
	}
	n := 0
	err = ReadLines(files[0], func([]byte) error { n++; return nil })
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if n != 2 {
		t.Fatalf("lines=%d want 2", n)
	}
}

// Interleaved runs in the same hour land in separate segments; switching back to a run
// appends to its existing segment.
func TestTickLogger_SegmentsPerRun(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	l.w.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	runs := []string{"4f1c2b7e-aaaa", "9d0e11aa-bbbb", "4f1c2b7e-aaaa", "../../etc"}
	for i, run := range runs {
		if err := l.WriteTick(tick.TickLogEntry{RunID: run, Seq: uint64(i + 1), Mode: "refresh"}); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListFiles(TicksDir(dir), "ticks")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	want := []string{
		"ticks-2026-03-01-09-4f1c2b7e.jsonl.zst",
		"ticks-2026-03-01-09-9d0e11aa.jsonl.zst",
		"ticks-2026-03-01-09-etc.jsonl.zst",
	}
	if len(names) != len(want) {
		t.Fatalf("files=%v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("files=%v want %v", names, want)
		}
	}

	perRun := map[string][]uint64{}
	err = ReadTicks(dir, func(e tick.TickLogEntry) error {
		perRun[e.RunID] = append(perRun[e.RunID], e.Seq)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if got := perRun["4f1c2b7e-aaaa"]; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("run a seqs=%v", got)
	}
	if len(perRun["9d0e11aa-bbbb"]) != 1 || len(perRun["../../etc"]) != 1 {
		t.Fatalf("per run=%v", perRun)
	}
}
