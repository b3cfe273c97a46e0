package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"tycoon.ai/internal/agent/tick"
)

// segmentWriter appends JSON lines to zstd-compressed segments. A segment holds one hour
// of one run: <prefix>-<yyyy-mm-dd-hh>-<run>.jsonl.zst. Two bots sharing a data dir, or a
// restarted bot, never interleave lines in the same file.
type segmentWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	key string
	f   *os.File
	enc *zstd.Encoder
	buf *bufio.Writer
}

func newSegmentWriter(dir, prefix string) *segmentWriter {
	return &segmentWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *segmentWriter) write(run string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if key := segmentKey(w.now(), run); key != w.key {
		if err := w.openLocked(key); err != nil {
			return err
		}
	}
	if _, err := w.buf.Write(append(b, '\n')); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *segmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// openLocked switches to the segment for key. A segment seen before is reopened for
// append; zstd readers accept the concatenated frames.
func (w *segmentWriter) openLocked(key string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, key))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.key = f, enc, key
	w.buf = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *segmentWriter) closeLocked() error {
	var err error
	if w.buf != nil {
		err = w.buf.Flush()
		w.buf = nil
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.key = ""
	return err
}

func segmentKey(t time.Time, run string) string {
	key := t.UTC().Format("2006-01-02-15")
	if run = shortRun(run); run != "" {
		key += "-" + run
	}
	return key
}

// shortRun keeps the first 8 alphanumeric characters of a run id.
func shortRun(run string) string {
	var b strings.Builder
	for _, r := range run {
		if b.Len() == 8 {
			break
		}
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func TicksDir(dataDir string) string { return filepath.Join(dataDir, "ticks") }
func AuditDir(dataDir string) string { return filepath.Join(dataDir, "audit") }

// TickLogger writes one line per tick into the segment of the entry's run.
type TickLogger struct{ w *segmentWriter }

func NewTickLogger(dataDir string) *TickLogger {
	return &TickLogger{w: newSegmentWriter(TicksDir(dataDir), "ticks")}
}

func (l *TickLogger) WriteTick(e tick.TickLogEntry) error { return l.w.write(e.RunID, e) }
func (l *TickLogger) Close() error                        { return l.w.Close() }

// AuditLogger writes one line per attempted command.
type AuditLogger struct{ w *segmentWriter }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{w: newSegmentWriter(AuditDir(dataDir), "audit")}
}

func (l *AuditLogger) WriteAudit(e tick.AuditEntry) error { return l.w.write(e.RunID, e) }
func (l *AuditLogger) Close() error                       { return l.w.Close() }
