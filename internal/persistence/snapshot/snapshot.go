package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"tycoon.ai/internal/protocol"
	"tycoon.ai/internal/sim/state"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
	Digest  string `json:"digest"`
}

type SnapshotV1 struct {
	Header Header         `json:"header"`
	State  state.Snapshot `json:"state"`
}

// WriteSnapshot stores s at path. A .json path gets plain indented JSON (hand-editable
// seed files); anything else gets the compressed format: a JSON header line followed by
// the gob-encoded snapshot, all inside one zstd stream.
func WriteSnapshot(path string, s *state.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if strings.HasSuffix(path, ".json") {
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, append(b, '\n'), 0o644)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	snap := SnapshotV1{
		Header: Header{Version: Version, Tick: s.Tick, Digest: s.Digest()},
		State:  *s,
	}
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot. JSON files are checked against
// the state schema; compressed files against their header digest.
func ReadSnapshot(path string) (*state.Snapshot, error) {
	if strings.HasSuffix(path, ".json") {
		return readJSON(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var snap SnapshotV1
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	s := &snap.State
	if got := s.Digest(); got != snap.Header.Digest {
		return nil, fmt.Errorf("digest mismatch: header=%s state=%s", snap.Header.Digest, got)
	}
	return s, nil
}

func readJSON(path string) (*state.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := protocol.ValidateState(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	var s state.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// ReadHeader reads only the header line of a compressed snapshot.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	err = json.Unmarshal(line, &h)
	return h, err
}

func SnapshotsDir(dataDir string) string { return filepath.Join(dataDir, "snapshots") }

func PathFor(dataDir string, tick uint64) string {
	return filepath.Join(SnapshotsDir(dataDir), fmt.Sprintf("%d.snap.zst", tick))
}

// LatestSnapshot returns the path of the highest-tick snapshot under dataDir, or "" when
// there is none.
func LatestSnapshot(dataDir string) (string, error) {
	ents, err := os.ReadDir(SnapshotsDir(dataDir))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var ticks []uint64
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		ticks = append(ticks, n)
	}
	if len(ticks) == 0 {
		return "", nil
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return PathFor(dataDir, ticks[len(ticks)-1]), nil
}
