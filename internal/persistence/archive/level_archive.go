// Package archive keeps a permanent copy of the first snapshot taken at each person level.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"tycoon.ai/internal/sim/state"
)

type LevelArchiveMeta struct {
	Level     int    `json:"level"`
	Tick      uint64 `json:"tick"`
	Balance   int64  `json:"balance"`
	Score     int64  `json:"score"`
	Sites     int    `json:"sites"`
	Snapshot  string `json:"snapshot"`
	Digest    string `json:"digest"`
	CreatedAt string `json:"created_at"`
}

func LevelDir(dataDir string, level int) string {
	return filepath.Join(dataDir, "archives", fmt.Sprintf("level_%03d", level))
}

// ArchiveLevelSnapshot copies snapshotPath into `dataDir/archives/level_<NNN>/` unless the
// person's current level already has an archive. It returns archived=true when it copied.
func ArchiveLevelSnapshot(dataDir, snapshotPath string, snap *state.Snapshot) (archivedPath string, archived bool, err error) {
	if snap == nil || snap.Person.Level <= 0 {
		return "", false, nil
	}
	archiveDir := LevelDir(dataDir, snap.Person.Level)
	metaPath := filepath.Join(archiveDir, "meta.json")
	if _, err := os.Stat(metaPath); err == nil {
		return "", false, nil
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := LevelArchiveMeta{
		Level:     snap.Person.Level,
		Tick:      snap.Tick,
		Balance:   snap.Person.Balance,
		Score:     snap.Person.Score,
		Sites:     len(snap.Sites),
		Snapshot:  filepath.Base(dst),
		Digest:    snap.Digest(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	// meta.json is written last; its presence marks the level as archived.
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
