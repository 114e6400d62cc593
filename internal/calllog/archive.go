// Package calllog keeps the legacy flat-file trail of completed calls:
// one JSON line per call in all_calls.jsonl plus a per-call snapshot file.
// It is write-only; the dashboard API reads from the record store. Kept for
// operators who tail the data directory; slated for removal once nothing
// consumes the files.
package calllog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"intake-platform/internal/intake"
)

const masterLogName = "all_calls.jsonl"

type Archive struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

// New ensures the data directory exists and returns an archive writing into it.
func New(dir string, log *slog.Logger) (*Archive, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Archive{dir: dir, log: log, now: time.Now}, nil
}

// Append writes a per-call snapshot and appends one line to the master log.
// Partial failure still counts as failure but never rolls anything back.
func (a *Archive) Append(rec intake.CallRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode call record: %w", err)
	}

	snapshot := filepath.Join(a.dir, fmt.Sprintf("call_%s_%s.json", rec.CallID, a.now().Format("20060102_150405")))
	if err := os.WriteFile(snapshot, buf, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(a.dir, masterLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open master log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(buf, '\n')); err != nil {
		return fmt.Errorf("append master log: %w", err)
	}

	a.log.Debug("archived call", "call_id", rec.CallID, "file", snapshot)
	return nil
}
