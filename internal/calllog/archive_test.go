package calllog

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"intake-platform/internal/intake"
)

func TestAppend(t *testing.T) {
	dir := t.TempDir()
	a, err := New(filepath.Join(dir, "conversation_data"), slog.Default())
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	a.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	rec := intake.CallRecord{CallID: "call-1", AssistantID: "asst-1"}
	if err := a.Append(rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	rec.CallID = "call-2"
	if err := a.Append(rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Per-call snapshot exists and round-trips.
	snap := filepath.Join(dir, "conversation_data", "call_call-1_20260830_120000.json")
	buf, err := os.ReadFile(snap)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var got intake.CallRecord
	if err := json.Unmarshal(buf, &got); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if got.CallID != "call-1" {
		t.Fatalf("snapshot call id: %q", got.CallID)
	}

	// Master log holds one line per call, in order.
	f, err := os.Open(filepath.Join(dir, "conversation_data", masterLogName))
	if err != nil {
		t.Fatalf("open master log: %v", err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line intake.CallRecord
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		ids = append(ids, line.CallID)
	}
	if len(ids) != 2 || ids[0] != "call-1" || ids[1] != "call-2" {
		t.Fatalf("master log ids: %v", ids)
	}
}
