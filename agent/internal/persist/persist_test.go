package persist

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obsidianstack/usagestats/pkg/types"
)

func record(seq, success, failed int64, errMsg string) types.WriteRecord {
	return types.WriteRecord{
		UsageStats: types.Report{
			Metadata:     types.Metadata{SessionID: "sess-1"},
			TotalSuccess: success,
			TotalFailed:  failed,
			SeqNumber:    seq,
		},
		Success: errMsg == "",
		Error:   errMsg,
	}
}

func readRecord(t *testing.T, dir string) types.WriteRecord {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, UsageFile))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var rec types.WriteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	return rec
}

func TestWrite_CreatesArtifact(t *testing.T) {
	dir := t.TempDir()
	if err := New(false).Write(context.Background(), dir, record(0, 0, 0, "timeout")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rec := readRecord(t, dir)
	if rec.Success {
		t.Error("Success = true, want false")
	}
	if rec.Error != "timeout" {
		t.Errorf("Error = %q, want timeout", rec.Error)
	}
	if rec.UsageStats.SessionID != "sess-1" {
		t.Errorf("SessionID = %q", rec.UsageStats.SessionID)
	}
}

func TestWrite_ReplacesPriorContent(t *testing.T) {
	dir := t.TempDir()
	w := New(false)
	ctx := context.Background()

	if err := w.Write(ctx, dir, record(0, 0, 0, "timeout")); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}
	if err := w.Write(ctx, dir, record(1, 0, 1, "")); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}

	rec := readRecord(t, dir)
	if rec.UsageStats.SeqNumber != 1 || !rec.Success || rec.Error != "" {
		t.Errorf("artifact not replaced: %+v", rec)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only %s (temp files leaked?)", len(entries), UsageFile)
	}
}

func TestWrite_CreatesMissingSessionDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session_latest", "logs")
	if err := New(false).Write(context.Background(), dir, record(0, 0, 0, "")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, UsageFile)); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestWrite_UnwritableDir(t *testing.T) {
	// A regular file where the directory should be.
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := New(false).Write(context.Background(), blocker, record(0, 0, 0, "")); err == nil {
		t.Fatal("expected error writing under a file, got nil")
	}
}

func TestWrite_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	if err := New(false).Write(ctx, dir, record(0, 0, 0, "")); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
	if _, err := os.Stat(filepath.Join(dir, UsageFile)); !os.IsNotExist(err) {
		t.Error("artifact written despite cancelled context")
	}
}

func TestWrite_Textfile(t *testing.T) {
	dir := t.TempDir()
	// Report built before the third cycle's outcome (2 ok, 0 failed), which failed.
	if err := New(true).Write(context.Background(), dir, record(2, 2, 0, "timeout")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, TextfileFile))
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`usage_stats_reports_total{result="success"} 2`,
		`usage_stats_reports_total{result="failure"} 1`,
		`usage_stats_sequence_number 3`,
		`usage_stats_last_report_success 0`,
		`# TYPE usage_stats_reports_total counter`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}
