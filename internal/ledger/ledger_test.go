package ledger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendAndLoadRoundTrip(t *testing.T) {
	l, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rec := Record{
		SessionID:       "1700000000",
		Frames:          3,
		StartedAt:       1700000000,
		FinishedAt:      1700000042,
		ArchiveFailures: 1,
		Outcome:         "delivered",
		ReportChars:     4500,
		Chunks:          2,
	}
	if err := l.Append(rec); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	got, err := l.Load("1700000000")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != rec {
		t.Errorf("Loaded record %+v does not match written %+v", got, rec)
	}
}

func TestNewCreatesSessionsFolder(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir); err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sessions")); err != nil {
		t.Errorf("Sessions folder was not created: %v", err)
	}
}

func TestLoadMissingSession(t *testing.T) {
	l, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := l.Load("none"); err == nil {
		t.Error("Expected error for missing session record")
	}
}
