package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// Record summarizes one finalized session: what was captured and how
// delivery went. One record is written per session, so a crash can
// lose at most the in-flight session, matching the durability
// promise of the rest of the agent (none).
type Record struct {
	SessionID       string `parquet:"session_id"`
	Frames          int32  `parquet:"frames"`
	StartedAt       int64  `parquet:"started_at"` // unix seconds
	FinishedAt      int64  `parquet:"finished_at"`
	ArchiveFailures int32  `parquet:"archive_failures"`
	Outcome         string `parquet:"outcome"` // "delivered" or the failure kind
	ReportChars     int32  `parquet:"report_chars"`
	Chunks          int32  `parquet:"chunks"`
}

// Ledger writes one parquet file per finalized session under
// <dir>/sessions, for offline inspection of delivery history.
type Ledger struct {
	dir string
}

// New creates the ledger folder if needed.
func New(storageDir string) (*Ledger, error) {
	dir := filepath.Join(storageDir, "sessions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger folder: %w", err)
	}
	return &Ledger{dir: dir}, nil
}

// Append writes the session record. Best-effort like storage: a
// failed write is logged by the caller, never fatal.
func (l *Ledger) Append(rec Record) error {
	path := filepath.Join(l.dir, fmt.Sprintf("%s.parquet", rec.SessionID))

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create session record: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Record](file)
	if _, err := writer.Write([]Record{rec}); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize session record: %w", err)
	}
	return nil
}

// Load reads back the record for a session id. Used by tests and ad
// hoc inspection tooling.
func (l *Ledger) Load(sessionID string) (Record, error) {
	path := filepath.Join(l.dir, fmt.Sprintf("%s.parquet", sessionID))

	file, err := os.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to open session record: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Record{}, fmt.Errorf("failed to stat session record: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return Record{}, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	rows := make([]Record, 1)
	n, _ := reader.Read(rows)
	if n != 1 {
		return Record{}, fmt.Errorf("expected 1 record in %s, read %d", path, n)
	}
	return rows[0], nil
}
