package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/screenagent/screenagent/internal/capture"
)

// Store keeps a local copy of every captured frame in the configured
// folder. Saving is best-effort: a write failure is a notice, never a
// reason to abort delivery.
type Store struct {
	dir string
}

// New creates the storage folder if needed and returns a store over
// it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage folder: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage folder path.
func (s *Store) Dir() string { return s.dir }

// SaveImage writes one encoded frame as
// screenshot_<session>_<sequence>.png and returns the file path.
func (s *Store) SaveImage(sessionID string, payload capture.Payload) (string, error) {
	name := fmt.Sprintf("screenshot_%s_%d.png", sessionID, payload.Sequence)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, payload.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}
