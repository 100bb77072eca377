package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/screenagent/screenagent/internal/capture"
)

func TestNewCreatesFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")

	if _, err := New(dir); err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Storage folder was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Storage path is not a directory")
	}
}

func TestSaveImage(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	payload := capture.Payload{Data: []byte("png-bytes"), Sequence: 2}
	path, err := store.SaveImage("1700000000", payload)
	if err != nil {
		t.Fatalf("SaveImage returned error: %v", err)
	}

	if filepath.Base(path) != "screenshot_1700000000_2.png" {
		t.Errorf("Unexpected file name %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved frame: %v", err)
	}
	if !bytes.Equal(data, payload.Data) {
		t.Error("Saved bytes do not match payload")
	}
}
