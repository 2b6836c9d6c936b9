package masterkey

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_GeneratesOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	mk, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(mk.Bytes()) != Size {
		t.Fatalf("got key of length %d, want %d", len(mk.Bytes()), Size)
	}

	if _, err := os.Stat(filepath.Join(dir, fileName)); err != nil {
		t.Fatalf("expected key file to be persisted: %v", err)
	}
}

func TestLoad_ReloadsSameKey(t *testing.T) {
	dir := t.TempDir()

	first, err := Load(dir)
	if err != nil {
		t.Fatalf("Load (first): %v", err)
	}

	second, err := Load(dir)
	if err != nil {
		t.Fatalf("Load (second): %v", err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatal("expected the same key to be reloaded across runs")
	}
}

func TestLoad_RejectsWrongSizedKeyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("too short"), 0o600); err != nil {
		t.Fatalf("seeding bad key file: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected Load to reject a malformed key file")
	}
}
