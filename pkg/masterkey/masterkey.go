// Package masterkey loads or generates the single symmetric key that
// pkg/cryptwrap derives its MAC and encryption subkeys from.
package masterkey

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// Size is the width, in bytes, of a master key.
const Size = 32

const fileName = "master.key"

// MasterKey holds the raw key material loaded from, or generated into, a
// data directory.
type MasterKey struct {
	key [Size]byte
}

// Load returns the master key stored under dataDir, generating and
// persisting a fresh one on first run.
func Load(dataDir string) (*MasterKey, error) {
	path := filepath.Join(dataDir, fileName)
	return loadOrCreate(path)
}

// Bytes returns the raw key material.
func (m *MasterKey) Bytes() []byte {
	return m.key[:]
}

func loadOrCreate(path string) (*MasterKey, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return loadFromFile(path)

	case os.IsNotExist(err):
		mk, genErr := generate()
		if genErr != nil {
			return nil, fmt.Errorf("masterkey: generate: %w", genErr)
		}
		if saveErr := mk.saveToFile(path); saveErr != nil {
			return nil, fmt.Errorf("masterkey: save key file %q: %w", path, saveErr)
		}
		return mk, nil

	default:
		return nil, fmt.Errorf("masterkey: stat key file %q: %w", path, err)
	}
}

func loadFromFile(path string) (*MasterKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("masterkey: read key file %q: %w", path, err)
	}
	if len(b) != Size {
		return nil, fmt.Errorf("masterkey: key file %q has %d bytes, want %d", path, len(b), Size)
	}
	mk := &MasterKey{}
	copy(mk.key[:], b)
	return mk, nil
}

func generate() (*MasterKey, error) {
	mk := &MasterKey{}
	if _, err := rand.Read(mk.key[:]); err != nil {
		return nil, fmt.Errorf("reading random key material: %w", err)
	}
	return mk, nil
}

func (m *MasterKey) saveToFile(path string) error {
	return os.WriteFile(path, m.key[:], 0o600)
}
