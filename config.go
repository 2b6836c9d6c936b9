package seccs

import (
	"log/slog"

	"github.com/i5heu/sec-cs/pkg/cryptwrap"
	"github.com/i5heu/sec-cs/pkg/logging"
)

// Config is frozen once passed to New; nothing in the core reads it
// again afterward. It mirrors the teacher's own top-level Config struct:
// a flat set of fields with a default-logger fallback rather than a
// builder or functional-options API.
type Config struct {
	// ChunkSize is the target average chunk size, in bytes, used both
	// for leaf-level splitting and for every internal ML-CDC level. It
	// must be at least tree.MinChunkSize.
	ChunkSize int

	// Wrapper, if set, is used as-is. If nil, New derives a default
	// HMACAESCTR wrapper from MasterKey.
	Wrapper cryptwrap.Wrapper

	// MasterKey seeds the default wrapper when Wrapper is nil. Ignored
	// otherwise.
	MasterKey []byte

	// Logger overrides the package-level default logger. If nil, New
	// falls back to logging.Logger.
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.Logger
}
