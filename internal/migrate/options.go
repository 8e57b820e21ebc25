package migrate

import (
	"context"
	"log/slog"
	"time"

	"mediasort/internal/mediatype"
)

// Options describes one migration pass.
type Options struct {
	Source      string
	Destination string
	DryRun      bool
	// Workers above one enables hashing ahead of the decision loop.
	Workers int
	// UseMetadata consults embedded capture dates when the filename has none.
	UseMetadata bool
	// MtimeFallback classifies by modification time as a last resort.
	MtimeFallback bool
	// Restart discards any checkpoint for the pair before starting.
	Restart bool
	// LockDir holds per-destination lock files. Empty disables locking.
	LockDir        string
	HashAlgorithm  string
	HashBufferSize int
	Media          mediatype.Set
}

// MetadataReader extracts a capture date from file metadata.
type MetadataReader interface {
	Date(ctx context.Context, path string) (time.Time, error)
}

// Option customises a Migrator.
type Option func(*Migrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetadata installs the metadata date reader.
func WithMetadata(reader MetadataReader) Option {
	return func(m *Migrator) {
		m.metadata = reader
	}
}

// WithObserver installs a progress observer.
func WithObserver(observer Observer) Option {
	return func(m *Migrator) {
		if observer != nil {
			m.observer = observer
		}
	}
}
