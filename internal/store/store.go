// Package store persists saved searches in Badger and holds the storage
// error sentinels shared with the SQLite record store.
package store

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/contactlyapp/contactly-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities
	SavedSearches *Entity[domain.SavedSearch]
}

// Options configures how the Badger database is opened.
type Options struct {
	// InMemory keeps everything in RAM. Path is ignored.
	InMemory bool
}

// New opens (or creates) the Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	return Open(path, logger, Options{})
}

// Open opens the Badger database with explicit options.
func Open(path string, logger *slog.Logger, o Options) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Badger's own logging is too chatty
	opts.SyncWrites = !o.InMemory
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		db:     db,
		logger: logger,
	}
	s.initSavedSearches()

	logger.Info("Badger database opened", "path", path, "in_memory", o.InMemory)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger db: %w", err)
	}
	s.logger.Info("Badger database closed")
	return nil
}

// Shutdown implements do.ShutdownerWithError.
func (s *Store) Shutdown() error {
	return s.Close()
}

// Ping reports whether the database is open and readable.
func (s *Store) Ping() error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger db is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}
