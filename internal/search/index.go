package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/contactlyapp/contactly-server/internal/domain"
)

// CandidateIndex wraps a Bleve index of candidate documents.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type CandidateIndex struct {
	index  bleve.Index
	path   string // empty for in-memory indexes
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the candidate index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger // Logger for operations (uses slog.Default if nil)
}

// mappingVersion is incremented whenever the index mapping or the key
// normalization changes, which triggers a rebuild on startup.
const mappingVersion = "1"

// NewCandidateIndex creates or opens a candidate index.
// An existing index with a missing or outdated version file, or one that
// fails to open, is removed and recreated empty.
func NewCandidateIndex(opts Options) (*CandidateIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &CandidateIndex{index: index, logger: logger}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	indexPath := filepath.Join(opts.DataPath, "candidates.bleve")
	versionPath := filepath.Join(opts.DataPath, "candidates.version")

	var index bleve.Index
	needsRebuild := false

	if _, statErr := os.Stat(indexPath); statErr == nil {
		existingVersion, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("candidate index has no version file, will rebuild", "new_version", mappingVersion)
			needsRebuild = true
		case string(existingVersion) != mappingVersion:
			logger.Info("candidate index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		default:
			var err error
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate", "path", indexPath, "error", err)
				needsRebuild = true
			}
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write candidate index version file", "error", err)
		}
		logger.Info("created new candidate index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing candidate index", "path", indexPath)
	}

	return &CandidateIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (c *CandidateIndex) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Close()
}

// Shutdown implements do.ShutdownerWithError.
func (c *CandidateIndex) Shutdown() error {
	return c.Close()
}

// Index adds or replaces a record. Inactive records and records without any
// key are removed instead.
func (c *CandidateIndex) Index(_ context.Context, r *domain.Record) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc := NewCandidateDocument(r)
	if !r.IsActive() || doc.IsEmpty() {
		return c.index.Delete(r.ID)
	}
	return c.index.Index(doc.ID, doc.ToMap())
}

// IndexRecords indexes many records in batches of 500.
func (c *CandidateIndex) IndexRecords(ctx context.Context, records []domain.Record) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(records); i += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+batchSize, len(records))

		batch := c.index.NewBatch()
		for j := i; j < end; j++ {
			r := &records[j]
			doc := NewCandidateDocument(r)
			if !r.IsActive() || doc.IsEmpty() {
				batch.Delete(r.ID)
				continue
			}
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := c.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Delete removes records from the index. Unknown IDs are ignored.
func (c *CandidateIndex) Delete(_ context.Context, ids ...string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	batch := c.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return c.index.Batch(batch)
}

// DocumentCount returns the number of indexed records.
func (c *CandidateIndex) DocumentCount() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.DocCount()
}

// Rebuild drops every document and indexes records from scratch.
//
// IMPORTANT: This acquires an exclusive lock and blocks all other operations.
func (c *CandidateIndex) Rebuild(ctx context.Context, records []domain.Record) error {
	c.mu.Lock()
	if err := c.index.Close(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if c.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(c.path); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(c.path, buildIndexMapping())
	}
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("create index: %w", err)
	}
	c.index = index
	c.mu.Unlock()

	c.logger.Info("rebuilt candidate index", "path", c.path, "records", len(records))
	return c.IndexRecords(ctx, records)
}
