package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contactlyapp/contactly-server/internal/config"
	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

type testServices struct {
	records      *RecordService
	customFields *CustomFieldService
	searches     *SavedSearchService
	duplicates   *DuplicateService

	db    *sqlite.Store
	kv    *store.Store
	index *search.CandidateIndex
}

// setupTestServices wires every service against real, temporary stores.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	kv, err := store.Open("", logger, store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	index, err := search.NewCandidateIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	cfg := config.DedupeConfig{
		Thresholds:  dedupe.DefaultThresholds(),
		Workers:     2,
		MaxRecords:  100,
		ScanTimeout: 5 * time.Second,
	}

	return &testServices{
		records:      NewRecordService(db, kv, index, logger),
		customFields: NewCustomFieldService(db, logger),
		searches:     NewSavedSearchService(kv, logger),
		duplicates:   NewDuplicateService(db, kv, index, cfg, logger),
		db:           db,
		kv:           kv,
		index:        index,
	}
}

// mustCreate creates a record and returns its generated ID.
func (ts *testServices) mustCreate(t *testing.T, et domain.EntityType, fields map[string]string) string {
	t.Helper()
	r, err := ts.records.CreateRecord(context.Background(), CreateRecordRequest{
		EntityType: string(et),
		Fields:     fields,
	})
	require.NoError(t, err)
	return r.ID
}
