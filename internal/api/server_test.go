package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactlyapp/contactly-server/internal/config"
	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/ratelimit"
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/service"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// testEnvelope mirrors APIEnvelope and APIErrorEnvelope for decoding.
type testEnvelope[T any] struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	require.Equal(t, EnvelopeVersion, env.Version)
	return env
}

// setupTestServer creates a server backed by temporary stores.
// A nil limiter disables rate limiting.
func setupTestServer(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testServer {
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

	dedupeCfg := config.DedupeConfig{
		Thresholds:  dedupe.DefaultThresholds(),
		Workers:     2,
		MaxRecords:  100,
		ScanTimeout: 5 * time.Second,
	}

	services := &Services{
		Records:       service.NewRecordService(db, kv, index, logger),
		Duplicates:    service.NewDuplicateService(db, kv, index, dedupeCfg, logger),
		CustomFields:  service.NewCustomFieldService(db, logger),
		SavedSearches: service.NewSavedSearchService(kv, logger),
	}

	s := NewServer(services, Backends{Records: db, KV: kv, Index: index}, Options{ScanLimiter: limiter}, logger)
	return &testServer{Server: s, api: humatest.Wrap(t, s.api)}
}

// createRecord posts a record and returns its ID.
func (ts *testServer) createRecord(t *testing.T, entityType string, fields map[string]string) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/records", map[string]any{
		"entity_type": entityType,
		"fields":      fields,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeEnvelope[RecordResponse](t, resp.Body.Bytes()).Data.ID
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, statusHealthy, env.Data.Components["database"].Status)
	assert.Equal(t, statusHealthy, env.Data.Components["kv"].Status)
	assert.Equal(t, statusDegraded, env.Data.Components["search"].Status)
	assert.Equal(t, statusDegraded, env.Data.Status)

	ts.createRecord(t, "Contact", map[string]string{"Email": "a@example.com"})

	env = decodeEnvelope[HealthResponse](t, ts.api.Get("/health").Body.Bytes())
	assert.Equal(t, statusHealthy, env.Data.Status)
}

func TestHealthCheck_NoBackends(t *testing.T) {
	s := NewServer(&Services{}, Backends{}, Options{}, nil)
	api := humatest.Wrap(t, s.api)

	env := decodeEnvelope[HealthResponse](t, api.Get("/health").Body.Bytes())
	assert.Equal(t, statusDegraded, env.Data.Status)
	assert.Equal(t, "database not configured", env.Data.Components["database"].Message)
}

func TestRecords_CRUD(t *testing.T) {
	ts := setupTestServer(t, nil)

	recordID := ts.createRecord(t, "Contact", map[string]string{"Name": "Jane Doe"})

	resp := ts.api.Get("/api/v1/records/" + recordID)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeEnvelope[RecordResponse](t, resp.Body.Bytes())
	assert.Equal(t, "Contact", got.Data.EntityType)
	assert.Equal(t, "Jane Doe", got.Data.Fields["Name"])

	resp = ts.api.Put("/api/v1/records/"+recordID, map[string]any{
		"fields": map[string]string{"Name": "Jane Smith"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Jane Smith", decodeEnvelope[RecordResponse](t, resp.Body.Bytes()).Data.Fields["Name"])

	resp = ts.api.Get("/api/v1/records?entity_type=Contact")
	require.Equal(t, http.StatusOK, resp.Code)
	list := decodeEnvelope[RecordListResponse](t, resp.Body.Bytes())
	assert.Equal(t, 1, list.Data.Total)

	resp = ts.api.Delete("/api/v1/records/" + recordID)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Delete("/api/v1/records/" + recordID)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRecords_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/records", map[string]any{
		"entity_type": "Deal",
		"fields":      map[string]string{"Name": "x"},
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decodeEnvelope[any](t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, "UNSUPPORTED_ENTITY_TYPE", env.Code)
	assert.NotEmpty(t, env.Error)

	resp = ts.api.Get("/api/v1/records/con-missing")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope[any](t, resp.Body.Bytes()).Code)

	resp = ts.api.Get("/api/v1/records?entity_type=Lead")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRecords_ImportAndSearch(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/records/import", map[string]any{
		"entity_type": "Company",
		"rows": []map[string]string{
			{"Name": "Acme", "Industry": "Rockets"},
			{"Name": "Globex"},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 2, decodeEnvelope[RecordListResponse](t, resp.Body.Bytes()).Data.Total)

	resp = ts.api.Post("/api/v1/records/search", map[string]any{
		"entity_type": "Company",
		"criteria": map[string]any{
			"conditions": []map[string]string{{"field": "Industry", "operator": "is_not_empty"}},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	found := decodeEnvelope[RecordListResponse](t, resp.Body.Bytes())
	require.Len(t, found.Data.Records, 1)
	assert.Equal(t, "Acme", found.Data.Records[0].Fields["Name"])
}
