package api

import (
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/service"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Records       *service.RecordService
	Duplicates    *service.DuplicateService
	CustomFields  *service.CustomFieldService
	SavedSearches *service.SavedSearchService
}

// Backends exposes the storage layers to health checks. Nil members are
// reported as not configured.
type Backends struct {
	Records *sqlite.Store
	KV      *store.Store
	Index   *search.CandidateIndex
}
