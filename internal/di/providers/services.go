package providers

import (
	"github.com/samber/do/v2"

	"github.com/contactlyapp/contactly-server/internal/config"
	"github.com/contactlyapp/contactly-server/internal/logger"
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/service"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

// ProvideRecordService provides the record service.
func ProvideRecordService(i do.Injector) (*service.RecordService, error) {
	records := do.MustInvoke[*sqlite.Store](i)
	kv := do.MustInvoke[*store.Store](i)
	index := do.MustInvoke[*search.CandidateIndex](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRecordService(records, kv, index, log.Logger), nil
}

// ProvideDuplicateService provides the duplicate scan and merge service.
func ProvideDuplicateService(i do.Injector) (*service.DuplicateService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	records := do.MustInvoke[*sqlite.Store](i)
	kv := do.MustInvoke[*store.Store](i)
	index := do.MustInvoke[*search.CandidateIndex](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDuplicateService(records, kv, index, cfg.Dedupe, log.Logger), nil
}

// ProvideCustomFieldService provides the custom field service.
func ProvideCustomFieldService(i do.Injector) (*service.CustomFieldService, error) {
	records := do.MustInvoke[*sqlite.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCustomFieldService(records, log.Logger), nil
}

// ProvideSavedSearchService provides the saved search service.
func ProvideSavedSearchService(i do.Injector) (*service.SavedSearchService, error) {
	kv := do.MustInvoke[*store.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSavedSearchService(kv, log.Logger), nil
}
