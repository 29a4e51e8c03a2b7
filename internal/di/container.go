// Package di wires the Contactly server's dependencies with samber/do.
package di

import (
	"github.com/samber/do/v2"

	"github.com/contactlyapp/contactly-server/internal/di/providers"
)

// NewContainer registers every provider. Services are built lazily on
// first invocation.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage
	do.Provide(injector, providers.ProvideRecordStore)
	do.Provide(injector, providers.ProvideKVStore)
	do.Provide(injector, providers.ProvideCandidateIndex)

	// Services
	do.Provide(injector, providers.ProvideRecordService)
	do.Provide(injector, providers.ProvideDuplicateService)
	do.Provide(injector, providers.ProvideCustomFieldService)
	do.Provide(injector, providers.ProvideSavedSearchService)

	// HTTP
	do.Provide(injector, providers.ProvideScanLimiter)
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap starts the HTTP server, which pulls in the rest of the graph,
// and kicks off a candidate reindex when the index is empty.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	providers.TriggerCandidateReindexIfNeeded(injector)
	return nil
}
