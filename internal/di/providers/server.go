package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/contactlyapp/contactly-server/internal/api"
	"github.com/contactlyapp/contactly-server/internal/config"
	"github.com/contactlyapp/contactly-server/internal/logger"
	"github.com/contactlyapp/contactly-server/internal/ratelimit"
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/service"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

// HTTPServerHandle wraps http.Server for graceful shutdown.
type HTTPServerHandle struct {
	*http.Server
	logger *logger.Logger
}

// Shutdown implements do.ShutdownerWithError.
func (h *HTTPServerHandle) Shutdown() error {
	h.logger.Info("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideScanLimiter provides the per-client limiter for duplicate endpoints.
func ProvideScanLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.PerInterval(cfg.Server.ScanRateLimit, time.Minute, cfg.Server.ScanBurst), nil
}

// ProvideAPIServer provides the HTTP API handler.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Records:       do.MustInvoke[*service.RecordService](i),
		Duplicates:    do.MustInvoke[*service.DuplicateService](i),
		CustomFields:  do.MustInvoke[*service.CustomFieldService](i),
		SavedSearches: do.MustInvoke[*service.SavedSearchService](i),
	}
	backends := api.Backends{
		Records: do.MustInvoke[*sqlite.Store](i),
		KV:      do.MustInvoke[*store.Store](i),
		Index:   do.MustInvoke[*search.CandidateIndex](i),
	}

	return api.NewServer(services, backends, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ScanLimiter:    do.MustInvoke[*ratelimit.KeyedRateLimiter](i),
	}, log.Logger), nil
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*api.Server](i)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: httpServer, logger: log}, nil
}
