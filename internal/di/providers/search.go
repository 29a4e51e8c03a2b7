package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/contactlyapp/contactly-server/internal/config"
	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/logger"
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/service"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

// ProvideCandidateIndex provides the Bleve duplicate candidate index.
func ProvideCandidateIndex(i do.Injector) (*search.CandidateIndex, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewCandidateIndex(search.Options{
		DataPath: cfg.Data.SearchIndexPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Candidate index initialized", "documents", docCount)

	return index, nil
}

// TriggerCandidateReindexIfNeeded rebuilds the candidate index in the
// background when it is empty but records exist, e.g. after the index
// directory was deleted or its mapping version changed.
func TriggerCandidateReindexIfNeeded(i do.Injector) {
	index := do.MustInvoke[*search.CandidateIndex](i)
	records := do.MustInvoke[*sqlite.Store](i)
	duplicates := do.MustInvoke[*service.DuplicateService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := index.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	total := 0
	for _, et := range domain.EntityTypes {
		n, err := records.CountRecords(ctx, et)
		if err != nil {
			log.Warn("Failed to count records for reindex check", "entity_type", et, "error", err)
			return
		}
		total += n
	}
	if total == 0 {
		return
	}

	log.Info("Candidate index is empty but records exist, triggering reindex", "record_count", total)

	go func() {
		n, err := duplicates.ReindexAll(context.Background())
		if err != nil {
			log.Error("Candidate reindex failed", "error", err)
			return
		}
		log.Info("Candidate reindex completed", "documents", n)
	}()
}
