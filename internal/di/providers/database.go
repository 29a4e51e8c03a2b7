package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/contactlyapp/contactly-server/internal/config"
	"github.com/contactlyapp/contactly-server/internal/logger"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

// ProvideRecordStore provides the SQLite store holding records, custom
// fields and merge history. The container closes it on shutdown.
func ProvideRecordStore(i do.Injector) (*sqlite.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return sqlite.Open(cfg.Data.DatabasePath(), log.Logger)
}

// ProvideKVStore provides the Badger store holding saved searches.
func ProvideKVStore(i do.Injector) (*store.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return store.New(cfg.Data.KVPath(), log.Logger)
}
