package repository

import (
	"github.com/rongwang/kasciraya-server/internal/config"
)

// Open returns the store selected by the configured driver. SQL stores are
// migrated before they are returned.
func Open(cfg *config.Config) (Repository, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return NewMemoryRepository(), nil
	}

	db, err := config.SetupDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLRepository(db), nil
}
