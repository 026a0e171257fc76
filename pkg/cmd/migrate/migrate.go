package migrate

import (
	"context"
	"fmt"
	"log"

	"github.com/alorbach/sunostyle/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string
}

// Run creates or upgrades the history database.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.DBType == "" {
		return fmt.Errorf("migrate: db type is required")
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("migrate: couldn't create: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't start: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't migrate: %w", err)
	}
	v, err := store.Version(ctx)
	if err != nil {
		return fmt.Errorf("migrate: couldn't get version: %w", err)
	}
	log.Printf("migrate: database at version %d\n", v)
	return nil
}
