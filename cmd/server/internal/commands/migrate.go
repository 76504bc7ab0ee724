package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/orgs/internal/storage"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := setup(globals)
	if err != nil {
		return err
	}

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer backend.Close()

	if err := backend.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Info().Str("store", cfg.StoreType).Msg("Migrations applied")

	return nil
}
