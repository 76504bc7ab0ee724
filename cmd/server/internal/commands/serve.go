package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/orgs/internal/orgs"
	"github.com/wolfeidau/orgs/internal/storage"
	"github.com/wolfeidau/orgs/internal/sweeper"
	"github.com/wolfeidau/orgs/internal/telemetry"
)

type ServeCmd struct {
	Tracing     bool    `help:"enable tracing" default:"false" env:"ORGS_TRACING"`
	SampleRatio float64 `help:"fraction of root traces sampled when tracing" default:"1.0" env:"ORGS_TRACE_SAMPLE_RATIO"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := setup(globals)
	if err != nil {
		return err
	}

	log.Info().
		Str("version", globals.Version).
		Bool("debug", globals.Debug).
		Str("store", cfg.StoreType).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Options{
			ServiceName: "orgs-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	svc := orgs.NewService(backend.Stores)

	sw := sweeper.New(ctx, svc, cfg.SweepInterval)
	defer sw.Stop()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	return nil
}
