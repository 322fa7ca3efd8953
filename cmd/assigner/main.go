package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"estate_distribution/internal/adapters/observability"
	"estate_distribution/internal/app"
	"estate_distribution/internal/shared"
	"estate_distribution/internal/storage/sqlrepo"
	"estate_distribution/internal/wiring"
)

func main() {
	seedPath := flag.String("seed", "", "JSON seed file loaded into the SQL store before the run")
	flag.Parse()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv).Level(observability.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	deps, err := wiring.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer deps.Close()

	if *seedPath != "" {
		if deps.SQL == nil {
			log.Fatal().Str("backend", cfg.StoreBackend).Msg("-seed needs STORE_BACKEND=sql")
		}
		s, err := sqlrepo.LoadSeedFile(*seedPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load seed")
		}
		if err := deps.SQL.Seed(ctx, s); err != nil {
			log.Fatal().Err(err).Msg("apply seed")
		}
		log.Info().Int("properties", len(s.Properties)).Int("buyers", len(s.Buyers)).Msg("seed applied")
	}

	log.Info().
		Str("backend", cfg.StoreBackend).
		Int("workers", cfg.Workers).
		Msg("assigner starting")

	rep, err := app.NewBatchAssigner(deps.Assigner, deps.Store, cfg.Workers).Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("run", rep.Run).Msg("batch did not complete")
		deps.Close()
		os.Exit(1)
	}
	if rep.Errors > 0 {
		deps.Close()
		os.Exit(2)
	}
}
