package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"horse.fit/citycal/internal/cli"
	"horse.fit/citycal/internal/config"
	"horse.fit/citycal/internal/db"
	"horse.fit/citycal/internal/logging"
	"horse.fit/citycal/internal/pipeline"
	"horse.fit/citycal/internal/sources"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	schedule := fs.String("schedule", "*/30 * * * *", "Cron schedule for pipeline runs")
	runTimeout := fs.Duration("run-timeout", 10*time.Minute, "Timeout for one pipeline run")
	immediate := fs.Bool("immediate", true, "Run the pipeline once at startup")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	registry, err := sources.Load(cfg.SourcesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sources registry: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("daemon failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := pipeline.NewService(pool, registry, logger)
	opts := matchOptions(cfg, 0)

	runOnce := func() {
		runCtx, runCancel := context.WithTimeout(context.Background(), *runTimeout)
		defer runCancel()

		started := time.Now()
		matchResult, materializeResult, err := svc.Process(runCtx, opts)
		if err != nil {
			logger.Error().Err(err).Msg("scheduled pipeline run failed")
			return
		}
		logger.Info().
			Int("source_pairs", matchResult.SourcePairs).
			Int("edges", matchResult.Edges).
			Int("display_rows", materializeResult.DisplayRows).
			Int("excluded", materializeResult.Excluded).
			Dur("elapsed", time.Since(started)).
			Msg("scheduled pipeline run finished")
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*schedule, runOnce); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --schedule %q: %v\n", *schedule, err)
		return 2
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	logger.Info().Str("schedule", *schedule).Msg("citycal daemon started")

	if *immediate {
		runOnce()
	}

	scheduler.Start()
	<-sigCh

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(*runTimeout):
		logger.Warn().Msg("daemon shutdown timed out waiting for running job")
	}

	logger.Info().Msg("citycal daemon stopped")
	return 0
}
