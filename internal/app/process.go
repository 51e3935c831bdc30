package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/citycal/internal/cli"
	"horse.fit/citycal/internal/config"
	"horse.fit/citycal/internal/db"
	"horse.fit/citycal/internal/logging"
	"horse.fit/citycal/internal/pipeline"
	"horse.fit/citycal/internal/sources"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	minScore := fs.Float64("min-score", 0, "Match score threshold (0 uses MATCH_MIN_SCORE)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *minScore < 0 || *minScore > 1 {
		fmt.Fprintln(os.Stderr, "--min-score must be within [0,1]")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := pipeline.NewService(pool, registry, logger)
	matchResult, materializeResult, err := svc.Process(ctx, matchOptions(cfg, *minScore))
	if err != nil {
		logger.Error().Err(err).Msg("process run failed")
		fmt.Fprintf(os.Stderr, "Process failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"source_pairs=%d edges=%d high=%d medium=%d low=%d\n",
		matchResult.SourcePairs, matchResult.Edges, matchResult.High, matchResult.Medium, matchResult.Low,
	)
	fmt.Printf(
		"events=%d display_rows=%d excluded=%d\n",
		materializeResult.Events, materializeResult.DisplayRows, materializeResult.Excluded,
	)
	return 0
}
