package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/citycal/internal/cli"
	"horse.fit/citycal/internal/config"
	"horse.fit/citycal/internal/db"
	"horse.fit/citycal/internal/globaltime"
	"horse.fit/citycal/internal/ics"
	"horse.fit/citycal/internal/logging"
	"horse.fit/citycal/internal/pipeline"
)

func runExportICS(args []string) int {
	fs := flag.NewFlagSet("export-ics", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	outPath := fs.String("out", "citycal.ics", "Output file path (- for stdout)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*outPath) == "" {
		fmt.Fprintln(os.Stderr, "--out must not be empty")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := pipeline.NewService(pool, nil, logger)
	rows, err := svc.LoadDisplayRows(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("load display events failed")
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		return 1
	}

	cal, skipped, err := ics.BuildCalendar(rows, globaltime.UTC())
	if err != nil {
		logger.Error().Err(err).Msg("build calendar failed")
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		return 1
	}
	if len(skipped) > 0 {
		logger.Warn().Strs("event_ids", skipped).Msg("events skipped in calendar export")
	}

	serialized := cal.Serialize()
	if strings.TrimSpace(*outPath) == "-" {
		fmt.Print(serialized)
		return 0
	}

	if err := os.WriteFile(*outPath, []byte(serialized), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *outPath, err)
		return 1
	}

	fmt.Printf("wrote %s events=%d skipped=%d\n", *outPath, len(rows)-len(skipped), len(skipped))
	return 0
}
