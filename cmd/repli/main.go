// CLAUDE:SUMMARY CLI entry point for repli — fold state inspection, compaction and sync against a relay.
// Command repli manages a local fold state database.
//
// Usage:
//
//	repli -config repli.yaml               # run with config file
//	repli -db repli.db -site example.org   # run with defaults
//	repli -db repli.db -stats              # show counters and exit
//	repli -db repli.db -dump               # dump thresholds and exit
//	repli -db repli.db -compact            # force an eviction pass and exit
//	repli -config repli.yaml -sync         # one reconciliation round and exit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/repli/foldsync"
	"github.com/hazyhaar/repli/tracker"
)

func main() {
	configPath := flag.String("config", "", "path to repli.yaml config file")
	dbPath := flag.String("db", "", "path to SQLite database")
	site := flag.String("site", "", "site key (namespace) to operate on")
	showStats := flag.Bool("stats", false, "show stats and exit")
	dump := flag.Bool("dump", false, "dump fold thresholds and exit")
	compact := flag.Bool("compact", false, "force an eviction pass and exit")
	syncOnce := flag.Bool("sync", false, "run one sync round and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *site, *showStats, *dump, *compact, *syncOnce); err != nil {
		logger.Error("repli: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, site string, showStats, dump, compact, syncOnce bool) error {
	cfg, err := resolveConfig(configPath, dbPath, site)
	if err != nil {
		return err
	}

	tr, err := tracker.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer tr.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	switch {
	case showStats:
		return enc.Encode(tr.Stats())

	case dump:
		return enc.Encode(tr.State().Export())

	case compact:
		changed := tr.Compact()
		logger.Info("repli: compaction done", "changed", changed,
			"keys", tr.State().Len(), "log_entries", tr.State().LogLen())
		return nil

	case syncOnce:
		report, err := tr.Sync(ctx)
		if errors.Is(err, foldsync.ErrNotAuthorized) {
			logger.Info("repli: sync skipped (no relay token configured)")
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		return enc.Encode(report)
	}

	return enc.Encode(tr.Stats())
}

func resolveConfig(configPath, dbPath, site string) (*tracker.Config, error) {
	if configPath != "" {
		return tracker.LoadConfigFile(configPath)
	}

	cfg := &tracker.Config{}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if site != "" {
		cfg.Site = site
	}

	if cfg.DBPath == "" {
		fmt.Fprintln(os.Stderr, "usage: repli -config <file> | -db <path> [-site <key>] [-stats|-dump|-compact|-sync]")
		os.Exit(1)
	}
	return cfg, nil
}
