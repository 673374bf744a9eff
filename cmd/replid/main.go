// CLAUDE:SUMMARY Entry point for the replid relay daemon — chi router behind the shield stack, client registration one-shot.
// Command replid serves the fold relay API.
//
// Usage:
//
//	REPLI_SECRET=... replid -db relay.db -addr :8090
//	REPLI_SECRET=... replid -db relay.db -register-client lecteur
//
// The signing secret comes from the REPLI_SECRET environment variable and
// is stretched to 32 bytes with SHA-256.
package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/repli/dbopen"
	"github.com/hazyhaar/repli/observability"
	"github.com/hazyhaar/repli/relay"
	"github.com/hazyhaar/repli/shield"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	dbPath := flag.String("db", "relay.db", "path to SQLite database")
	registerClient := flag.String("register-client", "", "register a client with this name, print credentials, exit")
	obsPath := flag.String("obs-db", "", "path to metrics database (empty disables metrics)")
	tokenTTL := flag.Duration("token-ttl", relay.DefaultTokenTTL, "lifetime of issued tokens")
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
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *addr, *dbPath, *obsPath, *registerClient, *tokenTTL); err != nil {
		logger.Error("replid: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, addr, dbPath, obsPath, registerClient string, tokenTTL time.Duration) error {
	secretInput := os.Getenv("REPLI_SECRET")
	if secretInput == "" {
		return errors.New("REPLI_SECRET is required")
	}
	// Stretch to a 32-byte HMAC secret regardless of input length.
	secretHash := sha256.Sum256([]byte(secretInput))
	jwtSecret := secretHash[:]

	store, err := relay.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// One-shot: register a client and print its credentials.
	if registerClient != "" {
		id, secret, err := store.RegisterClient(ctx, registerClient, "")
		if err != nil {
			return err
		}
		fmt.Printf("client_id: %s\nclient_secret: %s\n", id, secret)
		return nil
	}

	opts := []relay.ServerOption{
		relay.WithTokenTTL(tokenTTL),
		relay.WithLogger(logger),
	}

	// Metrics live in their own database to keep writes off the relay DB.
	if obsPath != "" {
		obsDB, err := dbopen.Open(obsPath,
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(observability.Schema),
		)
		if err != nil {
			return fmt.Errorf("metrics db: %w", err)
		}
		defer obsDB.Close()
		mm := observability.NewMetricsManager(obsDB, 100, 5*time.Second)
		defer mm.Close()
		opts = append(opts, relay.WithMetrics(mm))
	}

	srv, err := relay.NewServer(store, jwtSecret, opts...)
	if err != nil {
		return err
	}

	if err := shield.Init(store.DB); err != nil {
		return fmt.Errorf("shield init: %w", err)
	}

	r := chi.NewRouter()
	stack, mm := shield.DefaultAPIStack(store.DB)
	for _, mw := range stack {
		r.Use(mw)
	}
	mm.StartReloader(ctx.Done())
	r.Mount("/", srv.Router())

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("replid: listening", "addr", addr, "db", dbPath)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("replid: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
