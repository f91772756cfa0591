package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/juanpablocruz/flightrec/internal/auth"
	"github.com/juanpablocruz/flightrec/internal/config"
	"github.com/juanpablocruz/flightrec/internal/mirror"
	"github.com/juanpablocruz/flightrec/internal/server"
	"github.com/juanpablocruz/flightrec/internal/transparency"
	"github.com/juanpablocruz/flightrec/pkg/commitment"
	"github.com/juanpablocruz/flightrec/pkg/ledger"
	"github.com/juanpablocruz/flightrec/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "flightrec:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	eventStore, commitStore, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer eventStore.Close()
	defer commitStore.Close()

	l := ledger.New(eventStore)
	c := commitment.NewStore(commitStore, l.CountByType)
	p := auth.NewStore(storage.NewStateFile(filepath.Join(cfg.DataDir, "parties.json")))
	tr := transparency.New(storage.NewStateFile(filepath.Join(cfg.DataDir, "transparency.json")))
	m := mirror.New(storage.NewStateFile(filepath.Join(cfg.DataDir, "mirrors.json")))

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.New(cfg, log, l, c, p, tr, m).Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "storage", cfg.Storage, "demo", cfg.DemoMode)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStores builds the event and commitment stores for the configured
// backend. Both SQLite stores share one database file.
func openStores(cfg config.Config) (storage.Store, storage.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	switch cfg.Storage {
	case config.BackendSQLite:
		events, err := storage.OpenSQLite(filepath.Join(cfg.DataDir, "flightrec.db"), "events")
		if err != nil {
			return nil, nil, err
		}
		commits, err := storage.NewSQLiteStore(events.DB(), "commitments")
		if err != nil {
			events.Close()
			return nil, nil, err
		}
		return events, commits, nil
	default:
		return storage.NewFileStore(filepath.Join(cfg.DataDir, "events.jsonl")),
			storage.NewFileStore(filepath.Join(cfg.DataDir, "commitments.jsonl")), nil
	}
}
