package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/TomasBirkner/hostly-backend/internal/api"
	"github.com/TomasBirkner/hostly-backend/internal/calendar"
	"github.com/TomasBirkner/hostly-backend/internal/config"
	"github.com/TomasBirkner/hostly-backend/internal/logging"
	"github.com/TomasBirkner/hostly-backend/internal/storage"
	"github.com/TomasBirkner/hostly-backend/internal/websocket"
)

func serve(c *cli.Context) error {
	cfg := loadConfig(c)
	logging.Init(config.AppName, cfg.LogLevel)

	logging.Logger.WithFields(logrus.Fields{
		"version": cfg.Version,
		"port":    cfg.Port,
	}).Info("Starting Hostly backend")

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The sync journal lives in memory and is lost on restart.
	db, err := storage.NewDB(storage.MemoryDSN)
	if err != nil {
		return fmt.Errorf("opening sync journal: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	history := storage.NewHistoryRepository(db, cfg.HistoryLimit)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	store := storage.NewPropertyStore()
	fetcher := calendar.NewFetcher(cfg.FetchTimeout)
	parser := calendar.NewFeedParser(fetcher, nil)
	syncService := calendar.NewSyncService(store, parser, history, hub, cfg.SyncConcurrency)

	if err := seedProperties(ctx, cfg.SeedFile, store, syncService); err != nil {
		return err
	}

	scheduler := calendar.NewScheduler(syncService, cfg.SyncCron)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	router := api.NewRouter(api.Services{
		Store:     store,
		Sync:      syncService,
		Scheduler: scheduler,
		History:   history,
		Hub:       hub,
		FeedCache: fetcher,
		Version:   cfg.Version,
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Registration and manual syncs wait on remote feeds.
		WriteTimeout: cfg.FetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Logger.WithField("addr", server.Addr).Info("Server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logging.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logging.Logger.Info("Server stopped")
	return nil
}

// seedProperties registers the properties listed in the seed file and runs
// one sync of all of them. Feed failures are logged, not fatal.
func seedProperties(ctx context.Context, path string, store *storage.PropertyStore, syncService *calendar.SyncService) error {
	seeds, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}

	for _, s := range seeds {
		if _, err := store.Register(storage.Registration{
			PropertyID: s.PropertyID,
			Name:       s.Name,
			ICalURL:    s.ICalURL,
		}); err != nil {
			return fmt.Errorf("seeding property %q: %w", s.PropertyID, err)
		}
	}

	outcomes := syncService.SyncAll(ctx)
	logging.Logger.WithField("properties", len(outcomes)).Info("Seed properties registered and synced")
	return nil
}
