package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/cooking-backend/internal/catalog"
	"github.com/DoyleJ11/cooking-backend/internal/config"
	"github.com/DoyleJ11/cooking-backend/internal/engine"
	"github.com/DoyleJ11/cooking-backend/internal/httpapi"
	"github.com/DoyleJ11/cooking-backend/internal/hub"
	"github.com/DoyleJ11/cooking-backend/internal/logging"
	"github.com/DoyleJ11/cooking-backend/internal/timer"
	"github.com/DoyleJ11/cooking-backend/internal/ws"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.DotEnvLoaded {
		logger.Warn("no .env file found, using process environment only")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	h := hub.NewHub(ctx, logger)
	scheduler := timer.NewScheduler(clockwork.NewRealClock(), logger)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, ws.Config{
		Catalog:        cat,
		Scheduler:      scheduler,
		Logger:         logger,
		Rules:          engine.Rules{TimeScale: cfg.TimeScale},
		WriteTimeout:   cfg.WriteTimeout,
		PingInterval:   cfg.PingInterval,
		PingTimeout:    cfg.PingTimeout,
		OriginPatterns: cfg.OriginPatterns,
	})
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
		// Hijacked websocket connections outlive Shutdown; tie them to the signal.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openCatalog(ctx context.Context, cfg config.Config) (catalog.Catalog, error) {
	if cfg.DatabaseURL != "" {
		store, err := catalog.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return catalog.LoadFile(cfg.CatalogPath)
}
