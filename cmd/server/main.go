package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/opsdash/internal/clock"
	"github.com/kiwari-pos/opsdash/internal/config"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/fixture"
	"github.com/kiwari-pos/opsdash/internal/persist"
	"github.com/kiwari-pos/opsdash/internal/router"
	"github.com/kiwari-pos/opsdash/internal/service"
	"github.com/kiwari-pos/opsdash/internal/ws"
	"golang.org/x/sync/errgroup"
)

// demoLatency simulates the document store round trip when no database is
// configured.
const demoLatency = 300 * time.Millisecond

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "opsdash: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var loaders service.LoaderFunc
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("ERROR: connect database: %v", err)
			return 1
		}
		defer pool.Close()

		store := persist.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Printf("ERROR: %v", err)
			return 1
		}
		loaders = func(storeID uuid.UUID) engine.Loader { return store.Loader(storeID) }
		log.Println("Loading store data from PostgreSQL")
	} else {
		demo := fixture.NewLoader(clock.Real(), demoLatency)
		loaders = func(uuid.UUID) engine.Loader { return demo }
		log.Println("DATABASE_URL not set, serving the demo dataset")
	}

	hub := ws.NewHub()
	registry := service.NewRegistry(hub, loaders, service.Options{
		SyncInterval:      cfg.SyncInterval,
		NewCustomerWindow: cfg.NewCustomerWindow,
		StrictTransitions: cfg.StrictTransitions,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, registry, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		registry.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Printf("ERROR: %v", err)
		return 1
	}
	return 0
}
