package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flashdeck/backend/internal/config"
	"github.com/flashdeck/backend/internal/httpapi"
	"github.com/flashdeck/backend/internal/hub"
	"github.com/flashdeck/backend/internal/store"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer db.Close()

	repo := store.NewUnitRepo(db, log)
	slot := store.NewSessionSlot(db, cfg.QuotaBytes, log)

	if cfg.SeedFile != "" {
		if err := store.Seed(ctx, repo, cfg.SeedFile, log); err != nil {
			log.Warn("seeding starter units failed", zap.Error(err))
		}
	}

	h := hub.NewHub(ctx, repo, slot, log)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, repo, log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
