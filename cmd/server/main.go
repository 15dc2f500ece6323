package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/seabattle-server/internal/accounts"
	"github.com/DoyleJ11/seabattle-server/internal/config"
	"github.com/DoyleJ11/seabattle-server/internal/httpapi"
	"github.com/DoyleJ11/seabattle-server/internal/hub"
	"github.com/DoyleJ11/seabattle-server/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func openStore(cfg config.Config, log *zap.Logger) (accounts.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory account store")
		return accounts.NewMemoryStore(), nil
	}
	return accounts.OpenGorm(cfg.DatabaseURL, log.Named("accounts"))
}

func run(cfg config.Config, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	hubOpts := hub.DefaultOptions()
	hubOpts.DisposeFinishedRooms = cfg.DisposeFinishedRooms
	hubOpts.Names = store
	h := hub.NewHub(ctx, log.Named("hub"), hubOpts)
	defer h.Shutdown()

	wsOpts := ws.DefaultOptions()
	wsOpts.ReadTimeout = cfg.ReadTimeout
	wsOpts.WriteTimeout = cfg.WriteTimeout
	wsOpts.Rate = cfg.ClientRate
	wsOpts.Burst = cfg.ClientBurst
	wsSrv := ws.NewServer(h, store, log.Named("ws"), wsOpts)

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(h, store, wsSrv, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		wsSrv.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
