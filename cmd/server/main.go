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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/buckshot-backend/internal/config"
	"github.com/DoyleJ11/buckshot-backend/internal/httpapi"
	"github.com/DoyleJ11/buckshot-backend/internal/hub"
	"github.com/DoyleJ11/buckshot-backend/internal/random"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	seed := cfg.RandomSeed
	if seed == 0 {
		if seed, err = random.NewSeed(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Build the router *with* the hub injected
	h := hub.NewHub(ctx, hub.Options{
		MaxLobbies: cfg.MaxLobbies,
		InboxSize:  cfg.LobbyInboxSize,
		Logger:     log,
		Random:     random.New(seed),
	})
	limiter := httpapi.NewIPRateLimiter(httpapi.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}, log)
	defer limiter.Stop()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.RouterConfig{
			Hub:              h,
			Logger:           log,
			RateLimiter:      limiter,
			CORSOrigins:      cfg.CORSOrigins,
			SubscriberBuffer: cfg.SubscriberBuffer,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Int64("seed", seed))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Hijacked websocket connections are not tracked by Shutdown; stopping
		// the hub closes their outboxes.
		return errors.Join(srv.Shutdown(sctx), h.Shutdown(sctx))
	})
	return g.Wait()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	return zc.Build()
}
