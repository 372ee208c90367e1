package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/dice-chess/internal/config"
	"github.com/park285/dice-chess/internal/builder"
	"github.com/park285/dice-chess/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := builder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init_failed", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() { errCh <- deps.API.ListenAndServe(cfg.HTTPAddr) }()
	go func() { errCh <- deps.Watch.ListenAndServe(cfg.WSAddr) }()
	go deps.Manager.RunClock(ctx)

	logger.Info("dicechess_started",
		zap.String("http", cfg.HTTPAddr),
		zap.String("ws", cfg.WSAddr),
		zap.String("mode", string(cfg.Mode)),
		zap.String("clock", cfg.Clock.String()),
		zap.String("pace", cfg.Pace),
	)

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("dicechess_stopping")
	case err := <-errCh:
		if err != nil {
			logger.Error("listener_failed", zap.Error(err))
			code = 1
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Watch.Shutdown(shutdownCtx); err != nil {
		logger.Warn("watch_shutdown", zap.Error(err))
	}
	if err := deps.API.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown", zap.Error(err))
	}
	deps.Close()
	logger.Info("dicechess_stopped")
	if code != 0 {
		_ = logger.Sync()
		os.Exit(code)
	}
}
