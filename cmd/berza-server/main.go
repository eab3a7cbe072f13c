package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"berza/internal/analysis"
	"berza/internal/config"
	"berza/internal/gather/mse"
	"berza/internal/httpapi"
	"berza/internal/scheduler"
	"berza/internal/store"
	"berza/internal/util"
)

func main() {
	cfgPath := "config/berza.yaml"
	if p := os.Getenv("BERZA_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer st.Close()

	client := mse.NewClient(cfg.MSE.BaseURL, time.Duration(cfg.MSE.TimeoutSec)*time.Second, cfg.MSE.RateLimitPerMin)
	fetcher := mse.NewFetcher(client, logger)
	source := mse.NewDropdownSource(client, cfg.MSE.DiscoveryURL)
	updater := mse.NewUpdater(fetcher, st, source, cfg.Gather.MaxWorkers, logger)
	analyzer := analysis.NewAnalyzer(st, st, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(ctx, updater, analyzer, logger)
	if err := sched.Register(cfg.Schedule.UpdateCron, cfg.Schedule.AnalyzeCron); err != nil {
		log.Fatalf("registering schedules: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := httpapi.NewServer(st, st, updater, analyzer, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
