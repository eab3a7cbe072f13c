package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"berza/internal/config"
	"berza/internal/gather/mse"
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

	// Tee logs to a dated file so long overnight runs can be inspected.
	logFileName := fmt.Sprintf("/tmp/berza-update-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()

	w := io.MultiWriter(os.Stdout, logFile)
	logger := util.NewLoggerTo(w, cfg.Logging.Level, cfg.Logging.Format)
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Explicit codes on the command line bypass discovery.
	if codes := os.Args[1:]; len(codes) > 0 {
		report, err := updater.Update(ctx, codes)
		if err != nil {
			log.Fatalf("update error: %v", err)
		}
		for _, fe := range report {
			logger.Warn("security failed", "code", fe.Code, "reason", fe.Message)
		}
		return
	}

	if err := updater.Run(ctx); err != nil {
		log.Fatalf("update error: %v", err)
	}
}
