package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"berza/internal/analysis"
	"berza/internal/config"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer := analysis.NewAnalyzer(st, st, logger)
	if err := analyzer.Run(ctx); err != nil {
		log.Fatalf("analysis error: %v", err)
	}
}
