package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

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

	exporter := store.NewParquetExporter(cfg.Storage.ExportDir)

	// Explicit codes on the command line export a subset.
	if codes := os.Args[1:]; len(codes) > 0 {
		for _, code := range codes {
			if err := exporter.ExportCode(ctx, st, code); err != nil {
				log.Fatalf("exporting %s: %v", code, err)
			}
			logger.Info("exported", "code", code)
		}
		return
	}

	if err := exporter.ExportAll(ctx, st); err != nil {
		log.Fatalf("export error: %v", err)
	}
	logger.Info("export complete", "dir", cfg.Storage.ExportDir)
}
