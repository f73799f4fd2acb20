package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-community/pkg/api"
	"github.com/dd0wney/cluso-community/pkg/export"
	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/metrics"
	"github.com/dd0wney/cluso-community/pkg/resultstore"
)

func main() {
	configPath := flag.String("config", "", "Path to yaml configuration file")
	port := flag.Int("port", 0, "Override listen port")
	flag.Parse()

	logger := logging.DefaultLogger().With(logging.Component("communityd"))

	cfg := api.DefaultConfig()
	if *configPath != "" {
		loaded, err := api.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load configuration", logging.Path(*configPath), logging.Error(err))
			os.Exit(1)
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.Port = *port
	}

	switch cfg.LogLevel {
	case "debug":
		logging.DefaultLogger().SetLevel(logging.DebugLevel)
	case "warn":
		logging.DefaultLogger().SetLevel(logging.WarnLevel)
	case "error":
		logging.DefaultLogger().SetLevel(logging.ErrorLevel)
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open result store", logging.Error(err))
		os.Exit(1)
	}

	var exporter *export.Exporter
	if cfg.Export != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		exporter, err = export.New(ctx, *cfg.Export, logger, metrics.DefaultRegistry())
		cancel()
		if err != nil {
			logger.Error("failed to configure exporter", logging.Error(err))
			os.Exit(1)
		}
		logger.Info("result export enabled", logging.String("bucket", cfg.Export.Bucket))
	}

	server, err := api.NewServer(cfg, store, exporter)
	if err != nil {
		logger.Error("failed to build server", logging.Error(err))
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		logger.Error("server exited", logging.Error(err))
		os.Exit(1)
	}
}

// buildStore selects PostgreSQL when a database URL is configured and falls
// back to the in-memory store otherwise
func buildStore(cfg api.Config, logger logging.Logger) (resultstore.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory result store")
		return resultstore.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := resultstore.NewPGStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres result store: %w", err)
	}
	logger.Info("using postgres result store")
	return store, nil
}
