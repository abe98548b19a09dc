package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"outboxd/config"
	"outboxd/core"
	"outboxd/observability"
	"outboxd/observability/logging"
	"outboxd/rpc"
	"outboxd/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("OUTBOX_ENV"))
	logger := logging.Setup("outboxd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var db storage.Database
	if strings.TrimSpace(cfg.DataDir) == "" {
		logger.Warn("No data directory configured, outbox state will not survive restarts")
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("Failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	outbox := core.NewOutbox(cfg.LocalDomain)
	if err := outbox.LoadFrom(core.NewStore(db)); err != nil {
		logger.Error("Failed to restore outbox state", slog.Any("error", err))
		os.Exit(1)
	}
	outbox.SetEmitter(observability.NewEventRecorder(logger))
	if outbox.State() == core.StateFailed {
		observability.Outbox().RecordHalt()
	}

	server := rpc.NewServer(outbox)
	logger.Info("Starting outbox daemon",
		slog.String("listen", cfg.ListenAddress),
		slog.Uint64("localDomain", uint64(cfg.LocalDomain)),
		slog.String("network", cfg.NetworkName),
		slog.String("state", outbox.State().String()),
		slog.Uint64("count", outbox.Count()),
	)
	if err := server.Start(cfg.ListenAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
