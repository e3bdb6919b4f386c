package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"passlink/go-backend/internal/adapters/rediscounter"
	"passlink/go-backend/internal/api"
	"passlink/go-backend/internal/bootstrap/chainconfig"
	"passlink/go-backend/internal/composition/verifierservice"
	"passlink/go-backend/internal/platform/privacylog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	addr := flag.String("addr", "127.0.0.1:8686", "HTTP listen address")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("verifierd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stderr, nil)))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := chainconfig.LoadFromPath(*configPath)
	if err := cfg.Validate(); err != nil {
		logger.Error("verifierd configuration invalid", "error", err)
		os.Exit(1)
	}
	counter, err := rediscounter.NewFromURL(cfg.CounterURL)
	if err != nil {
		logger.Error("counter client initialization failed", "error", err)
		os.Exit(1)
	}
	defer counter.Close()

	svc, err := verifierservice.New(cfg, counter,
		verifierservice.WithLogger(logger),
		verifierservice.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logger.Error("verifierd failed to initialize", "error", err)
		os.Exit(1)
	}

	logger.Info("verifierd starting", "addr", *addr, "network", cfg.Network)
	server := api.NewServer(svc, logger, api.WithRegisterRateLimit(1, 5))
	if err := server.Run(ctx, *addr); err != nil {
		logger.Error("verifierd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("verifierd stopped")
}
