package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/obsidianstack/usagestats/agent/internal/config"
	"github.com/obsidianstack/usagestats/agent/internal/metadata"
	"github.com/obsidianstack/usagestats/agent/internal/persist"
	"github.com/obsidianstack/usagestats/agent/internal/reporter"
	"github.com/obsidianstack/usagestats/agent/internal/shipper"
	"github.com/obsidianstack/usagestats/agent/internal/usage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to config file")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("obsidianstack-agent starting", "config", *configPath, "version", version)
	start := time.Now()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"enabled", cfg.Agent.IsEnabled(),
		"report_url", cfg.Agent.ReportURL,
		"report_interval", cfg.Agent.ReportInterval,
		"session_dir", cfg.Agent.SessionDir,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	md, err := metadata.NewCollector(
		metadata.NewHostSource(cfg.Agent, version, start),
		cfg.Agent.MetadataRetries,
	).Collect(ctx)
	if err != nil {
		slog.Error("failed to collect usage metadata", "err", err)
		os.Exit(1)
	}
	slog.Info("usage metadata collected", "session_id", md.SessionID)

	ship, err := shipper.New(cfg.Agent)
	if err != nil {
		slog.Error("failed to build shipper", "err", err)
		os.Exit(1)
	}

	toggle := config.NewToggle(cfg.Agent.IsEnabled())
	go func() {
		if err := config.WatchToggle(ctx, *configPath, toggle); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	cycle := reporter.NewCycle(reporter.CycleConfig{
		Metadata:    md,
		Tracker:     usage.NewTracker(),
		Transmitter: ship,
		Persister:   persist.New(cfg.Agent.Textfile),
		Toggle:      toggle,
		ReportURL:   cfg.Agent.ReportURL,
		SessionDir:  cfg.Agent.SessionDir,
	})
	rnd := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // jitter only
	go reporter.NewScheduler(cycle, toggle, cfg.Agent.ReportInterval, rnd).Run(ctx)

	<-ctx.Done()
	slog.Info("obsidianstack-agent shutting down")
}
