package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"perfmetrics-agent/api"
	"perfmetrics-agent/collector"
	"perfmetrics-agent/config"
	"perfmetrics-agent/models"
	"perfmetrics-agent/sampler"
)

// Build info
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("perfmetrics agent starting", "version", version, "commit", commit, "built", date)

	env, err := newEnvironment(cfg)
	if err != nil {
		logger.Error("environment setup failed", "error", err)
		os.Exit(1)
	}

	s := sampler.New(env, sampler.Options{
		Logger:        logger,
		FrameRate:     cfg.FrameRate,
		HardwareEvery: cfg.HardwareEvery,
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Mount(); err != nil {
		logger.Error("mount failed", "error", err)
		os.Exit(1)
	}
	s.OnPaneReady()

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()
	go logUpdates(ctx, logger, updates)

	if cfg.ReportURL != "" {
		logger.Info("reporting enabled", "url", cfg.ReportURL, "interval", cfg.ReportInterval)
		go runReporter(ctx, api.NewSender(cfg.ReportURL, cfg.APIKey, version), s, cfg.ReportInterval)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	s.Unmount()
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newEnvironment(cfg *config.Config) (collector.Environment, error) {
	if cfg.FixtureFile == "" {
		return collector.NewHostEnvironment(), nil
	}
	env, err := collector.LoadFixture(cfg.FixtureFile)
	if err != nil {
		return nil, err
	}
	slog.Info("sampling fixture environment", "path", cfg.FixtureFile)
	return env, nil
}

func logUpdates(ctx context.Context, logger *slog.Logger, updates <-chan models.State) {
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return
			}
			logger.Debug("state updated",
				"loading", state.Loading,
				"memory_mb", state.MemoryUsage,
				"cpu_usage", state.CPUUsage,
				"gpu_usage", state.GPUUsage,
				"fps", humanize.FtoaWithDigits(state.Frame.FPS, 1),
			)
		case <-ctx.Done():
			return
		}
	}
}

// runReporter posts the current state every interval
func runReporter(ctx context.Context, sender *api.Sender, s *sampler.MetricsSampler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	send := func() {
		state := s.State()
		if err := sender.SendState(ctx, &state); err != nil && ctx.Err() == nil {
			slog.Warn("send failed", "error", err)
		}
	}

	// Send immediately
	send()

	for {
		select {
		case <-ticker.C:
			send()
		case <-ctx.Done():
			return
		}
	}
}
