package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitpeek/dompulse/internal/browser"
	"github.com/bitpeek/dompulse/internal/config"
	"github.com/bitpeek/dompulse/internal/track"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		slog.Error("failed to load agent config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.Debug, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("agent config loaded",
		"cdp_url", cfg.CDPURL(),
		"tab_url_filter", cfg.TabURLFilter,
		"mode", cfg.Mode,
		"buffer_capacity", cfg.BufferCapacity,
		"flush_interval_ms", cfg.FlushIntervalMS,
		"launch_browser", cfg.LaunchBrowser,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var launcher *browser.Launcher
	if cfg.LaunchBrowser {
		launcher = browser.NewLauncher(browser.LaunchConfig{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.StartURL,
			ProfileDir: cfg.ProfileDir,
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	connector := browser.NewConnector(cfg.CDPURL(), cfg.TabURLFilter)
	docs, err := connector.Connect(ctx)
	if err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.CDPURL(), "error", err)
		slog.Info("make sure a Chromium instance is running with remote debugging enabled")
		os.Exit(1)
	}
	defer func() { _ = connector.Close() }()

	opts := cfg.TrackOptions()
	trackers := make([]*track.Tracker, 0, len(docs))
	for _, doc := range docs {
		tr, err := track.New(ctx, doc, track.WallClock(), opts)
		if err != nil {
			slog.Error("failed to start tracker", "url", doc.URL(), "error", err)
			continue
		}
		slog.Info("tracking page", "url", doc.URL(), "session_id", tr.SessionID(), "enabled", tr.Enabled())
		trackers = append(trackers, tr)
	}
	if len(trackers) == 0 {
		slog.Error("no pages could be tracked")
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutdown signal received")

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	for _, tr := range trackers {
		if err := tr.Flush(flushCtx); err != nil {
			slog.Warn("final flush failed", "session_id", tr.SessionID(), "error", err)
		}
		tr.Destroy()
	}

	slog.Info("agent stopped")
}

func setupLogger(debug bool, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
	return nil
}
