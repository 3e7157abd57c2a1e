package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitpeek/dompulse/internal/collector"
	"github.com/bitpeek/dompulse/internal/config"
	"github.com/bitpeek/dompulse/internal/netutil"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg := config.LoadCollector()

	if err := setupLogger(cfg.Debug, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("collector config loaded",
		"bind_addr", cfg.BindAddr,
		"fallback_addrs", cfg.FallbackAddrs,
		"auto_fallback", cfg.AutoFallback,
		"data_dir", cfg.DataDir,
		"store_queue_size", cfg.StoreQueueSize,
		"max_file_size_mb", cfg.MaxFileSizeMB,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.FallbackAddrs, cfg.AutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	store := collector.NewStore(cfg.DataDir, cfg.StoreQueueSize, cfg.MaxFileSizeMB)
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("store close failed", "error", err)
		}
	}()

	broker := collector.NewBroker()
	h := collector.NewServer(store, broker)

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("collector listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("collector server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("collector shutdown failed", "error", err)
	}
	slog.Info("collector stopped")
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
