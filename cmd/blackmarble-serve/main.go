// Command blackmarble-serve serves a tile store's catalog and pipeline over
// HTTP JSON.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	blackmarble "github.com/geowatch/go-blackmarble"
	"github.com/geowatch/go-blackmarble/internal/api"
)

type config struct {
	StorePath       string
	ArchivePath     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	CacheSize       int
	ShutdownTimeout time.Duration
}

func loadConfig() (*config, error) {
	cfg := &config{
		StorePath:       os.Getenv("STORE_PATH"),
		ArchivePath:     os.Getenv("ARCHIVE_PATH"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		CacheSize:       64,
		ShutdownTimeout: 10 * time.Second,
	}
	if s := os.Getenv("RENDER_CACHE_SIZE"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, errors.New("invalid RENDER_CACHE_SIZE")
		}
		cfg.CacheSize = n
	}
	if s := os.Getenv("SHUTDOWN_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
		}
		cfg.ShutdownTimeout = d
	}
	if cfg.StorePath == "" && cfg.ArchivePath == "" {
		return nil, errors.New("STORE_PATH or ARCHIVE_PATH is required")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger(cfg *config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	storePath := cfg.StorePath
	if cfg.ArchivePath != "" {
		if storePath == "" {
			storePath = "data"
		}
		resolved, err := blackmarble.ExtractArchive(cfg.ArchivePath, storePath)
		if err != nil {
			logger.Error("archive extraction failed", "archive", cfg.ArchivePath, "error", err)
			os.Exit(1)
		}
		storePath = resolved
		logger.Info("archive extracted", "archive", cfg.ArchivePath, "store", storePath)
	}

	store := blackmarble.NewStore(os.DirFS(storePath), blackmarble.WithLogger(logger))

	srv, err := api.NewServer(cfg.HTTPAddr, store, cfg.CacheSize, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
