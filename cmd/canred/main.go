package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	apiPkg "github.com/canre-io/canre/internal/api"
	"github.com/canre-io/canre/internal/app"
	"github.com/canre-io/canre/internal/config"
	"github.com/canre-io/canre/internal/logbuf"
)

func main() {
	configPath := flag.String("config", os.Getenv("CANRE_CONFIG"), "Path to config file (.json, .yaml, .yml)")
	configURL := flag.String("config-url", os.Getenv("CANRE_CONFIG_URL"), "URL to fetch config from")
	configKey := flag.String("config-key", os.Getenv("CANRE_CONFIG_KEY"), "Bearer token for -config-url")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Logs go to stderr: stdout carries the MCP stream.
	bootLevel := slog.LevelInfo
	if *verbose {
		bootLevel = slog.LevelDebug
	}
	boot := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: bootLevel}))

	// Load config (3 modes: file, url, env)
	var cfg *config.Config
	var err error
	switch {
	case *configPath != "":
		cfg, err = config.Load(*configPath)
	case *configURL != "":
		boot.Info("loading config from url", "url", *configURL)
		cfg, err = config.LoadFromURL(config.RemoteOptions{URL: *configURL, APIKey: *configKey})
	default:
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		boot.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := cfg.Log.SlogLevel()
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(cfg.Log.BufferSize)
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))
	slog.SetDefault(logger)

	logger.Info("canred starting", "server", cfg.Server.Name, "version", cfg.Server.Version)

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.Scheduler != nil {
		go safeGo(logger, "scheduler", func() { a.Scheduler.Start(ctx) })
		if cfg.Probe.Schedule != "" {
			// First probe runs at startup; the schedule covers the rest.
			go safeGo(logger, "probe", func() { a.RunProbe(ctx) })
		}
	}

	if cfg.API.Enabled {
		apiSrv := apiPkg.NewServer(a, apiPkg.Config{
			Host: cfg.API.Host,
			Port: cfg.API.Port,
			Key:  cfg.API.Key,
		}, logger.With("component", "api"), logBuf)
		go safeGo(logger, "api-server", func() {
			if err := apiSrv.Start(ctx); err != nil {
				logger.Error("api server failed", "error", err)
			}
		})
	}

	stdioDone := make(chan error, 1)
	go safeGo(logger, "stdio", func() {
		stdioDone <- a.MCP.ServeStdio(ctx, os.Stdin, os.Stdout)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case err := <-stdioDone:
		if err != nil {
			logger.Error("stdio transport failed", "error", err)
		} else {
			logger.Info("stdin closed, shutting down")
		}
	}
	cancel()
	logger.Info("canred stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
