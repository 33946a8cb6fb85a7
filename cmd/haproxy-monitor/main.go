package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haproxy-monitor/haproxy-monitor/internal/api"
	"github.com/haproxy-monitor/haproxy-monitor/internal/config"
	"github.com/haproxy-monitor/haproxy-monitor/internal/logger"
	"github.com/haproxy-monitor/haproxy-monitor/internal/telemetry"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to config file")
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	load := config.LoadOrDefault
	if explicit {
		load = config.Load
	}
	cfg, err := load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))
	slog.Info("haproxy-monitor starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"fetch_timeout", cfg.Fetch.Timeout,
		"tls_verify", !cfg.Fetch.InsecureSkipVerify,
		"cors_origins", len(cfg.Server.CORSOrigins),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewCollector()
	handler := api.New(cfg, metrics)

	if _, err := os.Stat(*configPath); err == nil {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				slog.SetDefault(logger.New(os.Stdout, updated.Log.Level, updated.Log.Format))
				handler.SetConfig(updated)
				if updated.Server.HTTPPort != cfg.Server.HTTPPort {
					slog.Warn("http_port change requires a restart",
						"running", cfg.Server.HTTPPort, "configured", updated.Server.HTTPPort)
				}
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("haproxy-monitor shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
