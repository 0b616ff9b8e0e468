// Package main runs the neighborhood post monitor: it polls a post
// source, scans each post for configured keywords and emojis, records
// first-time matches, and serves the dashboard API with live push
// updates.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"neighborhood-monitor/config"
	"neighborhood-monitor/email"
	"neighborhood-monitor/notify"
	"neighborhood-monitor/pkg/monitor"
	"neighborhood-monitor/poll"
	"neighborhood-monitor/server"
	"neighborhood-monitor/source"
	"neighborhood-monitor/storage"
	"neighborhood-monitor/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// A .env file is optional outside local development.
		slog.Debug("No .env file loaded", "error", err)
	}

	logger := newLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.Error("Failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	snapshots, cleanup := initSnapshots(ctx, logger)
	defer cleanup()

	matchStore := store.New(logger)
	if snapshots != nil {
		events, err := snapshots.LoadAll(ctx)
		if err != nil {
			logger.Warn("Failed to load match snapshots, starting empty", "error", err)
		} else if restored := matchStore.Restore(events); restored > 0 {
			logger.Info("Restored matches from snapshots", "count", restored)
		}
	}

	hub := notify.NewHub(logger)
	fanout := notify.NewFanout(logger, buildNotifyTargets(ctx, cfg, hub, snapshots, logger)...)
	defer fanout.Close()
	matchStore.OnMatch(func(ev *monitor.MatchEvent) {
		if err := fanout.Notify(ctx, ev); err != nil {
			logger.Warn("Notifier fanout failed", "post_id", ev.PostID, "error", err)
		}
	})

	src := source.Select(cfg.Ring.APIToken, cfg.Ring.BaseURL, logger)

	interval := time.Duration(cfg.Monitoring.PollIntervalSeconds) * time.Second
	poller := poll.New(src, matchStore, cfg.Monitoring.Keywords, cfg.Monitoring.Emojis, interval, logger)
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Poll loop exited", "error", err)
		}
	}()

	srv := server.New(&server.Config{
		Store:      matchStore,
		Hub:        hub,
		Poller:     poller,
		Logger:     logger,
		SourceName: src.Name(),
		Keywords:   cfg.Monitoring.Keywords,
		Emojis:     cfg.Monitoring.Emojis,
		Interval:   interval,
	})

	addr := listenAddr(cfg)
	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// newLogger builds the process logger: colorized text for local
// development when LOG_FORMAT=text, JSON otherwise.
func newLogger() *slog.Logger {
	if os.Getenv("LOG_FORMAT") == "text" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// initSnapshots sets up durable match snapshots: Cloud Storage when
// STORAGE_BUCKET is set, a local directory otherwise. The returned
// cleanup closes the storage client when one was created.
func initSnapshots(ctx context.Context, logger *slog.Logger) (*storage.Store, func()) {
	noop := func() {}

	localPath := os.Getenv("LOCAL_STORAGE")
	bucket := os.Getenv("STORAGE_BUCKET")

	if bucket == "" && localPath == "" {
		localPath = "./data"
		logger.Info("No STORAGE_BUCKET set, defaulting to local snapshot storage", "storage_path", localPath)
	}

	if localPath != "" {
		if err := os.MkdirAll(localPath, 0o755); err != nil {
			logger.Error("Failed to create local storage directory", "path", localPath, "error", err)
			os.Exit(1)
		}
		return storage.New(nil, "", localPath, logger), noop
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		logger.Error("Failed to initialize Storage client", "error", err)
		os.Exit(1)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close storage client", "error", err)
		}
	}
	logger.Info("Using Cloud Storage for match snapshots", "bucket", bucket)
	return storage.New(client, bucket, "", logger), cleanup
}

// buildNotifyTargets assembles the delivery targets for new matches.
// The dashboard hub and the snapshot store are always included; email
// and webhook targets only when configured.
func buildNotifyTargets(ctx context.Context, cfg *config.Config, hub *notify.Hub, snapshots *storage.Store, logger *slog.Logger) []notify.Notifier {
	targets := []notify.Notifier{hub}
	if snapshots != nil {
		targets = append(targets, snapshots)
	}

	if cfg.Notify.WebhookURL != "" {
		logger.Info("Webhook notifications enabled", "url", cfg.Notify.WebhookURL)
		targets = append(targets, notify.NewWebhook(cfg.Notify.WebhookURL, logger))
	}

	if to := cfg.Notify.Email.To; to != "" {
		baseURL := os.Getenv("BASE_URL")
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://%s", listenAddr(cfg))
		}
		targets = append(targets, email.New(initEmailProvider(ctx, logger), to, baseURL, logger))
	}

	if cfg.Notify.WebhookURL == "" && cfg.Notify.Email.To == "" {
		// Without external targets, log matches so local runs show them.
		targets = append(targets, notify.NewLogNotifier(logger))
	}

	return targets
}

// initEmailProvider returns the Gmail provider when credentials are
// available and a logging mock otherwise, so a missing credential never
// blocks startup.
func initEmailProvider(ctx context.Context, logger *slog.Logger) email.Provider {
	credsJSON := os.Getenv("GOOGLE_CREDENTIALS_JSON")
	if credsJSON == "" {
		logger.Info("Mock email mode enabled (no GOOGLE_CREDENTIALS_JSON)")
		return email.NewMockProvider(logger)
	}

	service, err := gmail.NewService(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		logger.Warn("Failed to initialize Gmail service, using mock email", "error", err)
		return email.NewMockProvider(logger)
	}
	return email.NewGmailProvider(service, logger)
}

func listenAddr(cfg *config.Config) string {
	if p := os.Getenv("PORT"); p != "" {
		// Cloud Run injects PORT and expects the listener on all interfaces.
		return ":" + p
	}
	return fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
}
