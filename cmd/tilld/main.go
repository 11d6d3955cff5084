package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tillpoint/till/internal/alert"
	apiPkg "github.com/tillpoint/till/internal/api"
	"github.com/tillpoint/till/internal/config"
	"github.com/tillpoint/till/internal/kv"
	"github.com/tillpoint/till/internal/logbuf"
	"github.com/tillpoint/till/internal/netwatch"
	"github.com/tillpoint/till/internal/queue"
	"github.com/tillpoint/till/internal/receipt"
	"github.com/tillpoint/till/internal/sales"
	"github.com/tillpoint/till/internal/scheduler"
	"github.com/tillpoint/till/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (2 modes: file, env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("tilld starting", "terminal", cfg.Terminal.ID, "upstream", cfg.Upstream.BaseURL)

	// 1. Open the local store and the durable queue
	if err := os.MkdirAll(cfg.Terminal.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", "dir", cfg.Terminal.DataDir, "error", err)
		os.Exit(1)
	}
	dbPath := filepath.Join(cfg.Terminal.DataDir, "till.db")
	store, err := kv.OpenSQLite(dbPath)
	if err != nil {
		logger.Error("failed to open local store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	q := queue.New(store, logger.With("component", "queue"))

	// 2. Upstream client
	client := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Token,
		upstream.WithTimeout(time.Duration(cfg.Upstream.TimeoutSec)*time.Second))

	// 3. Alert channels
	var notifiers []alert.Notifier
	if sc := cfg.Alerts.Slack; sc != nil {
		n, err := alert.NewSlack(sc.Token, sc.Channel)
		if err != nil {
			logger.Error("failed to init slack alerts", "error", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, n)
		logger.Info("slack alerts enabled", "channel", sc.Channel)
	}
	if tc := cfg.Alerts.Telegram; tc != nil {
		n, err := alert.NewTelegram(tc.Token, tc.ChatID)
		if err != nil {
			logger.Error("failed to init telegram alerts", "error", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, n)
		logger.Info("telegram alerts enabled")
	}
	alerts := alert.NewFanout(cfg.Terminal.ID, logger.With("component", "alerts"), notifiers...)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Network watcher + sale orchestrator. The watcher's online event
	// drains the queue through the service, and the service reads the
	// watcher for its status snapshot, so svc is forward-declared here.
	var svc *sales.Service
	onOnline := func(ctx context.Context) {
		rep, err := svc.SyncQueued(ctx)
		if err != nil {
			logger.Warn("online drain skipped", "error", err)
			return
		}
		if rep.Attempted > 0 {
			logger.Info("online drain finished",
				"attempted", rep.Attempted, "synced", rep.Synced, "failed", rep.Failed)
		}
	}
	watcher := netwatch.New(client.Healthy,
		time.Duration(cfg.Upstream.ProbeIntervSec)*time.Second,
		onOnline, logger.With("component", "netwatch"))
	svc = sales.New(q, client, watcher, alerts, logger.With("component", "sales"))

	go safeGo(logger, "netwatch", func() { watcher.Start(ctx) })

	// 5. Safety-net drain schedule
	if cfg.Sync.Schedule != "" {
		sched := scheduler.New(logger.With("component", "scheduler"))
		err := sched.Add(cfg.Sync.Schedule, func() {
			if !watcher.Online() {
				return
			}
			if _, err := svc.SyncQueued(ctx); err != nil {
				logger.Debug("scheduled drain skipped", "error", err)
			}
		})
		if err != nil {
			logger.Error("invalid sync schedule", "schedule", cfg.Sync.Schedule, "error", err)
			os.Exit(1)
		}
		go safeGo(logger, "scheduler", func() { sched.Start(ctx) })
		logger.Info("sync schedule active", "schedule", cfg.Sync.Schedule)
	}

	// 6. Local API server
	receipts := receipt.New(cfg.Terminal.StoreName, cfg.Terminal.ID)
	apiSrv := apiPkg.NewServer(svc, q, receipts, apiPkg.Config{
		Host:     cfg.API.Host,
		Port:     cfg.API.Port,
		Key:      cfg.API.Key,
		Terminal: cfg.Terminal.ID,
	}, logger.With("component", "api"), logBuf)
	svc.SetOnChange(apiSrv.BroadcastStatus)

	go safeGo(logger, "api-server", func() { apiSrv.Start(ctx) })
	logger.Info("api server started", "port", cfg.API.Port)

	// 7. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("tilld stopped")
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
