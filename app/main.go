package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"rssalert/app/api"
	"rssalert/app/cfg"
	"rssalert/app/feed"
	"rssalert/app/notify"
	"rssalert/app/runlog"
	"rssalert/app/runner"
	"rssalert/app/store"
	"rssalert/app/subscription"
	"rssalert/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting rssalert", "version", appCfg.Version)

	// The cache persist contract is full-overwrite; two processes
	// sharing one cache would clobber each other. Hold an exclusive
	// lock for the whole lifetime of the process.
	runLock := flock.New(appCfg.LockPath)
	locked, err := runLock.TryLock()
	if err != nil {
		slog.Error("Failed to acquire run lock", "path", appCfg.LockPath, "error", err)
		os.Exit(1)
	}
	if !locked {
		slog.Error("Another instance is already running", "path", appCfg.LockPath)
		os.Exit(1)
	}
	defer runLock.Unlock()

	loader := subscription.NewLoader(appCfg.OPMLURL, appCfg.OPMLPath, appCfg.FeedsDir, userAgent(appCfg))
	subs, err := loader.Load(context.Background())
	if err != nil {
		slog.Error("Failed to load subscriptions", "error", err)
		os.Exit(1)
	}
	if len(subs) == 0 {
		slog.Warn("Subscription list is empty, nothing to do")
		return
	}

	st, err := openStore(appCfg)
	if err != nil {
		slog.Error("Failed to open dedup store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ids, err := st.Load()
	if err != nil {
		// An unreadable cache means renotification, not data loss.
		slog.Error("Failed to load dedup cache, starting empty", "error", err)
		ids = nil
	}
	cache := store.NewCache(ids)
	slog.Info("Dedup cache loaded", "backend", appCfg.CacheBackend, "ids", cache.Len())

	sender := notify.NewSMTPSender(appCfg.SMTPHost, appCfg.SMTPPort,
		appCfg.SMTPUser, appCfg.SMTPPassword, appCfg.MailFrom, appCfg.MailTo)
	engine := notify.NewEngine(sender, notify.WithMaxSendAttempts(appCfg.SendRetries))

	fetcherOpts := []feed.FetcherOption{}
	if appCfg.UserAgent != "" {
		fetcherOpts = append(fetcherOpts, feed.WithUserAgent(appCfg.UserAgent))
	}

	r := runner.New(
		feed.NewFetcher(fetcherOpts...),
		feed.NewParser(),
		feed.NewNormalizer(),
		notify.NewComposer(),
		engine,
		cache,
		st,
		runlog.NewWriter(appCfg.LogDir),
		appCfg.WorkerCount,
	)
	slog.Info("Runner initialized", "feeds", len(subs), "shape", r.Describe())

	if appCfg.Interval <= 0 {
		r.Run(context.Background(), subs)
		return
	}

	runDaemon(appCfg, r, subs)
}

func userAgent(appCfg *cfg.Cfg) string {
	if appCfg.UserAgent != "" {
		return appCfg.UserAgent
	}
	return "rssalert/" + appCfg.Version
}

func openStore(appCfg *cfg.Cfg) (store.Store, error) {
	if appCfg.CacheBackend == "sqlite" {
		return store.NewSQLStore(appCfg.CachePath)
	}
	return store.NewFileStore(appCfg.CachePath), nil
}

func runDaemon(appCfg *cfg.Cfg, r *runner.Runner, subs []subscription.Subscription) {
	scheduler := tasks.NewScheduler(r, subs, time.Duration(appCfg.Interval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)

	if appCfg.Port != "" {
		handler := api.NewHandler(r, subs, appCfg.Version)
		httpServer = &http.Server{
			Addr:         ":" + appCfg.Port,
			Handler:      api.NewServer(handler),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Status API listening", "port", appCfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Daemon started", "interval", appCfg.Interval)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully...")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}

	// Scheduler is stopped via defer; its in-flight run finishes first.
	slog.Info("Shutdown complete")
}
