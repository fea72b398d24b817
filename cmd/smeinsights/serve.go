// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smeinsights/internal/engine"
	"smeinsights/internal/handlers"
	"smeinsights/internal/middleware"
	"smeinsights/internal/router"
	"smeinsights/internal/session"
)

const (
	loginLimit  = 10
	runNowLimit = 5
	limitWindow = time.Minute

	// shutdownGrace gives active requests time to complete.
	shutdownGrace = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the generation scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Non-development environments mark cookies Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(a.valkey, secureCookies)

	eng, err := engine.New(engine.DefaultSiteName)
	if err != nil {
		return err
	}

	loginLimiter := middleware.NewRateLimiter(loginLimit, limitWindow, middleware.ClientIP)
	defer loginLimiter.Stop()
	runNowLimiter := middleware.NewRateLimiter(runNowLimit, limitWindow, middleware.SessionUser)
	defer runNowLimiter.Stop()

	opts := router.Options{
		Sessions: sessionStore,
		Auth:     handlers.NewAuth(sessionStore, a.users),
		Admin:    handlers.NewAdmin(a.scheduler, a.counter, a.runs, a.settings),
		Public:   handlers.NewPublic(eng, a.content, a.categories, a.media, a.pages, a.mediaURL()),
		Health: handlers.Health(map[string]handlers.Check{
			"postgres": a.db.PingContext,
			"valkey":   func(ctx context.Context) error { return a.valkey.Ping(ctx).Err() },
		}),
		LoginLimiter:  loginLimiter,
		RunNowLimiter: runNowLimiter,
		SecureCookies: secureCookies,
	}
	if cfg.SelfHealEnabled {
		opts.SelfHeal = a.scheduler
	}

	if cfg.SchedulerEnabled {
		go a.scheduler.Start(ctx)
	} else {
		slog.Info("in-process scheduler disabled")
	}

	// WriteTimeout must cover run-now, which waits on the model and the
	// image download.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.New(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("server stopped gracefully")
	return nil
}

// exitOnSignal cancels ctx on SIGINT/SIGTERM for the one-shot commands.
func exitOnSignal(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
