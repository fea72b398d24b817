// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// SME Insights server. Routes are split into the admin JSON API and the
// public pages, each with its own middleware stack.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"smeinsights/internal/handlers"
	"smeinsights/internal/middleware"
)

// Options carries the handler groups and middleware dependencies.
type Options struct {
	Sessions middleware.SessionLoader
	Auth     *handlers.Auth
	Admin    *handlers.Admin
	Public   *handlers.Public
	Health   http.HandlerFunc

	// SelfHeal, when set, lets public page loads start an overdue batch.
	SelfHeal middleware.OverdueChecker

	// Optional limiters for the login and run-now endpoints.
	LoginLimiter  *middleware.RateLimiter
	RunNowLimiter *middleware.RateLimiter

	SecureCookies bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(opts.Sessions))

	health := opts.Health
	if health == nil {
		health = handlers.Health(nil)
	}
	r.Get("/health", health)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.NewCSRF(opts.SecureCookies))

		r.Get("/csrf", csrfToken)
		r.With(limit(opts.LoginLimiter)).Post("/login", opts.Auth.Login)
		r.Post("/logout", opts.Auth.Logout)

		// 2FA enrolment and verification need a session but not 2FA.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/2fa/setup", opts.Auth.TwoFASetup)
			r.Post("/2fa/verify", opts.Auth.TwoFAVerify)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Use(middleware.RequireAdmin)

			r.Route("/generate", func(r chi.Router) {
				r.With(limit(opts.RunNowLimiter)).Post("/run-now", opts.Admin.RunNow)
				r.Get("/status", opts.Admin.Status)
				r.Get("/runs/{id}", opts.Admin.Run)
				r.Post("/schedule", opts.Admin.Schedule)
			})

			r.Get("/settings", opts.Admin.Settings)
			r.Put("/settings", opts.Admin.UpdateSettings)
		})
	})

	r.Group(func(r chi.Router) {
		if opts.SelfHeal != nil {
			r.Use(middleware.SelfHeal(opts.SelfHeal, middleware.DefaultSelfHealEvery))
		}
		r.Get("/", opts.Public.Homepage)
		r.Get("/{slug}", opts.Public.Post)
	})

	return r
}

// limit returns rl's middleware, or a pass-through when rl is nil.
func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

// csrfToken hands API clients the token to echo on state-changing calls.
func csrfToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"csrf_token": middleware.CSRFTokenFromCtx(r.Context()),
	})
}
