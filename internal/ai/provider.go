// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai routes generation requests to LLM providers (OpenAI,
// Anthropic, Google Gemini, Mistral). A Router resolves the provider from
// the model id, walks a chain of candidate models, and fails over from
// OpenAI to Gemini when OpenAI reports rate or quota exhaustion.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultGenerateTimeout bounds a single model attempt.
	DefaultGenerateTimeout = 45 * time.Second

	// DefaultListTimeout bounds the Gemini model listing call.
	DefaultListTimeout = 8 * time.Second
)

// GenerationResult is a successful router call.
type GenerationResult struct {
	Content      string
	ModelUsed    string
	Provider     Provider
	FallbackUsed bool
}

// ModelCache remembers the Gemini model listing per API key.
type ModelCache interface {
	Get(ctx context.Context, apiKey string) ([]string, bool)
	Set(ctx context.Context, apiKey string, models []string)
}

// Endpoints overrides provider base URLs. Empty fields use the public APIs.
type Endpoints struct {
	OpenAI    string
	Anthropic string
	Google    string
	Mistral   string
}

// Config holds everything a Router needs. Keys are read per call from
// settings, so a Router is cheap to build for every generation.
type Config struct {
	Keys           map[Provider]string
	EnableFallback bool

	Routes         []ProviderRoute
	Alternatives   map[string][]string
	FallbackModels []string
	Endpoints      Endpoints
	ModelCache     ModelCache
	HTTPClient     *http.Client

	GenerateTimeout time.Duration
	ListTimeout     time.Duration
}

// Router implements provider selection, candidate fallback and the
// OpenAI-to-Gemini failover.
type Router struct {
	cfg Config
}

// NewRouter fills in defaults for every zero field of cfg.
func NewRouter(cfg Config) *Router {
	if cfg.Routes == nil {
		cfg.Routes = DefaultRoutes
	}
	if cfg.Alternatives == nil {
		cfg.Alternatives = DefaultAlternatives
	}
	if cfg.FallbackModels == nil {
		cfg.FallbackModels = DefaultFallbackModels
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.GenerateTimeout == 0 {
		cfg.GenerateTimeout = DefaultGenerateTimeout
	}
	if cfg.ListTimeout == 0 {
		cfg.ListTimeout = DefaultListTimeout
	}
	return &Router{cfg: cfg}
}

// candidate is one (API version, model) attempt. Version is only used
// by Gemini.
type candidate struct {
	version string
	model   string
}

type attemptFunc func(ctx context.Context, c candidate) (string, error)

// GenerateContent produces text for prompt, starting with requestedModel.
// Every failure is an *Error.
func (r *Router) GenerateContent(ctx context.Context, prompt, requestedModel string) (*GenerationResult, error) {
	provider, ok := Resolve(r.cfg.Routes, requestedModel)
	if !ok {
		return nil, &Error{Kind: KindInvalidModel, Model: requestedModel,
			Message: fmt.Sprintf("unsupported model %q", requestedModel)}
	}

	text, used, err := r.generateWith(ctx, provider, prompt, requestedModel)
	if err == nil {
		return &GenerationResult{Content: text, ModelUsed: used, Provider: provider}, nil
	}

	if provider != ProviderOpenAI || !IsQuota(err) {
		return nil, err
	}
	return r.fallbackToGemini(ctx, prompt, err)
}

func (r *Router) generateWith(ctx context.Context, p Provider, prompt, requested string) (string, string, error) {
	key := r.cfg.Keys[p]
	if key == "" {
		return "", "", &Error{Kind: KindMissingKey, Provider: p, Model: requested, Message: "API key not configured"}
	}

	alts := r.cfg.Alternatives[requested]
	switch p {
	case ProviderOpenAI:
		c := newOpenAI(key, r.cfg.Endpoints.OpenAI, r.cfg.HTTPClient)
		return r.try(ctx, p, plain(Candidates(requested, alts)), modelOnly(prompt, c.complete))
	case ProviderAnthropic:
		c := newClaude(key, r.cfg.Endpoints.Anthropic, r.cfg.HTTPClient)
		return r.try(ctx, p, plain(Candidates(requested, alts)), modelOnly(prompt, c.complete))
	case ProviderMistral:
		c := newMistral(key, r.cfg.Endpoints.Mistral, r.cfg.HTTPClient)
		return r.try(ctx, p, plain(Candidates(requested, alts)), modelOnly(prompt, c.complete))
	case ProviderGoogle:
		c := newGemini(key, r.cfg.Endpoints.Google, r.cfg.HTTPClient)
		listed := r.geminiModels(ctx, c)
		return r.try(ctx, p, sweep(Candidates(requested, listed, alts)), geminiAttempt(prompt, c))
	}
	return "", "", &Error{Kind: KindInvalidModel, Provider: p, Model: requested, Message: "provider not supported"}
}

// try runs candidates in order. Success returns immediately; terminal
// errors stop the loop; Gemini 404s are skipped silently; other errors
// are remembered and the next candidate is tried.
func (r *Router) try(ctx context.Context, p Provider, cands []candidate, attempt attemptFunc) (string, string, error) {
	var last *Error
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return "", "", &Error{Kind: KindTransport, Provider: p, Model: c.model, Message: "cancelled", Err: err}
		}

		actx, cancel := context.WithTimeout(ctx, r.cfg.GenerateTimeout)
		text, err := attempt(actx, c)
		cancel()

		if err == nil {
			if text != "" {
				slog.Debug("ai generation succeeded", "provider", p, "model", c.model, "version", c.version)
				return text, c.model, nil
			}
			slog.Debug("ai empty response, trying next model", "provider", p, "model", c.model)
			continue
		}

		var aerr *Error
		if !errors.As(err, &aerr) {
			aerr = &Error{Kind: KindTransport, Provider: p, Model: c.model, Message: "request failed", Err: err}
		}
		if aerr.terminal() {
			return "", "", aerr
		}
		if p == ProviderGoogle && aerr.Status == http.StatusNotFound {
			continue
		}
		slog.Debug("ai attempt failed", "provider", p, "model", c.model, "version", c.version, "error", aerr)
		last = aerr
	}

	if last != nil {
		return "", "", last
	}
	return "", "", &Error{Kind: KindNoModels, Provider: p, Message: "no models available"}
}

// geminiModels returns the cached or freshly listed Gemini model ids.
// A failed listing is logged and yields nil; generation still proceeds
// on the static candidates.
func (r *Router) geminiModels(ctx context.Context, c *geminiClient) []string {
	if r.cfg.ModelCache != nil {
		if models, ok := r.cfg.ModelCache.Get(ctx, c.apiKey); ok {
			return models
		}
	}

	lctx, cancel := context.WithTimeout(ctx, r.cfg.ListTimeout)
	defer cancel()
	models, err := c.listModels(lctx)
	if err != nil {
		slog.Warn("gemini model listing failed", "error", err)
		return nil
	}
	if r.cfg.ModelCache != nil && len(models) > 0 {
		r.cfg.ModelCache.Set(ctx, c.apiKey, models)
	}
	return models
}

func (r *Router) fallbackToGemini(ctx context.Context, prompt string, cause error) (*GenerationResult, error) {
	if !r.cfg.EnableFallback {
		return nil, &Error{Kind: KindFallbackUnavailable, Provider: ProviderOpenAI,
			Message: "quota exhausted and fallback to Gemini is disabled in settings", Err: cause}
	}
	key := r.cfg.Keys[ProviderGoogle]
	if key == "" {
		return nil, &Error{Kind: KindFallbackUnavailable, Provider: ProviderOpenAI,
			Message: "quota exhausted and no Gemini API key is configured for fallback", Err: cause}
	}

	slog.Warn("openai quota exhausted, falling back to gemini", "error", cause)

	c := newGemini(key, r.cfg.Endpoints.Google, r.cfg.HTTPClient)
	text, used, err := r.try(ctx, ProviderGoogle, sweep(r.cfg.FallbackModels), geminiAttempt(prompt, c))
	if err != nil {
		return nil, &Error{Kind: KindFallbackUnavailable, Provider: ProviderGoogle,
			Message: "fallback to Gemini failed", Err: fmt.Errorf("%w; after %w", err, cause)}
	}
	return &GenerationResult{Content: text, ModelUsed: used, Provider: ProviderGoogle, FallbackUsed: true}, nil
}

func plain(models []string) []candidate {
	out := make([]candidate, len(models))
	for i, m := range models {
		out[i] = candidate{model: m}
	}
	return out
}

// sweep expands models across every Gemini API version, version-major.
func sweep(models []string) []candidate {
	out := make([]candidate, 0, len(models)*len(geminiVersions))
	for _, v := range geminiVersions {
		for _, m := range models {
			out = append(out, candidate{version: v, model: m})
		}
	}
	return out
}

func modelOnly(prompt string, complete func(ctx context.Context, model, prompt string) (string, error)) attemptFunc {
	return func(ctx context.Context, c candidate) (string, error) {
		return complete(ctx, c.model, prompt)
	}
}

func geminiAttempt(prompt string, g *geminiClient) attemptFunc {
	return func(ctx context.Context, c candidate) (string, error) {
		return g.generate(ctx, c.version, c.model, prompt)
	}
}
