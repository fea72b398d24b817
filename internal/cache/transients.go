// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dailyCountPrefix = KeyPrefix + "daily_count:"
	modelListPrefix  = KeyPrefix + "gemini_models:"
	selfHealKey      = KeyPrefix + "last_self_heal"

	// ModelListTTL is how long a provider's model listing is trusted.
	ModelListTTL = 24 * time.Hour

	// SelfHealWindow suppresses page-load triggers right after one fired.
	SelfHealWindow = 5 * time.Minute
)

// GeneratedCounter counts generated posts created since a point in time.
type GeneratedCounter interface {
	CountGeneratedSince(since time.Time) (int, error)
}

// DailyCounter caches today's generated-post count until local midnight.
// The authoritative number comes from the database on a miss.
type DailyCounter struct {
	client *redis.Client
	source GeneratedCounter
}

// NewDailyCounter returns a counter backed by source.
func NewDailyCounter(client *redis.Client, source GeneratedCounter) *DailyCounter {
	return &DailyCounter{client: client, source: source}
}

func dailyCountKey(now time.Time) string {
	return dailyCountPrefix + now.Format("2006-01-02")
}

// startOfDay returns local midnight for now.
func startOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// UntilMidnight is the time left before the next local midnight.
func UntilMidnight(now time.Time) time.Duration {
	return startOfDay(now).AddDate(0, 0, 1).Sub(now)
}

// Count returns how many posts were generated today.
func (c *DailyCounter) Count(ctx context.Context, now time.Time) (int, error) {
	key := dailyCountKey(now)
	n, err := c.client.Get(ctx, key).Int()
	if err == nil {
		return n, nil
	}
	if err != redis.Nil {
		slog.Warn("daily counter read failed, recounting", "error", err)
	}

	n, err = c.source.CountGeneratedSince(startOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("count today's posts: %w", err)
	}
	if err := c.client.Set(ctx, key, n, UntilMidnight(now)).Err(); err != nil {
		slog.Warn("daily counter write failed", "error", err)
	}
	return n, nil
}

// Invalidate drops today's cached count so the next read recounts.
func (c *DailyCounter) Invalidate(ctx context.Context, now time.Time) {
	if err := c.client.Del(ctx, dailyCountKey(now)).Err(); err != nil {
		slog.Warn("daily counter invalidate failed", "error", err)
	}
}

// ModelListCache stores the model names a provider key can use. Keys are
// hashed so the API key never appears in Valkey.
type ModelListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewModelListCache returns a cache with the given TTL (ModelListTTL if zero).
func NewModelListCache(client *redis.Client, ttl time.Duration) *ModelListCache {
	if ttl == 0 {
		ttl = ModelListTTL
	}
	return &ModelListCache{client: client, ttl: ttl}
}

func modelListKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return modelListPrefix + hex.EncodeToString(sum[:])[:16]
}

// Get returns the cached model list for apiKey.
func (m *ModelListCache) Get(ctx context.Context, apiKey string) ([]string, bool) {
	raw, err := m.client.Get(ctx, modelListKey(apiKey)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("model list cache get error", "error", err)
		}
		return nil, false
	}
	var models []string
	if err := json.Unmarshal(raw, &models); err != nil {
		return nil, false
	}
	return models, true
}

// Set stores the model list for apiKey.
func (m *ModelListCache) Set(ctx context.Context, apiKey string, models []string) {
	raw, err := json.Marshal(models)
	if err != nil {
		return
	}
	if err := m.client.Set(ctx, modelListKey(apiKey), raw, m.ttl).Err(); err != nil {
		slog.Warn("model list cache set error", "error", err)
	}
}

// RunMarker remembers that a page-load triggered run just happened.
type RunMarker struct {
	client *redis.Client
	window time.Duration
}

// NewRunMarker returns a marker that lasts window (SelfHealWindow if zero).
func NewRunMarker(client *redis.Client, window time.Duration) *RunMarker {
	if window == 0 {
		window = SelfHealWindow
	}
	return &RunMarker{client: client, window: window}
}

// Mark sets the marker unless it is already present. It reports whether
// this call set it, so only one of several concurrent page loads proceeds.
func (r *RunMarker) Mark(ctx context.Context) (bool, error) {
	ok, err := r.client.SetNX(ctx, selfHealKey, time.Now().Unix(), r.window).Result()
	if err != nil {
		return false, fmt.Errorf("set run marker: %w", err)
	}
	return ok, nil
}
