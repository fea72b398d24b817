// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"smeinsights/internal/ai"
	"smeinsights/internal/cache"
	"smeinsights/internal/config"
	"smeinsights/internal/database"
	"smeinsights/internal/generator"
	"smeinsights/internal/models"
	"smeinsights/internal/scheduler"
	"smeinsights/internal/storage"
	"smeinsights/internal/store"
)

// app holds the connections and services shared by the commands.
type app struct {
	db     *sql.DB
	valkey *redis.Client

	settings   *store.SiteSettingStore
	content    *store.ContentStore
	users      *store.UserStore
	categories *store.CategoryStore
	media      *store.MediaStore
	runs       *store.GenerationRunStore

	objects   *storage.Client
	pages     *cache.PageCache
	counter   *cache.DailyCounter
	scheduler *scheduler.Scheduler
}

// openDB connects to PostgreSQL, applies pending migrations and seeds the
// first admin and default settings.
func openDB(c *config.Config) (*sql.DB, error) {
	db, err := database.Connect(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.Seed(db, database.SeedOptions{AdminEmail: c.AdminEmail, AdminPassword: c.AdminPassword}); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed database: %w", err)
	}
	return db, nil
}

// envProviderKeys maps provider keys from the environment onto settings.
// Empty values are left out so they never mask a stored key.
func envProviderKeys(c *config.Config) map[string]string {
	out := make(map[string]string)
	for key, v := range map[string]string{
		models.SettingOpenAIKey:    c.OpenAIKey,
		models.SettingAnthropicKey: c.AnthropicKey,
		models.SettingGeminiKey:    c.GeminiKey,
		models.SettingMistralKey:   c.MistralKey,
	} {
		if v != "" {
			out[key] = v
		}
	}
	return out
}

// aiConfig is the router template; keys are filled per post from settings.
func aiConfig(c *config.Config, modelCache ai.ModelCache) ai.Config {
	return ai.Config{
		Endpoints: ai.Endpoints{
			OpenAI:    c.OpenAIBaseURL,
			Anthropic: c.AnthropicBaseURL,
			Google:    c.GeminiBaseURL,
			Mistral:   c.MistralBaseURL,
		},
		ModelCache: modelCache,
		HTTPClient: &http.Client{},
	}
}

// openApp wires every service the commands use.
func openApp(c *config.Config) (*app, error) {
	db, err := openDB(c)
	if err != nil {
		return nil, err
	}
	a := &app{
		db:         db,
		settings:   store.NewSiteSettingStore(db),
		content:    store.NewContentStore(db),
		users:      store.NewUserStore(db),
		categories: store.NewCategoryStore(db),
		media:      store.NewMediaStore(db),
		runs:       store.NewGenerationRunStore(db),
	}

	if keys := envProviderKeys(c); len(keys) > 0 {
		if err := a.settings.SetMissing(keys); err != nil {
			a.Close()
			return nil, fmt.Errorf("seed provider keys: %w", err)
		}
	}

	a.valkey, err = cache.ConnectValkey(c.ValkeyHost, c.ValkeyPort, c.ValkeyPassword, c.ValkeyDB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect valkey: %w", err)
	}

	// S3 is optional; without it featured images point at their source.
	var objects generator.ObjectStore
	if c.S3Endpoint != "" && c.S3AccessKey != "" {
		a.objects, err = storage.New(c.S3Endpoint, c.S3Region, c.S3AccessKey, c.S3SecretKey, c.S3Bucket, c.S3PublicURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		objects = a.objects
		slog.Info("s3 storage connected", "endpoint", c.S3Endpoint, "bucket", c.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, featured images stay remote")
	}

	genCfg, err := generator.LoadConfig(c.GenerationConfigPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load generation config: %w", err)
	}

	a.pages = cache.NewPageCache(a.valkey, cache.DefaultPageTTL)
	a.counter = cache.NewDailyCounter(a.valkey, a.content)

	assembler := generator.NewAssembler(genCfg, generator.Deps{
		Settings:   a.settings,
		Router:     generator.NewRouterFactory(aiConfig(c, cache.NewModelListCache(a.valkey, cache.ModelListTTL))),
		Content:    a.content,
		Categories: a.categories,
		Authors:    a.users,
		Images:     generator.NewSideloader(nil, objects, a.media),
		Counter:    a.counter,
		Pages:      a.pages,
	})

	a.scheduler = scheduler.New(scheduler.Deps{
		Settings:  a.settings,
		Lock:      cache.NewLock(a.valkey, cache.BatchLockKey, cache.DefaultLockTTL),
		Counter:   a.counter,
		Assembler: assembler,
		Runs:      a.runs,
		Marker:    cache.NewRunMarker(a.valkey, cache.SelfHealWindow),
	})

	return a, nil
}

// mediaURL maps stored keys to public URLs, or nil without S3.
func (a *app) mediaURL() func(string) string {
	if a.objects == nil {
		return nil
	}
	return a.objects.FileURL
}

func (a *app) Close() {
	if a.valkey != nil {
		a.valkey.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
