// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/ai"
	"smeinsights/internal/models"
)

type fakeSettings struct {
	values models.SiteSettings
	err    error
}

func (f *fakeSettings) All() (models.SiteSettings, error) { return f.values, f.err }

type fakeRouter struct {
	result   *ai.GenerationResult
	err      error
	prompts  []string
	models   []string
	settings models.GenerationSettings
}

func (f *fakeRouter) factory(s models.GenerationSettings) Generator {
	f.settings = s
	return f
}

func (f *fakeRouter) GenerateContent(_ context.Context, prompt, model string) (*ai.GenerationResult, error) {
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	return f.result, f.err
}

type fakeContent struct {
	mu        sync.Mutex
	created   []*models.Content
	featured  map[uuid.UUID]uuid.UUID
	createErr error
	setErr    error
	taken     map[string]bool
}

func newFakeContent() *fakeContent {
	return &fakeContent{featured: map[uuid.UUID]uuid.UUID{}, taken: map[string]bool{}}
}

func (f *fakeContent) UniqueSlug(base string) (string, error) {
	if f.taken[base] {
		return base + "-2", nil
	}
	return base, nil
}

func (f *fakeContent) Create(c *models.Content) (*models.Content, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	f.created = append(f.created, &cp)
	return &cp, nil
}

func (f *fakeContent) SetFeaturedImage(contentID, mediaID uuid.UUID) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.featured[contentID] = mediaID
	return nil
}

type fakeCategories struct {
	names []string
	err   error
}

func (f *fakeCategories) FindOrCreate(name string) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.names = append(f.names, name)
	return &models.Category{ID: uuid.New(), Name: name}, nil
}

type fakeAuthors struct {
	user *models.User
	err  error
}

func (f *fakeAuthors) FirstAdmin() (*models.User, error) { return f.user, f.err }

type fakeImages struct {
	urls []string
	fail map[string]error
}

func (f *fakeImages) Sideload(_ context.Context, imageURL, _ string) (*models.Media, error) {
	f.urls = append(f.urls, imageURL)
	if err := f.fail[imageURL]; err != nil {
		return nil, err
	}
	return &models.Media{ID: uuid.New(), SourceURL: imageURL}, nil
}

type fakeCounter struct{ invalidations int }

func (f *fakeCounter) Invalidate(context.Context, time.Time) { f.invalidations++ }

type fakePages struct{ slugs []string }

func (f *fakePages) InvalidatePost(_ context.Context, slug string) { f.slugs = append(f.slugs, slug) }

type fakeMedia struct {
	bySource map[string]*models.Media
	created  []*models.Media
	err      error
}

func newFakeMedia() *fakeMedia { return &fakeMedia{bySource: map[string]*models.Media{}} }

func (f *fakeMedia) Create(m *models.Media) (*models.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *m
	cp.ID = uuid.New()
	f.created = append(f.created, &cp)
	f.bySource[cp.SourceURL] = &cp
	return &cp, nil
}

func (f *fakeMedia) FindBySourceURL(url string) (*models.Media, error) {
	return f.bySource[url], nil
}

type fakeObjects struct {
	keys    []string
	types   []string
	deleted []string
	err     error
}

func (f *fakeObjects) Upload(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if f.err != nil {
		return f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	f.types = append(f.types, contentType)
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) Bucket() string { return "media" }

var errBoom = errors.New("boom")
