// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"smeinsights/internal/cache"
	"smeinsights/internal/engine"
	"smeinsights/internal/middleware"
	"smeinsights/internal/models"
)

// homepageLimit is how many recent posts the homepage lists.
const homepageLimit = 20

// PostSource reads published posts.
type PostSource interface {
	FindBySlug(slug string) (*models.Content, error)
	ListRecentPublished(limit int) ([]models.Content, error)
}

// CategorySource resolves post categories.
type CategorySource interface {
	FindByID(id uuid.UUID) (*models.Category, error)
}

// MediaSource resolves featured images.
type MediaSource interface {
	FindByID(id uuid.UUID) (*models.Media, error)
}

// PageStore is the full-page HTML cache. *cache.PageCache satisfies it.
type PageStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
}

// Public groups handlers for the public site. Rendered pages go through
// the Valkey page cache; generating a post invalidates its page and the
// homepage.
type Public struct {
	engine     *engine.Engine
	posts      PostSource
	categories CategorySource
	media      MediaSource
	pages      PageStore
	urlFor     func(key string) string
}

// NewPublic creates a new Public handler group. urlFor maps stored media
// keys to public URLs and may be nil when S3 is not configured.
func NewPublic(eng *engine.Engine, posts PostSource, categories CategorySource, media MediaSource, pages PageStore, urlFor func(key string) string) *Public {
	return &Public{
		engine:     eng,
		posts:      posts,
		categories: categories,
		media:      media,
		pages:      pages,
		urlFor:     urlFor,
	}
}

func writeHTML(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(body)
}

// Homepage lists the most recent published posts.
func (p *Public) Homepage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if cached, ok := p.pages.Get(ctx, cache.HomepageKey()); ok {
		writeHTML(w, http.StatusOK, cached)
		return
	}

	posts, err := p.posts.ListRecentPublished(homepageLimit)
	if err != nil {
		slog.Error("list recent posts failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	categories := make(map[uuid.UUID]string)
	images := make(map[uuid.UUID]*engine.FeaturedImage)
	for _, post := range posts {
		if post.CategoryID != nil {
			if _, seen := categories[*post.CategoryID]; !seen {
				if c := p.category(*post.CategoryID); c != nil {
					categories[c.ID] = c.Name
				}
			}
		}
		if img := p.featuredImage(&post); img != nil {
			images[post.ID] = img
		}
	}

	rendered, err := p.engine.RenderPostList(posts, categories, images)
	if err != nil {
		slog.Error("render homepage failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	p.pages.Set(ctx, cache.HomepageKey(), rendered)
	writeHTML(w, http.StatusOK, rendered)
}

// Post renders a published post by slug. Drafts are only visible to
// signed-in operators and are never cached.
func (p *Public) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	if cached, ok := p.pages.Get(ctx, slug); ok {
		writeHTML(w, http.StatusOK, cached)
		return
	}

	content, err := p.posts.FindBySlug(slug)
	if err != nil {
		slog.Error("find post by slug failed", "error", err, "slug", slug)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	preview := content != nil && !content.IsPublished() && middleware.SessionFromCtx(ctx) != nil
	if content == nil || content.Type != models.ContentTypePost || (!content.IsPublished() && !preview) {
		p.notFound(w)
		return
	}

	var category *models.Category
	if content.CategoryID != nil {
		category = p.category(*content.CategoryID)
	}

	rendered, err := p.engine.RenderPost(content, category, p.featuredImage(content))
	if err != nil {
		slog.Error("render post failed", "error", err, "slug", slug)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !preview {
		p.pages.Set(ctx, slug, rendered)
	}
	writeHTML(w, http.StatusOK, rendered)
}

func (p *Public) notFound(w http.ResponseWriter) {
	body, err := p.engine.RenderNotFound()
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeHTML(w, http.StatusNotFound, body)
}

func (p *Public) category(id uuid.UUID) *models.Category {
	c, err := p.categories.FindByID(id)
	if err != nil {
		slog.Warn("category lookup failed", "error", err, "id", id)
		return nil
	}
	return c
}

func (p *Public) featuredImage(c *models.Content) *engine.FeaturedImage {
	if c.FeaturedImageID == nil || p.media == nil {
		return nil
	}
	m, err := p.media.FindByID(*c.FeaturedImageID)
	if err != nil {
		slog.Warn("featured image lookup failed", "error", err, "content", c.ID)
		return nil
	}
	return engine.ImageFromMedia(m, p.urlFor)
}
