// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generator assembles generated posts: it picks a topic, asks the
// model router for an article, parses and reflows the response, files it
// under a category, stores it and attaches a featured image.
package generator

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/ai"
	"smeinsights/internal/models"
	"smeinsights/internal/slug"
)

// ErrPostInsert means the article was generated but could not be stored.
var ErrPostInsert = errors.New("post insert failed")

// Generator is the model router as seen by the assembler.
type Generator interface {
	GenerateContent(ctx context.Context, prompt, requestedModel string) (*ai.GenerationResult, error)
}

// RouterFactory builds a Generator for the current settings. Keys and the
// fallback toggle are read on every post so settings changes apply at once.
type RouterFactory func(s models.GenerationSettings) Generator

// NewRouterFactory returns a factory that fills the provider keys and the
// fallback toggle into base.
func NewRouterFactory(base ai.Config) RouterFactory {
	return func(s models.GenerationSettings) Generator {
		cfg := base
		cfg.Keys = map[ai.Provider]string{
			ai.ProviderOpenAI:    s.OpenAIKey,
			ai.ProviderAnthropic: s.AnthropicKey,
			ai.ProviderGoogle:    s.GeminiKey,
			ai.ProviderMistral:   s.MistralKey,
		}
		cfg.EnableFallback = s.EnableFallback
		return ai.NewRouter(cfg)
	}
}

// SettingsSource reads the settings record.
type SettingsSource interface {
	All() (models.SiteSettings, error)
}

// ContentRepo stores generated posts.
type ContentRepo interface {
	UniqueSlug(base string) (string, error)
	Create(c *models.Content) (*models.Content, error)
	SetFeaturedImage(contentID, mediaID uuid.UUID) error
}

// CategoryRepo resolves category names to rows.
type CategoryRepo interface {
	FindOrCreate(name string) (*models.Category, error)
}

// AuthorSource supplies the user generated posts are attributed to.
type AuthorSource interface {
	FirstAdmin() (*models.User, error)
}

// CountInvalidator drops the cached daily post count.
type CountInvalidator interface {
	Invalidate(ctx context.Context, now time.Time)
}

// PageInvalidator drops cached public pages for a post.
type PageInvalidator interface {
	InvalidatePost(ctx context.Context, slug string)
}

// ImageSideloader turns an image URL into a media record.
type ImageSideloader interface {
	Sideload(ctx context.Context, imageURL, alt string) (*models.Media, error)
}

// Deps are the collaborators of an Assembler. Counter and Pages may be nil.
type Deps struct {
	Settings   SettingsSource
	Router     RouterFactory
	Content    ContentRepo
	Categories CategoryRepo
	Authors    AuthorSource
	Images     ImageSideloader
	Counter    CountInvalidator
	Pages      PageInvalidator
}

// Status is the outcome of one CreatePost call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is what CreatePost reports back to the scheduler and the admin
// API. Message is HTML.
type Result struct {
	Status       Status    `json:"status"`
	Message      string    `json:"message"`
	PostID       uuid.UUID `json:"post_id,omitempty"`
	ModelUsed    string    `json:"model_used,omitempty"`
	FallbackUsed bool      `json:"fallback_used"`
}

// Assembler creates one generated post per CreatePost call.
type Assembler struct {
	cfg  *GenerationConfig
	deps Deps
	intn func(n int) int
	now  func() time.Time
}

// NewAssembler returns an Assembler drawing topics and images from cfg.
func NewAssembler(cfg *GenerationConfig, deps Deps) *Assembler {
	return &Assembler{
		cfg:  cfg,
		deps: deps,
		intn: rand.IntN,
		now:  time.Now,
	}
}

// CreatePost generates, stores and illustrates one post. On failure the
// returned Result carries the error message and the error is returned too.
func (a *Assembler) CreatePost(ctx context.Context) (*Result, error) {
	res, err := a.createPost(ctx)
	if err != nil {
		slog.Error("post generation failed", "error", err)
		return &Result{Status: StatusError, Message: html.EscapeString(err.Error())}, err
	}
	return res, nil
}

func (a *Assembler) createPost(ctx context.Context) (*Result, error) {
	raw, err := a.deps.Settings.All()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings := models.GenerationSettingsFrom(raw)

	topic := a.cfg.PickTopic(a.intn)
	prompt := BuildPrompt(settings.PromptTemplate, topic)

	slog.Info("generating post", "model", settings.Model, "category", topic.Category, "niche", topic.Niche)
	gen, err := a.deps.Router(settings).GenerateContent(ctx, prompt, settings.Model)
	if err != nil {
		return nil, err
	}

	article, err := ParseArticle(gen.Content)
	if err != nil {
		return nil, fmt.Errorf("parse response from %s: %w", gen.ModelUsed, err)
	}

	post, err := a.insert(ctx, article, settings, topic, gen.ModelUsed)
	if err != nil {
		return nil, err
	}
	slog.Info("post created", "id", post.ID, "slug", post.Slug, "model", gen.ModelUsed, "fallback", gen.FallbackUsed)

	a.attachFeaturedImage(ctx, post, settings.FeaturedImageURL)

	return &Result{
		Status:       StatusSuccess,
		Message:      successMessage(article.Title, gen.ModelUsed, gen.FallbackUsed),
		PostID:       post.ID,
		ModelUsed:    gen.ModelUsed,
		FallbackUsed: gen.FallbackUsed,
	}, nil
}

// categoryName returns the category a post is filed under: the drawn
// topic category for the shipped prompt, the configured fallback otherwise.
func categoryName(settings models.GenerationSettings, topic Topic) string {
	if IsDefaultTemplate(settings.PromptTemplate) {
		return topic.Category
	}
	return settings.FallbackCategory
}

func (a *Assembler) insert(ctx context.Context, article *Article, settings models.GenerationSettings, topic Topic, modelUsed string) (*models.Content, error) {
	author, err := a.deps.Authors.FirstAdmin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostInsert, err)
	}
	if author == nil {
		return nil, fmt.Errorf("%w: no admin user to attribute the post to", ErrPostInsert)
	}

	base := slug.Generate(article.Title)
	if base == "" {
		base = "post"
	}
	postSlug, err := a.deps.Content.UniqueSlug(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostInsert, err)
	}

	meta := MetaDescription(article.ContentHTML, MetaDescriptionLength)
	model := modelUsed
	post := &models.Content{
		Type:            models.ContentTypePost,
		Title:           article.Title,
		Slug:            postSlug,
		Body:            article.ContentHTML,
		Status:          settings.PostStatus,
		MetaDescription: &meta,
		AIGenerated:     true,
		ModelUsed:       &model,
		AuthorID:        author.ID,
	}

	name := categoryName(settings, topic)
	if cat, err := a.deps.Categories.FindOrCreate(name); err != nil {
		slog.Warn("category lookup failed, post stays uncategorized", "category", name, "error", err)
	} else {
		post.CategoryID = &cat.ID
	}

	created, err := a.deps.Content.Create(post)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostInsert, err)
	}

	if a.deps.Counter != nil {
		a.deps.Counter.Invalidate(ctx, a.now())
	}
	if a.deps.Pages != nil {
		a.deps.Pages.InvalidatePost(ctx, created.Slug)
	}
	return created, nil
}

// attachFeaturedImage tries the configured or pooled image, then the
// fallback image. Failures are logged and never fail the post.
func (a *Assembler) attachFeaturedImage(ctx context.Context, post *models.Content, configuredURL string) {
	imageURL := configuredURL
	if imageURL == "" {
		imageURL = a.cfg.PoolImage(post.Title)
	}

	err := a.setFeaturedImage(ctx, post, imageURL)
	if err == nil {
		return
	}
	slog.Warn("featured image failed, trying fallback", "post", post.ID, "url", imageURL, "error", err)

	if a.cfg.FallbackImage == "" || a.cfg.FallbackImage == imageURL {
		return
	}
	if err := a.setFeaturedImage(ctx, post, a.cfg.FallbackImage); err != nil {
		slog.Error("fallback featured image failed", "post", post.ID, "error", err)
	}
}

func (a *Assembler) setFeaturedImage(ctx context.Context, post *models.Content, imageURL string) error {
	media, err := a.deps.Images.Sideload(ctx, imageURL, post.Title)
	if err != nil {
		return err
	}
	if err := a.deps.Content.SetFeaturedImage(post.ID, media.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrSetThumbnail, err)
	}
	return nil
}

func successMessage(title, model string, fallback bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Post &quot;%s&quot; created successfully using <strong>%s</strong>",
		html.EscapeString(title), html.EscapeString(model))
	if fallback {
		sb.WriteString(" (fallback to Gemini)")
	}
	return sb.String()
}
