// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine renders the public pages: the homepage listing of recent
// insights and the single post page. Templates are embedded and compiled
// once at startup.
package engine

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultSiteName is used when no site name is configured.
const DefaultSiteName = "SME Insights"

// FeaturedImage holds what a template needs to show a post image.
type FeaturedImage struct {
	URL   string // original or remote URL
	Thumb string // thumbnail URL, falls back to URL
	Alt   string
}

// PageData holds all variables available to the post template.
type PageData struct {
	SiteName        string
	Title           string
	Body            template.HTML // assembled, reflowed HTML
	MetaDescription string
	Category        string
	CategorySlug    string
	Slug            string
	PublishedAt     string
	ModelUsed       string
	AIGenerated     bool
	Image           *FeaturedImage
	Year            int
}

// PostItem represents a single post in the homepage listing.
type PostItem struct {
	Title       string
	Slug        string
	Excerpt     string
	Category    string
	PublishedAt string
	Image       *FeaturedImage
}

// ListData holds variables available to the listing template.
type ListData struct {
	SiteName string
	Title    string
	Posts    []PostItem
	Year     int
}

// Engine renders public pages from the embedded templates.
type Engine struct {
	siteName  string
	templates map[string]*template.Template
	now       func() time.Time
}

// New parses every page template together with the shared layout.
func New(siteName string) (*Engine, error) {
	if siteName == "" {
		siteName = DefaultSiteName
	}
	e := &Engine{
		siteName:  siteName,
		templates: make(map[string]*template.Template),
		now:       time.Now,
	}
	for _, name := range []string{"post", "list", "notfound"} {
		tmpl, err := template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		e.templates[name] = tmpl
	}
	return e, nil
}

// ImageFromMedia builds template image data for a media row. urlFor maps
// an S3 key to its public URL; remote media use their source URL.
func ImageFromMedia(m *models.Media, urlFor func(key string) string) *FeaturedImage {
	if m == nil {
		return nil
	}
	img := &FeaturedImage{URL: m.SourceURL}
	if !m.IsRemote() && urlFor != nil {
		img.URL = urlFor(m.S3Key)
		if m.ThumbS3Key != nil {
			img.Thumb = urlFor(*m.ThumbS3Key)
		}
	}
	if img.Thumb == "" {
		img.Thumb = img.URL
	}
	if m.AltText != nil {
		img.Alt = *m.AltText
	}
	if img.URL == "" {
		return nil
	}
	return img
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("January 2, 2006")
}

// RenderPost renders a single post. category and img may be nil.
func (e *Engine) RenderPost(content *models.Content, category *models.Category, img *FeaturedImage) ([]byte, error) {
	data := PageData{
		SiteName:    e.siteName,
		Title:       content.Title,
		Body:        template.HTML(content.Body),
		Slug:        content.Slug,
		PublishedAt: formatDate(content.PublishedAt),
		AIGenerated: content.AIGenerated,
		Image:       img,
		Year:        e.now().Year(),
	}
	if content.MetaDescription != nil {
		data.MetaDescription = *content.MetaDescription
	}
	if content.ModelUsed != nil {
		data.ModelUsed = *content.ModelUsed
	}
	if category != nil {
		data.Category = category.Name
		data.CategorySlug = category.Slug
	}
	return e.render("post", data)
}

// RenderPostList renders the homepage listing. categories and images are
// keyed by category ID and content ID and may miss entries.
func (e *Engine) RenderPostList(posts []models.Content, categories map[uuid.UUID]string, images map[uuid.UUID]*FeaturedImage) ([]byte, error) {
	items := make([]PostItem, 0, len(posts))
	for _, p := range posts {
		item := PostItem{
			Title:       p.Title,
			Slug:        p.Slug,
			PublishedAt: formatDate(p.PublishedAt),
			Image:       images[p.ID],
		}
		if p.MetaDescription != nil {
			item.Excerpt = *p.MetaDescription
		}
		if p.CategoryID != nil {
			item.Category = categories[*p.CategoryID]
		}
		items = append(items, item)
	}

	return e.render("list", ListData{
		SiteName: e.siteName,
		Title:    "Latest insights",
		Posts:    items,
		Year:     e.now().Year(),
	})
}

// RenderNotFound renders the 404 page.
func (e *Engine) RenderNotFound() ([]byte, error) {
	return e.render("notfound", ListData{SiteName: e.siteName, Title: "Not found", Year: e.now().Year()})
}

func (e *Engine) render(name string, data any) ([]byte, error) {
	tmpl, ok := e.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
