// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/models"
)

func strPtr(s string) *string { return &s }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.now = func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestNewParsesAllTemplates(t *testing.T) {
	e := newTestEngine(t)
	for _, name := range []string{"post", "list", "notfound"} {
		if e.templates[name] == nil {
			t.Errorf("template %q not parsed", name)
		}
	}
	if e.siteName != DefaultSiteName {
		t.Errorf("siteName = %q, want %q", e.siteName, DefaultSiteName)
	}
}

func TestRenderPost(t *testing.T) {
	e := newTestEngine(t)
	published := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)
	content := &models.Content{
		ID:              uuid.New(),
		Title:           "Cash Flow <Basics>",
		Slug:            "cash-flow-basics",
		Body:            "<p>Keep a <strong>buffer</strong>.</p>",
		MetaDescription: strPtr(`Plan "ahead".`),
		AIGenerated:     true,
		ModelUsed:       strPtr("gpt-4o-mini"),
		PublishedAt:     &published,
	}
	category := &models.Category{Name: "Finance", Slug: "finance"}
	img := &FeaturedImage{URL: "https://images.example.com/a.jpg", Alt: "Desk"}

	out, err := e.RenderPost(content, category, img)
	if err != nil {
		t.Fatalf("RenderPost: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		"<title>Cash Flow &lt;Basics&gt; | SME Insights</title>",
		"<p>Keep a <strong>buffer</strong>.</p>",
		`<meta name="description" content="Plan &#34;ahead&#34;.">`,
		`<span class="category">Finance</span>`,
		`src="https://images.example.com/a.jpg"`,
		"May 3, 2026",
		"Generated with gpt-4o-mini.",
		"&copy; 2026",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q\n%s", want, html)
		}
	}
}

func TestRenderPostWithoutOptionalParts(t *testing.T) {
	e := newTestEngine(t)
	out, err := e.RenderPost(&models.Content{Title: "Plain", Slug: "plain", Body: "<p>x</p>"}, nil, nil)
	if err != nil {
		t.Fatalf("RenderPost: %v", err)
	}
	html := string(out)
	for _, unwanted := range []string{"<figure>", `class="category"`, "Generated with", `name="description"`} {
		if strings.Contains(html, unwanted) {
			t.Errorf("output should not contain %q", unwanted)
		}
	}
}

func TestRenderPostList(t *testing.T) {
	e := newTestEngine(t)
	catID := uuid.New()
	withImage := models.Content{ID: uuid.New(), Title: "First", Slug: "first", CategoryID: &catID, MetaDescription: strPtr("Short summary")}
	plain := models.Content{ID: uuid.New(), Title: "Second", Slug: "second"}

	out, err := e.RenderPostList(
		[]models.Content{withImage, plain},
		map[uuid.UUID]string{catID: "Marketing"},
		map[uuid.UUID]*FeaturedImage{withImage.ID: {URL: "https://x/full.jpg", Thumb: "https://x/thumb.jpg"}},
	)
	if err != nil {
		t.Fatalf("RenderPostList: %v", err)
	}
	html := string(out)

	for _, want := range []string{`href="/first"`, `href="/second"`, "Marketing", "Short summary", `src="https://x/thumb.jpg"`} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Index(html, "First") > strings.Index(html, "Second") {
		t.Error("posts should keep their order")
	}
}

func TestRenderPostListEmpty(t *testing.T) {
	e := newTestEngine(t)
	out, err := e.RenderPostList(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "No insights published yet.") {
		t.Error("empty listing should say so")
	}
}

func TestRenderNotFound(t *testing.T) {
	e := newTestEngine(t)
	out, err := e.RenderNotFound()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "Page not found") {
		t.Error("missing not-found heading")
	}
}

func TestImageFromMedia(t *testing.T) {
	urlFor := func(key string) string { return "https://cdn.example.com/" + key }

	tests := []struct {
		name  string
		media *models.Media
		want  *FeaturedImage
	}{
		{"nil media", nil, nil},
		{
			"remote media",
			&models.Media{SourceURL: "https://images.unsplash.com/p.jpg", AltText: strPtr("Team")},
			&FeaturedImage{URL: "https://images.unsplash.com/p.jpg", Thumb: "https://images.unsplash.com/p.jpg", Alt: "Team"},
		},
		{
			"stored media with thumbnail",
			&models.Media{S3Key: "media/2026/05/a.jpg", ThumbS3Key: strPtr("media/2026/05/a_thumb.jpg"), SourceURL: "https://src/a.jpg"},
			&FeaturedImage{URL: "https://cdn.example.com/media/2026/05/a.jpg", Thumb: "https://cdn.example.com/media/2026/05/a_thumb.jpg"},
		},
		{
			"stored media without thumbnail",
			&models.Media{S3Key: "media/2026/05/b.png"},
			&FeaturedImage{URL: "https://cdn.example.com/media/2026/05/b.png", Thumb: "https://cdn.example.com/media/2026/05/b.png"},
		},
		{"no usable url", &models.Media{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImageFromMedia(tt.media, urlFor)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("got %+v, want %+v", *got, *tt.want)
			}
		})
	}
}
