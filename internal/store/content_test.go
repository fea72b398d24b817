package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/models"
)

// testAuthorID returns a valid user ID for content creation.
func testAuthorID(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	if err := db.QueryRow("SELECT id FROM users LIMIT 1").Scan(&id); err != nil {
		t.Fatalf("no users in database (run seed first): %v", err)
	}
	return id
}

// findContent loads a row of any status by ID.
func findContent(t *testing.T, db *sql.DB, id uuid.UUID) *models.Content {
	t.Helper()
	c, err := scanContent(db.QueryRow(`SELECT `+contentColumns+` FROM content WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	return c
}

func TestContentStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	authorID := testAuthorID(t, db)

	slug := "test-create-content-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanContent(t, db, slug) })

	content := &models.Content{
		Type:     models.ContentTypePost,
		Title:    "Test Post",
		Slug:     slug,
		Body:     "<p>Test body</p>",
		Status:   models.ContentStatusDraft,
		AuthorID: authorID,
	}

	created, err := s.Create(content)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}
	if created.Title != "Test Post" {
		t.Errorf("title: got %q, want %q", created.Title, "Test Post")
	}
	if created.Status != models.ContentStatusDraft {
		t.Errorf("status: got %q, want %q", created.Status, models.ContentStatusDraft)
	}
	if created.PublishedAt != nil {
		t.Error("expected nil published_at for draft")
	}

	found := findContent(t, db, created.ID)
	if found == nil {
		t.Fatal("expected content, got nil")
	}
	if found.Slug != slug {
		t.Errorf("slug: got %q, want %q", found.Slug, slug)
	}
}

func TestContentStoreCreatePublished(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	authorID := testAuthorID(t, db)

	slug := "test-pub-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanContent(t, db, slug) })

	content := &models.Content{
		Type:     models.ContentTypePost,
		Title:    "Published Post",
		Slug:     slug,
		Body:     "<p>Published</p>",
		Status:   models.ContentStatusPublished,
		AuthorID: authorID,
	}

	created, err := s.Create(content)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.PublishedAt == nil {
		t.Error("expected non-nil published_at for published content")
	}
}

func TestContentStoreFindBySlug(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	authorID := testAuthorID(t, db)

	slug := "test-slug-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanContent(t, db, slug) })

	// Create draft; should NOT be findable by slug.
	s.Create(&models.Content{
		Type: models.ContentTypePost, Title: "Draft", Slug: slug,
		Body: "draft", Status: models.ContentStatusDraft, AuthorID: authorID,
	})

	found, err := s.FindBySlug(slug)
	if err != nil {
		t.Fatalf("FindBySlug (draft): %v", err)
	}
	if found != nil {
		t.Error("expected nil for draft content via FindBySlug")
	}

	// Update to published.
	db.Exec("UPDATE content SET status = 'published', published_at = NOW() WHERE slug = $1", slug)

	found, err = s.FindBySlug(slug)
	if err != nil {
		t.Fatalf("FindBySlug (published): %v", err)
	}
	if found == nil {
		t.Fatal("expected content after publishing")
	}
	if found.Slug != slug {
		t.Errorf("slug: got %q, want %q", found.Slug, slug)
	}

	// Not found.
	found, _ = s.FindBySlug("nonexistent-slug-xyz")
	if found != nil {
		t.Error("expected nil for nonexistent slug")
	}
}

func TestContentStoreGeneratedFieldsRoundTrip(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	cats := NewCategoryStore(db)
	authorID := testAuthorID(t, db)

	slug := "test-generated-" + uuid.NewString()[:8]
	catName := "Store Test " + uuid.NewString()[:8]
	t.Cleanup(func() {
		cleanContent(t, db, slug)
		cleanCategories(t, db, catName)
	})

	cat, err := cats.FindOrCreate(catName)
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	meta := "A short summary."
	model := "gpt-4o-mini"
	created, err := s.Create(&models.Content{
		Title: "Generated", Slug: slug, Body: "<p>Body</p>",
		Status: models.ContentStatusPublished, AuthorID: authorID,
		MetaDescription: &meta, CategoryID: &cat.ID,
		AIGenerated: true, ModelUsed: &model,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.Type != models.ContentTypePost {
		t.Errorf("type: got %q, want post by default", created.Type)
	}
	if !created.AIGenerated {
		t.Error("expected ai_generated = true")
	}
	if created.ModelUsed == nil || *created.ModelUsed != model {
		t.Errorf("model_used: got %v, want %q", created.ModelUsed, model)
	}
	if created.CategoryID == nil || *created.CategoryID != cat.ID {
		t.Errorf("category_id: got %v, want %s", created.CategoryID, cat.ID)
	}
	if created.MetaDescription == nil || *created.MetaDescription != meta {
		t.Errorf("meta_description: got %v, want %q", created.MetaDescription, meta)
	}
}

func TestContentStoreUniqueSlug(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	authorID := testAuthorID(t, db)

	base := "test-unique-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanContent(t, db, base, base+"-2") })

	got, err := s.UniqueSlug(base)
	if err != nil {
		t.Fatalf("UniqueSlug (free): %v", err)
	}
	if got != base {
		t.Errorf("free slug: got %q, want %q", got, base)
	}

	if _, err := s.Create(&models.Content{
		Title: "Taken", Slug: base, Status: models.ContentStatusDraft, AuthorID: authorID,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err = s.UniqueSlug(base)
	if err != nil {
		t.Fatalf("UniqueSlug (taken): %v", err)
	}
	if got != base+"-2" {
		t.Errorf("taken slug: got %q, want %q", got, base+"-2")
	}
}

func TestContentStoreSetFeaturedImage(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	media := NewMediaStore(db)
	authorID := testAuthorID(t, db)

	slug := "test-featured-" + uuid.NewString()[:8]
	source := "https://images.example.test/" + uuid.NewString()[:8] + ".jpg"
	t.Cleanup(func() {
		cleanContent(t, db, slug)
		db.Exec("DELETE FROM media WHERE source_url = $1", source)
	})

	post, err := s.Create(&models.Content{
		Title: "Featured", Slug: slug, Status: models.ContentStatusDraft, AuthorID: authorID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	img, err := media.Create(&models.Media{
		Filename: "photo.jpg", ContentType: "image/jpeg", SourceURL: source,
	})
	if err != nil {
		t.Fatalf("media Create: %v", err)
	}

	if err := s.SetFeaturedImage(post.ID, img.ID); err != nil {
		t.Fatalf("SetFeaturedImage: %v", err)
	}

	found := findContent(t, db, post.ID)
	if found.FeaturedImageID == nil || *found.FeaturedImageID != img.ID {
		t.Errorf("featured_image_id: got %v, want %s", found.FeaturedImageID, img.ID)
	}

	if err := s.SetFeaturedImage(uuid.New(), img.ID); err == nil {
		t.Error("expected error for unknown content id")
	}
}

func TestContentStoreCountGeneratedSince(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	authorID := testAuthorID(t, db)

	since := time.Now().Add(-time.Second)
	before, err := s.CountGeneratedSince(since)
	if err != nil {
		t.Fatalf("CountGeneratedSince: %v", err)
	}

	generated := "test-count-gen-" + uuid.NewString()[:8]
	manual := "test-count-man-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanContent(t, db, generated, manual) })

	s.Create(&models.Content{
		Title: "Generated", Slug: generated, Status: models.ContentStatusDraft,
		AuthorID: authorID, AIGenerated: true,
	})
	s.Create(&models.Content{
		Title: "Manual", Slug: manual, Status: models.ContentStatusDraft, AuthorID: authorID,
	})

	after, err := s.CountGeneratedSince(since)
	if err != nil {
		t.Fatalf("CountGeneratedSince: %v", err)
	}
	if after != before+1 {
		t.Errorf("count: got %d, want %d", after, before+1)
	}
}

func TestContentStoreListRecentPublished(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	authorID := testAuthorID(t, db)

	slug := "test-publist-" + uuid.NewString()[:8]
	draft := "test-publist-draft-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanContent(t, db, slug, draft) })

	s.Create(&models.Content{
		Type: models.ContentTypePost, Title: "Published", Slug: slug,
		Body: "body", Status: models.ContentStatusPublished, AuthorID: authorID,
	})
	s.Create(&models.Content{
		Type: models.ContentTypePost, Title: "Draft", Slug: draft,
		Body: "body", Status: models.ContentStatusDraft, AuthorID: authorID,
	})

	published, err := s.ListRecentPublished(50)
	if err != nil {
		t.Fatalf("ListRecentPublished: %v", err)
	}

	var sawPublished, sawDraft bool
	for _, p := range published {
		switch p.Slug {
		case slug:
			sawPublished = true
		case draft:
			sawDraft = true
		}
	}
	if !sawPublished {
		t.Error("expected published post in list")
	}
	if sawDraft {
		t.Error("draft must not be listed")
	}
}

func newTestPost(slug string, authorID uuid.UUID, categoryID *uuid.UUID) *models.Content {
	return &models.Content{
		Type: models.ContentTypePost, Title: "Test " + slug, Slug: slug,
		Body: "<p>body</p>", Status: models.ContentStatusDraft,
		AuthorID: authorID, CategoryID: categoryID,
	}
}
