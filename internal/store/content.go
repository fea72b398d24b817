// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/models"
)

// ContentStore handles all content-related database operations.
// Generated articles are stored as posts in the content table.
type ContentStore struct {
	db *sql.DB
}

// NewContentStore creates a new ContentStore with the given database connection.
func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

const contentColumns = `id, type, title, slug, body, status, meta_description,
	category_id, featured_image_id, ai_generated, model_used, author_id,
	published_at, created_at, updated_at`

// maxSlugAttempts bounds the numeric suffix search in UniqueSlug.
const maxSlugAttempts = 50

func scanContent(scanner interface{ Scan(...any) error }) (*models.Content, error) {
	var c models.Content
	err := scanner.Scan(
		&c.ID, &c.Type, &c.Title, &c.Slug, &c.Body, &c.Status, &c.MetaDescription,
		&c.CategoryID, &c.FeaturedImageID, &c.AIGenerated, &c.ModelUsed, &c.AuthorID,
		&c.PublishedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ContentStore) list(query string, args ...any) ([]models.Content, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindBySlug retrieves a published content item by its slug. Used for public page rendering.
func (s *ContentStore) FindBySlug(slug string) (*models.Content, error) {
	row := s.db.QueryRow(`
		SELECT `+contentColumns+`
		FROM content WHERE slug = $1 AND status = 'published'
	`, slug)
	c, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content by slug: %w", err)
	}
	return c, nil
}

// SlugExists reports whether any content row already uses the slug.
func (s *ContentStore) SlugExists(slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM content WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// UniqueSlug returns base if it is free, otherwise the first free base-2,
// base-3, ... variant.
func (s *ContentStore) UniqueSlug(base string) (string, error) {
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.SlugExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

// Create inserts a new content item and returns it with the generated ID.
func (s *ContentStore) Create(c *models.Content) (*models.Content, error) {
	if c.Type == "" {
		c.Type = models.ContentTypePost
	}
	// If publishing, set the published_at timestamp.
	if c.Status == models.ContentStatusPublished && c.PublishedAt == nil {
		now := time.Now()
		c.PublishedAt = &now
	}

	row := s.db.QueryRow(`
		INSERT INTO content (type, title, slug, body, status, meta_description,
		                     category_id, featured_image_id, ai_generated, model_used,
		                     author_id, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+contentColumns,
		c.Type, c.Title, c.Slug, c.Body, c.Status, c.MetaDescription,
		c.CategoryID, c.FeaturedImageID, c.AIGenerated, c.ModelUsed,
		c.AuthorID, c.PublishedAt,
	)
	result, err := scanContent(row)
	if err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	return result, nil
}

// SetFeaturedImage attaches a media item to a content row.
func (s *ContentStore) SetFeaturedImage(contentID, mediaID uuid.UUID) error {
	res, err := s.db.Exec(`
		UPDATE content SET featured_image_id = $1, updated_at = NOW() WHERE id = $2
	`, mediaID, contentID)
	if err != nil {
		return fmt.Errorf("set featured image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set featured image: content %s not found", contentID)
	}
	return nil
}

// ListRecentPublished returns the newest published posts, newest first.
func (s *ContentStore) ListRecentPublished(limit int) ([]models.Content, error) {
	items, err := s.list(`
		SELECT `+contentColumns+`
		FROM content
		WHERE type = 'post' AND status = 'published'
		ORDER BY published_at DESC NULLS LAST
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent published: %w", err)
	}
	return items, nil
}

// CountGeneratedSince returns how many AI-generated posts were created at or
// after since. The daily counter falls back to this when its transient is gone.
func (s *ContentStore) CountGeneratedSince(since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM content WHERE ai_generated AND created_at >= $1
	`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count generated content: %w", err)
	}
	return count, nil
}
