// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentType distinguishes between posts and pages in the unified content table.
type ContentType string

const (
	ContentTypePost ContentType = "post"
	ContentTypePage ContentType = "page"
)

// ContentStatus represents the publishing state of a content item.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
)

// ParseContentStatus maps a settings value onto a status. Anything other
// than "draft" publishes, matching the shipped default.
func ParseContentStatus(s string) ContentStatus {
	if s == string(ContentStatusDraft) {
		return ContentStatusDraft
	}
	return ContentStatusPublished
}

// Content represents a post or page. Machine-written posts carry
// AIGenerated = true and the model that produced them.
type Content struct {
	ID              uuid.UUID     `json:"id"`
	Type            ContentType   `json:"type"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	Body            string        `json:"body"`
	Status          ContentStatus `json:"status"`
	MetaDescription *string       `json:"meta_description,omitempty"`
	CategoryID      *uuid.UUID    `json:"category_id,omitempty"`
	FeaturedImageID *uuid.UUID    `json:"featured_image_id,omitempty"`
	AIGenerated     bool          `json:"ai_generated"`
	ModelUsed       *string       `json:"model_used,omitempty"`
	AuthorID        uuid.UUID     `json:"author_id"`
	PublishedAt     *time.Time    `json:"published_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsPublished returns true if the content item is in published status.
func (c *Content) IsPublished() bool {
	return c.Status == ContentStatusPublished
}
