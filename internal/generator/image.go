// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/imaging"
	"smeinsights/internal/models"
	"smeinsights/internal/storage"
)

var (
	ErrImageDownload = errors.New("image download failed")
	ErrNotAnImage    = errors.New("downloaded file is not an image")
	ErrSideload      = errors.New("image sideload failed")
	ErrSetThumbnail  = errors.New("could not set featured image")
)

const (
	// DefaultImageTimeout bounds one image download.
	DefaultImageTimeout = 30 * time.Second

	// MaxImageBytes caps how much of a download is read.
	MaxImageBytes = 15 << 20
)

// ObjectStore is the slice of the S3 client the sideloader uses.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// MediaRepo persists media rows.
type MediaRepo interface {
	Create(m *models.Media) (*models.Media, error)
	FindBySourceURL(url string) (*models.Media, error)
}

// Sideloader downloads a remote image and turns it into a media record.
// With object storage configured the original and a JPEG thumbnail are
// uploaded; without it the record points at the remote URL.
type Sideloader struct {
	client  *http.Client
	storage ObjectStore
	media   MediaRepo
	timeout time.Duration
	now     func() time.Time
}

// NewSideloader creates a sideloader. storage may be nil.
func NewSideloader(client *http.Client, objects ObjectStore, media MediaRepo) *Sideloader {
	if client == nil {
		client = &http.Client{}
	}
	return &Sideloader{
		client:  client,
		storage: objects,
		media:   media,
		timeout: DefaultImageTimeout,
		now:     time.Now,
	}
}

// Sideload returns the media record for imageURL, downloading it on first
// use. Errors wrap ErrImageDownload, ErrNotAnImage or ErrSideload.
func (s *Sideloader) Sideload(ctx context.Context, imageURL, alt string) (*models.Media, error) {
	if !isHTTPURL(imageURL) {
		return nil, fmt.Errorf("%w: invalid url %q", ErrImageDownload, imageURL)
	}

	existing, err := s.media.FindBySourceURL(imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSideload, err)
	}
	if existing != nil {
		return existing, nil
	}

	data, contentType, err := s.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	m := &models.Media{
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		SourceURL:   imageURL,
	}
	if !m.IsImage() {
		return nil, fmt.Errorf("%w: content type %q", ErrNotAnImage, contentType)
	}
	if alt != "" {
		m.AltText = &alt
	}

	if s.storage == nil {
		m.Filename = remoteFilename(imageURL)
	} else if err := s.upload(ctx, m, data); err != nil {
		return nil, err
	}

	created, err := s.media.Create(m)
	if err != nil {
		s.discard(ctx, m)
		return nil, fmt.Errorf("%w: %v", ErrSideload, err)
	}
	slog.Info("featured image sideloaded", "url", imageURL, "size", created.HumanSize(), "remote", created.IsRemote())
	return created, nil
}

func (s *Sideloader) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDownload, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: status %d", ErrImageDownload, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDownload, err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("%w: larger than %d bytes", ErrImageDownload, MaxImageBytes)
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediaType(http.DetectContentType(data))
	}
	return data, contentType, nil
}

// upload stores the original and, when it decodes, a JPEG thumbnail.
func (s *Sideloader) upload(ctx context.Context, m *models.Media, data []byte) error {
	now := s.now()
	fileID := uuid.New().String()
	ext := extensionFor(m.ContentType)
	key := storage.MediaKey(now, fileID, "", ext)

	if err := s.storage.Upload(ctx, key, m.ContentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("%w: %v", ErrSideload, err)
	}
	m.Filename = fileID + ext
	m.Bucket = s.storage.Bucket()
	m.S3Key = key

	variants, err := imaging.GenerateVariants(data, imaging.DefaultVariants[:1])
	if err != nil {
		slog.Warn("featured image thumbnail failed", "error", err, "url", m.SourceURL)
		return nil
	}
	thumb := variants[0]
	thumbKey := storage.MediaKey(now, fileID, thumb.Name, ".jpg")
	if err := s.storage.Upload(ctx, thumbKey, thumb.ContentType, bytes.NewReader(thumb.Data), int64(len(thumb.Data))); err != nil {
		slog.Warn("featured image thumbnail upload failed", "error", err, "key", thumbKey)
		return nil
	}
	m.ThumbS3Key = &thumbKey
	return nil
}

// discard removes the objects upload stored for a media row that was
// never written.
func (s *Sideloader) discard(ctx context.Context, m *models.Media) {
	if s.storage == nil || m.S3Key == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	keys := []string{m.S3Key}
	if m.ThumbS3Key != nil {
		keys = append(keys, *m.ThumbS3Key)
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			slog.Warn("orphaned media object", "error", err, "key", key)
		}
	}
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".img"
	}
}

// remoteFilename is the last path segment of the URL, without a query.
func remoteFilename(imageURL string) string {
	u := imageURL
	if i := strings.IndexAny(u, "?#"); i != -1 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "/"); i != -1 {
		u = u[i+1:]
	}
	if u == "" {
		return "featured-image"
	}
	return u
}
