// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"smeinsights/internal/models"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func imageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(data)
		case "/untyped":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(data)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html><body>nope</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSideloadRemoteWithoutStorage(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	media := newFakeMedia()
	s := NewSideloader(srv.Client(), nil, media)

	m, err := s.Sideload(context.Background(), srv.URL+"/photo.png?w=1200", "Alt text")
	if err != nil {
		t.Fatalf("Sideload: %v", err)
	}
	if !m.IsRemote() || m.SourceURL != srv.URL+"/photo.png?w=1200" {
		t.Errorf("expected remote media, got %+v", m)
	}
	if m.ContentType != "image/png" || m.Filename != "photo.png" {
		t.Errorf("content type %q filename %q", m.ContentType, m.Filename)
	}
	if m.AltText == nil || *m.AltText != "Alt text" {
		t.Errorf("alt text not stored")
	}
}

func TestSideloadUploadsOriginalAndThumbnail(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	objects := &fakeObjects{}
	s := NewSideloader(srv.Client(), objects, newFakeMedia())

	m, err := s.Sideload(context.Background(), srv.URL+"/photo.png", "")
	if err != nil {
		t.Fatalf("Sideload: %v", err)
	}
	if len(objects.keys) != 2 {
		t.Fatalf("expected original + thumbnail uploads, got %v", objects.keys)
	}
	if m.S3Key != objects.keys[0] || !strings.HasSuffix(m.S3Key, ".png") {
		t.Errorf("S3Key = %q", m.S3Key)
	}
	if m.ThumbS3Key == nil || !strings.HasSuffix(*m.ThumbS3Key, "_thumb.jpg") {
		t.Errorf("ThumbS3Key = %v", m.ThumbS3Key)
	}
	if objects.types[1] != "image/jpeg" || m.Bucket != "media" {
		t.Errorf("thumb type %q bucket %q", objects.types[1], m.Bucket)
	}
}

func TestSideloadSniffsUntypedImages(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	s := NewSideloader(srv.Client(), nil, newFakeMedia())

	m, err := s.Sideload(context.Background(), srv.URL+"/untyped", "")
	if err != nil {
		t.Fatalf("Sideload: %v", err)
	}
	if m.ContentType != "image/png" {
		t.Errorf("ContentType = %q", m.ContentType)
	}
}

func TestSideloadReusesExistingMedia(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	media := newFakeMedia()
	s := NewSideloader(srv.Client(), nil, media)

	first, err := s.Sideload(context.Background(), srv.URL+"/photo.png", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Sideload(context.Background(), srv.URL+"/photo.png", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || atomic.LoadInt32(&hits) != 1 || len(media.created) != 1 {
		t.Errorf("expected a single download and row, got %d hits, %d rows", hits, len(media.created))
	}
}

func TestSideloadErrors(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)

	tests := []struct {
		name    string
		url     string
		objects ObjectStore
		media   *fakeMedia
		want    error
	}{
		{"invalid url", "not a url", nil, newFakeMedia(), ErrImageDownload},
		{"not found", srv.URL + "/missing.png", nil, newFakeMedia(), ErrImageDownload},
		{"html page", srv.URL + "/page.html", nil, newFakeMedia(), ErrNotAnImage},
		{"upload fails", srv.URL + "/photo.png", &fakeObjects{err: errBoom}, newFakeMedia(), ErrSideload},
		{"insert fails", srv.URL + "/photo.png", nil, &fakeMedia{bySource: map[string]*models.Media{}, err: errBoom}, ErrSideload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSideloader(srv.Client(), tt.objects, tt.media)
			_, err := s.Sideload(context.Background(), tt.url, "")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSideloadRemovesUploadsWhenInsertFails(t *testing.T) {
	var hits int32
	srv := imageServer(t, &hits)
	objects := &fakeObjects{}
	media := &fakeMedia{bySource: map[string]*models.Media{}, err: errBoom}
	s := NewSideloader(srv.Client(), objects, media)

	_, err := s.Sideload(context.Background(), srv.URL+"/photo.png", "")
	if !errors.Is(err, ErrSideload) {
		t.Fatalf("err = %v, want ErrSideload", err)
	}
	if len(objects.keys) != 2 {
		t.Fatalf("expected original + thumbnail uploads, got %v", objects.keys)
	}
	if len(objects.deleted) != 2 || objects.deleted[0] != objects.keys[0] || objects.deleted[1] != objects.keys[1] {
		t.Errorf("deleted %v, want %v", objects.deleted, objects.keys)
	}
}

func TestRemoteFilename(t *testing.T) {
	tests := map[string]string{
		"https://images.example.com/photo-1.jpg?w=1200": "photo-1.jpg",
		"https://images.example.com/a/b/c.png#frag":     "c.png",
		"https://images.example.com/":                   "featured-image",
	}
	for in, want := range tests {
		if got := remoteFilename(in); got != want {
			t.Errorf("remoteFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
