// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging generates resized variants of sideloaded featured images.
// Sources may be JPEG, PNG, GIF or WebP; variants are JPEG. Variants wider
// than the source are skipped to avoid upscaling.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// Variant describes a single output size.
type Variant struct {
	Name    string // e.g., "thumb", "md"
	Width   int    // Target width in pixels
	Quality int    // JPEG quality 1-100
}

// DefaultVariants are the sizes stored next to every featured image.
var DefaultVariants = []Variant{
	{Name: "thumb", Width: 320, Quality: 80},
	{Name: "md", Width: 1024, Quality: 80},
}

// ProcessedImage holds one generated variant ready for upload.
type ProcessedImage struct {
	Name        string
	Width       int
	Height      int
	Data        []byte
	ContentType string // always "image/jpeg"
}

// GenerateVariants scales the source down to each configured width.
// Returns at least one variant: once a variant reaches the source width no
// larger ones are produced.
func GenerateVariants(original []byte, variants []Variant) ([]ProcessedImage, error) {
	if len(variants) == 0 {
		variants = DefaultVariants
	}

	src, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode failed: %w", err)
	}
	bounds := src.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	if origWidth == 0 || origHeight == 0 {
		return nil, fmt.Errorf("imaging: empty image")
	}

	var results []ProcessedImage
	for _, v := range variants {
		targetWidth := v.Width
		if origWidth <= targetWidth {
			targetWidth = origWidth
		}
		targetHeight := origHeight * targetWidth / origWidth
		if targetHeight < 1 {
			targetHeight = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

		quality := v.Quality
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("imaging: encode %s: %w", v.Name, err)
		}

		results = append(results, ProcessedImage{
			Name:        v.Name,
			Width:       targetWidth,
			Height:      targetHeight,
			Data:        buf.Bytes(),
			ContentType: "image/jpeg",
		})

		if origWidth <= v.Width {
			break
		}
	}
	return results, nil
}
