// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"embed"
	"fmt"
	"hash/crc32"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_generation.yaml
var defaultConfigFS embed.FS

// DefaultPromptTemplate is the shipped prompt. When the configured template
// is exactly this text, posts are filed under the randomly chosen category.
const DefaultPromptTemplate = `Write a news-style article for small and medium-sized enterprise owners in the {category} space, focused on {niche}.

Start with a compelling headline on the first line, then a blank line, then the article body.
Write 5 to 7 short paragraphs separated by blank lines. Use a few short subheadings where they help.
Give practical, actionable advice and concrete examples. Do not use code fences or HTML.`

// GenerationConfig is the topic catalogue and image pool the assembler
// draws from.
type GenerationConfig struct {
	Categories    []string `yaml:"categories"`
	Niches        []string `yaml:"niches"`
	ImagePool     []string `yaml:"image_pool"`
	FallbackImage string   `yaml:"fallback_image"`
}

// Topic is one randomly drawn {category, niche} pair.
type Topic struct {
	Category string
	Niche    string
}

// DefaultConfig returns the embedded catalogue.
func DefaultConfig() (*GenerationConfig, error) {
	data, err := defaultConfigFS.ReadFile("default_generation.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded generation config: %w", err)
	}
	var cfg GenerationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded generation config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads the catalogue from path on top of the embedded defaults.
// Keys missing from the file keep their default values. An empty path
// returns the defaults.
func LoadConfig(path string) (*GenerationConfig, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading generation config: %w", err)
	}
	var override GenerationConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing generation config %s: %w", path, err)
	}

	if len(override.Categories) > 0 {
		cfg.Categories = override.Categories
	}
	if len(override.Niches) > 0 {
		cfg.Niches = override.Niches
	}
	if len(override.ImagePool) > 0 {
		cfg.ImagePool = override.ImagePool
	}
	if override.FallbackImage != "" {
		cfg.FallbackImage = override.FallbackImage
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generation config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every list is populated and every image is an
// http(s) URL.
func (c *GenerationConfig) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	if len(c.Niches) == 0 {
		return fmt.Errorf("at least one niche is required")
	}
	if len(c.ImagePool) == 0 {
		return fmt.Errorf("image_pool must not be empty")
	}
	for _, u := range append([]string{c.FallbackImage}, c.ImagePool...) {
		if !isHTTPURL(u) {
			return fmt.Errorf("invalid image url %q", u)
		}
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// PickTopic draws a category and a niche independently. intn must return a
// value in [0, n).
func (c *GenerationConfig) PickTopic(intn func(n int) int) Topic {
	return Topic{
		Category: c.Categories[intn(len(c.Categories))],
		Niche:    c.Niches[intn(len(c.Niches))],
	}
}

// PoolImage maps a title onto the image pool. The same title always gets
// the same image.
func (c *GenerationConfig) PoolImage(title string) string {
	if len(c.ImagePool) == 0 {
		return c.FallbackImage
	}
	return c.ImagePool[PoolIndex(title, len(c.ImagePool))]
}

// PoolIndex is crc32(title) mod size.
func PoolIndex(title string, size int) int {
	return int(crc32.ChecksumIEEE([]byte(title)) % uint32(size))
}

// BuildPrompt substitutes the topic into template. An empty template uses
// DefaultPromptTemplate.
func BuildPrompt(template string, t Topic) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	return strings.NewReplacer("{category}", t.Category, "{niche}", t.Niche).Replace(template)
}

// IsDefaultTemplate reports whether template is the shipped prompt (or
// unset, which means the same thing).
func IsDefaultTemplate(template string) bool {
	t := strings.TrimSpace(template)
	return t == "" || t == strings.TrimSpace(DefaultPromptTemplate)
}
