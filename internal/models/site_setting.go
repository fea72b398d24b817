// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SiteSetting represents a single configuration key-value pair.
type SiteSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SiteSettings is a convenience map for accessing settings by key.
type SiteSettings map[string]string

// Get returns the value for a key, or the fallback if the key doesn't exist.
func (s SiteSettings) Get(key, fallback string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Int returns the value for key parsed as an integer, or fallback when the
// key is missing or not a number.
func (s SiteSettings) Int(key string, fallback int) int {
	v, ok := s[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

// Bool returns the value for key as a boolean. "1", "true", "yes" and "on"
// are true; an empty or missing key yields fallback.
func (s SiteSettings) Bool(key string, fallback bool) bool {
	v, ok := s[key]
	if !ok || v == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Keys of the generation settings record.
const (
	SettingOpenAIKey           = "sig_openai_api_key"
	SettingAnthropicKey        = "sig_anthropic_api_key"
	SettingGeminiKey           = "sig_gemini_api_key"
	SettingMistralKey          = "sig_mistral_api_key"
	SettingModel               = "sig_model"
	SettingPromptTemplate      = "sig_prompt_template"
	SettingPostsPerDay         = "sig_posts_per_day"
	SettingPostsPerBatch       = "sig_posts_per_batch"
	SettingIntervalPosts       = "sig_interval_between_posts"
	SettingIntervalBatches     = "sig_interval_between_batches"
	SettingPostStatus          = "sig_post_status"
	SettingFallbackCategory    = "sig_fallback_category"
	SettingFeaturedImageURL    = "sig_featured_image_url"
	SettingEnableFallback      = "sig_enable_fallback"
	SettingScheduleInterval    = "sig_schedule_interval"
	SettingScheduleNextRun     = "sig_schedule_next_run"
	SettingScheduleLastRun     = "sig_schedule_last_run"
	SettingSchedulePrefix      = "sig_schedule_"
	SettingGenerationKeyPrefix = "sig_"
)

// Defaults applied when a key is missing from the settings record.
const (
	DefaultModel              = "gpt-4o-mini"
	DefaultPostsPerDay        = 3
	DefaultPostsPerBatch      = 1
	DefaultIntervalPosts      = 60  // seconds
	DefaultIntervalBatches    = 480 // minutes
	DefaultFallbackCategory   = "Business"
	DefaultPostStatusSettings = "published"
)

// GenerationSettings is the typed view of the sig_* settings record read by
// the router, the assembler and the scheduler.
type GenerationSettings struct {
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string
	MistralKey   string

	Model          string
	PromptTemplate string // empty means the shipped default

	PostsPerDay          int
	PostsPerBatch        int
	IntervalBetweenPosts time.Duration
	IntervalBetweenRuns  time.Duration

	PostStatus       ContentStatus
	FallbackCategory string
	FeaturedImageURL string
	EnableFallback   bool
}

// GenerationSettingsFrom builds the typed settings from the raw record,
// applying defaults and clamping counts to sane minimums.
func GenerationSettingsFrom(s SiteSettings) GenerationSettings {
	g := GenerationSettings{
		OpenAIKey:    strings.TrimSpace(s[SettingOpenAIKey]),
		AnthropicKey: strings.TrimSpace(s[SettingAnthropicKey]),
		GeminiKey:    strings.TrimSpace(s[SettingGeminiKey]),
		MistralKey:   strings.TrimSpace(s[SettingMistralKey]),

		Model:          strings.TrimSpace(s.Get(SettingModel, DefaultModel)),
		PromptTemplate: s[SettingPromptTemplate],

		PostsPerDay:          s.Int(SettingPostsPerDay, DefaultPostsPerDay),
		PostsPerBatch:        s.Int(SettingPostsPerBatch, DefaultPostsPerBatch),
		IntervalBetweenPosts: time.Duration(s.Int(SettingIntervalPosts, DefaultIntervalPosts)) * time.Second,
		IntervalBetweenRuns:  time.Duration(s.Int(SettingIntervalBatches, DefaultIntervalBatches)) * time.Minute,

		PostStatus:       ParseContentStatus(s.Get(SettingPostStatus, DefaultPostStatusSettings)),
		FallbackCategory: s.Get(SettingFallbackCategory, DefaultFallbackCategory),
		FeaturedImageURL: strings.TrimSpace(s[SettingFeaturedImageURL]),
		EnableFallback:   s.Bool(SettingEnableFallback, true),
	}

	if g.PostsPerDay < 0 {
		g.PostsPerDay = 0
	}
	if g.PostsPerBatch < 1 {
		g.PostsPerBatch = 1
	}
	if g.IntervalBetweenPosts < 0 {
		g.IntervalBetweenPosts = 0
	}
	if g.IntervalBetweenRuns < time.Minute {
		g.IntervalBetweenRuns = time.Duration(DefaultIntervalBatches) * time.Minute
	}
	return g
}

// DefaultGenerationSettings returns the record written by the seeder on a
// fresh install.
func DefaultGenerationSettings() map[string]string {
	return map[string]string{
		SettingModel:            DefaultModel,
		SettingPostsPerDay:      strconv.Itoa(DefaultPostsPerDay),
		SettingPostsPerBatch:    strconv.Itoa(DefaultPostsPerBatch),
		SettingIntervalPosts:    strconv.Itoa(DefaultIntervalPosts),
		SettingIntervalBatches:  strconv.Itoa(DefaultIntervalBatches),
		SettingPostStatus:       DefaultPostStatusSettings,
		SettingFallbackCategory: DefaultFallbackCategory,
		SettingEnableFallback:   "1",
	}
}

// editableSettings lists the generation keys operators may change. The
// schedule keys are owned by the scheduler.
var editableSettings = map[string]func(string) error{
	SettingOpenAIKey:        nil,
	SettingAnthropicKey:     nil,
	SettingGeminiKey:        nil,
	SettingMistralKey:       nil,
	SettingModel:            nonEmpty,
	SettingPromptTemplate:   nil,
	SettingPostsPerDay:      intAtLeast(0),
	SettingPostsPerBatch:    intAtLeast(1),
	SettingIntervalPosts:    intAtLeast(0),
	SettingIntervalBatches:  intAtLeast(1),
	SettingPostStatus:       oneOf(string(ContentStatusDraft), string(ContentStatusPublished)),
	SettingFallbackCategory: nonEmpty,
	SettingFeaturedImageURL: httpURLOrEmpty,
	SettingEnableFallback:   oneOf("0", "1", "true", "false", "yes", "no", "on", "off"),
}

// secretSettings are masked whenever settings are displayed.
var secretSettings = map[string]bool{
	SettingOpenAIKey:    true,
	SettingAnthropicKey: true,
	SettingGeminiKey:    true,
	SettingMistralKey:   true,
}

// ValidateSetting checks that key is an editable generation setting and
// that value is acceptable for it.
func ValidateSetting(key, value string) error {
	check, ok := editableSettings[key]
	if !ok {
		return fmt.Errorf("unknown or read-only setting %q", key)
	}
	if check == nil {
		return nil
	}
	if err := check(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// EditableSettingKeys returns the editable keys in sorted order.
func EditableSettingKeys() []string {
	keys := make([]string, 0, len(editableSettings))
	for k := range editableSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecretSetting reports whether key holds a provider credential.
func IsSecretSetting(key string) bool {
	return secretSettings[key]
}

// MaskSecret keeps the last four characters of a credential.
func MaskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", 8) + v[len(v)-4:]
}

// IsMaskedSecret reports whether value is a credential echoed back in its
// masked form. Real API keys never start with '*', so such a value means
// "unchanged".
func IsMaskedSecret(key, value string) bool {
	return IsSecretSetting(key) && strings.HasPrefix(strings.TrimSpace(value), "*")
}

// Keys returns the setting keys in sorted order.
func (s SiteSettings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Masked returns a copy with every credential masked.
func (s SiteSettings) Masked() SiteSettings {
	out := make(SiteSettings, len(s))
	for k, v := range s {
		if IsSecretSetting(k) {
			v = MaskSecret(v)
		}
		out[k] = v
	}
	return out
}

func nonEmpty(v string) error {
	if v == "" {
		return errors.New("must not be empty")
	}
	return nil
}

func intAtLeast(lo int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not a number", v)
		}
		if n < lo {
			return fmt.Errorf("must be at least %d", lo)
		}
		return nil
	}
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
	}
}

func httpURLOrEmpty(v string) error {
	if v == "" {
		return nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", v)
	}
	return nil
}
