// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

// DefaultAlternatives lists the models tried after the requested one,
// keyed by the exact requested model id.
var DefaultAlternatives = map[string][]string{
	"gpt-4o":        {"gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"},
	"gpt-4o-mini":   {"gpt-4o-mini", "gpt-3.5-turbo"},
	"gpt-4-turbo":   {"gpt-4o", "gpt-4o-mini"},
	"gpt-3.5-turbo": {"gpt-4o-mini"},

	"claude-3-5-sonnet-20241022": {"claude-3-5-sonnet-latest", "claude-3-sonnet-20240229", "claude-3-haiku-20240307"},
	"claude-3-opus-20240229":     {"claude-3-5-sonnet-20241022", "claude-3-sonnet-20240229"},
	"claude-3-haiku-20240307":    {"claude-3-5-haiku-20241022"},

	"gemini-1.5-pro":   {"gemini-1.5-pro-latest", "gemini-1.5-flash", "gemini-pro"},
	"gemini-1.5-flash": {"gemini-1.5-flash-latest", "gemini-1.5-pro", "gemini-pro"},
	"gemini-pro":       {"gemini-1.0-pro", "gemini-1.5-flash"},

	"mistral-large-latest": {"mistral-medium-latest", "mistral-small-latest"},
}

// DefaultFallbackModels are tried on Gemini when OpenAI runs out of quota.
var DefaultFallbackModels = []string{
	"gemini-1.5-pro-latest",
	"gemini-1.5-flash-latest",
	"gemini-pro",
}

// Candidates returns requested followed by each group in order, with
// duplicates and blanks removed. The first occurrence wins.
func Candidates(requested string, groups ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(m string) {
		if m == "" || seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
	}
	add(requested)
	for _, g := range groups {
		for _, m := range g {
			add(m)
		}
	}
	return out
}
