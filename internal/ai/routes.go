// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import "strings"

// Provider identifies an LLM HTTP API.
type Provider int

const (
	ProviderUnknown Provider = iota
	ProviderOpenAI
	ProviderAnthropic
	ProviderGoogle
	ProviderMistral
)

func (p Provider) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGoogle:
		return "gemini"
	case ProviderMistral:
		return "mistral"
	default:
		return "unknown"
	}
}

// ProviderRoute maps model ids containing Match to Provider.
type ProviderRoute struct {
	Match    string
	Provider Provider
}

// DefaultRoutes is checked in order; the first match wins.
var DefaultRoutes = []ProviderRoute{
	{Match: "gpt", Provider: ProviderOpenAI},
	{Match: "claude", Provider: ProviderAnthropic},
	{Match: "gemini", Provider: ProviderGoogle},
	{Match: "mistral", Provider: ProviderMistral},
}

// Resolve returns the provider serving model. Matching is a case-sensitive
// substring test; provider model ids are lower case.
func Resolve(routes []ProviderRoute, model string) (Provider, bool) {
	for _, r := range routes {
		if r.Match != "" && strings.Contains(model, r.Match) {
			return r.Provider, true
		}
	}
	return ProviderUnknown, false
}
