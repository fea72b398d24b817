// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const defaultClaudeBaseURL = "https://api.anthropic.com"

// claudeClient calls the Anthropic Messages API (POST /v1/messages).
type claudeClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func newClaude(apiKey, baseURL string, httpClient *http.Client) *claudeClient {
	if baseURL == "" {
		baseURL = defaultClaudeBaseURL
	}
	return &claudeClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *claudeClient) complete(ctx context.Context, model, prompt string) (string, error) {
	body := claudeRequest{
		Model:       model,
		MaxTokens:   4096,
		Temperature: 0.7,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	status, respBody, err := postJSON(ctx, c.http, ProviderAnthropic, model, c.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}, body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", classifyStatus(ProviderAnthropic, model, status, respBody)
	}

	var result claudeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &Error{Kind: KindAPIError, Provider: ProviderAnthropic, Model: model,
			Status: status, Message: "malformed response", Err: fmt.Errorf("claude unmarshal: %w", err)}
	}

	for _, block := range result.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", nil
}

// --- Anthropic Messages API types ---

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeResponse struct {
	Content []claudeContentBlock `json:"content"`
}
