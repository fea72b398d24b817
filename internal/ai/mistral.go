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

const defaultMistralBaseURL = "https://api.mistral.ai/v1"

// mistralClient calls Mistral's OpenAI-compatible chat completions
// endpoint with plain JSON, so any compatible gateway can sit behind it.
type mistralClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func newMistral(apiKey, baseURL string, httpClient *http.Client) *mistralClient {
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	return &mistralClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *mistralClient) complete(ctx context.Context, model, prompt string) (string, error) {
	body := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	}

	status, respBody, err := postJSON(ctx, c.http, ProviderMistral, model, c.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", classifyStatus(ProviderMistral, model, status, respBody)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &Error{Kind: KindAPIError, Provider: ProviderMistral, Model: model,
			Status: status, Message: "malformed response", Err: fmt.Errorf("mistral unmarshal: %w", err)}
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// --- OpenAI-compatible request/response types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}
