// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiVersions are swept in order for every candidate model. Newer
// models often exist only on v1beta.
var geminiVersions = []string{"v1", "v1beta"}

// geminiClient calls the Gemini REST API. The key travels as a query
// parameter on every request.
type geminiClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func newGemini(apiKey, baseURL string, httpClient *http.Client) *geminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &geminiClient{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *geminiClient) endpoint(version, path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.apiKey)
	return fmt.Sprintf("%s/%s/%s?%s", c.baseURL, version, path, query.Encode())
}

// generate calls models/{model}:generateContent on the given API version.
func (c *geminiClient) generate(ctx context.Context, version, model, prompt string) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{Temperature: 0.7},
	}

	u := c.endpoint(version, "models/"+url.PathEscape(model)+":generateContent", nil)
	status, respBody, err := postJSON(ctx, c.http, ProviderGoogle, model, u, nil, body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", classifyStatus(ProviderGoogle, model, status, respBody)
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &Error{Kind: KindAPIError, Provider: ProviderGoogle, Model: model,
			Status: status, Message: "malformed response", Err: fmt.Errorf("gemini unmarshal: %w", err)}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

// listModels returns the ids of Gemini models that support generateContent.
func (c *geminiClient) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint("v1beta", "models", url.Values{"pageSize": {"100"}}), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini list request: %w", err)
	}
	status, body, err := do(c.http, req, ProviderGoogle, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, classifyStatus(ProviderGoogle, "", status, body)
	}

	var result geminiModelList
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("gemini list unmarshal: %w", err)
	}

	var ids []string
	for _, m := range result.Models {
		id := strings.TrimPrefix(m.Name, "models/")
		if !strings.Contains(id, "gemini") || !m.supports("generateContent") {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// --- Gemini API types ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiModel struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

func (m geminiModel) supports(method string) bool {
	for _, s := range m.SupportedGenerationMethods {
		if s == method {
			return true
		}
	}
	return false
}

type geminiModelList struct {
	Models []geminiModel `json:"models"`
}
