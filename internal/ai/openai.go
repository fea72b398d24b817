// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIClient talks to the chat completions API through the official SDK.
// SDK retries are off: the router owns the retry policy.
type openAIClient struct {
	client openai.Client
}

func newOpenAI(apiKey, baseURL string, httpClient *http.Client) *openAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &openAIClient{client: openai.NewClient(opts...)}
}

// complete returns the assistant text, "" with a nil error on a soft miss,
// or an *Error.
func (c *openAIClient) complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", classifyOpenAIError(model, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyOpenAIError(model string, err error) *Error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return &Error{Kind: KindTransport, Provider: ProviderOpenAI, Model: model, Message: "request failed", Err: err}
	}

	// The SDK exposes the parsed envelope fields; the raw JSON is checked
	// as well so both the flat and the {"error":{...}} shapes classify.
	var body []byte
	if apiErr.Code != "" || apiErr.Type != "" || apiErr.Message != "" {
		env := providerErrorBody{}
		env.Error.Message = apiErr.Message
		env.Error.Type = apiErr.Type
		env.Error.Code, _ = json.Marshal(apiErr.Code)
		body, _ = json.Marshal(env)
	} else {
		body = []byte(apiErr.RawJSON())
	}
	return classifyStatus(ProviderOpenAI, model, apiErr.StatusCode, body)
}
