// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 4 << 20

// maxDetailLen caps the provider text copied into error messages.
const maxDetailLen = 300

// postJSON sends payload as JSON and returns the status and body.
// Transport failures come back as KindTransport.
func postJSON(ctx context.Context, client *http.Client, p Provider, model, url string, headers map[string]string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("%s marshal: %w", p, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, &Error{Kind: KindTransport, Provider: p, Model: model, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return do(client, req, p, model)
}

func do(client *http.Client, req *http.Request, p Provider, model string) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &Error{Kind: KindTransport, Provider: p, Model: model, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &Error{Kind: KindTransport, Provider: p, Model: model, Message: "read body", Err: err}
	}
	return resp.StatusCode, respBody, nil
}

// providerErrorBody covers the error envelopes of all supported APIs:
// OpenAI/Mistral {"error":{"message","type","code"}}, Anthropic
// {"error":{"type","message"}} and Google {"error":{"code","message","status"}}.
type providerErrorBody struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
		Status  string          `json:"status"`
	} `json:"error"`
}

func (b providerErrorBody) code() string {
	var s string
	if json.Unmarshal(b.Error.Code, &s) == nil {
		return s
	}
	return ""
}

// classifyStatus turns a non-200 response into an *Error.
func classifyStatus(p Provider, model string, status int, body []byte) *Error {
	var parsed providerErrorBody
	_ = json.Unmarshal(body, &parsed)

	detail := strings.TrimSpace(parsed.Error.Message)
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen] + "..."
	}

	e := &Error{Provider: p, Model: model, Status: status}
	if detail != "" {
		e.Err = errors.New(detail)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind, e.Message = KindAuthFailed, "authentication failed"
	case status == http.StatusTooManyRequests && isQuotaBody(parsed):
		e.Kind, e.Message = KindQuotaExceeded, "quota exceeded"
	case status == http.StatusTooManyRequests:
		e.Kind, e.Message = KindRateLimited, "rate limited"
	default:
		e.Kind, e.Message = KindAPIError, "API error"
	}
	return e
}

func isQuotaBody(b providerErrorBody) bool {
	return b.code() == "insufficient_quota" ||
		b.Error.Type == "insufficient_quota" ||
		b.Error.Status == "RESOURCE_EXHAUSTED"
}
