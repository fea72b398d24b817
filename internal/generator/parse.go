// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"errors"
	"regexp"
	"strings"

	"smeinsights/internal/reflow"
)

var (
	// ErrEmptyResponse means the model returned nothing but whitespace.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrMalformedResponse means a title or a body could not be extracted.
	ErrMalformedResponse = errors.New("malformed response: missing title or body")
)

var titlePrefix = regexp.MustCompile(`(?i)^(?:#{1,6}\s*)?(?:\*\*|__)?\s*(?:title|headline)\s*:\s*`)

// Article is a parsed model response ready to be stored.
type Article struct {
	Title       string
	ContentHTML string
}

// ParseArticle splits raw model output into a title (the first non-blank
// line) and an HTML body (everything after it, reflowed).
func ParseArticle(raw string) (*Article, error) {
	text := stripCodeFences(raw)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var (
		title string
		rest  int
	)
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			title = cleanTitle(line)
			rest = i + 1
			break
		}
	}

	body := strings.TrimSpace(strings.Join(lines[rest:], "\n"))
	if title == "" || body == "" {
		return nil, ErrMalformedResponse
	}

	html := reflow.FormatContentHTML(body)
	if html == "" {
		return nil, ErrMalformedResponse
	}
	return &Article{Title: title, ContentHTML: html}, nil
}

// stripCodeFences removes a ```lang ... ``` wrapper around the response.
func stripCodeFences(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		if i := strings.Index(response, "\n"); i != -1 {
			response = response[i+1:]
		} else {
			response = strings.TrimPrefix(response, "```")
		}
		if i := strings.LastIndex(response, "```"); i != -1 {
			response = response[:i]
		}
	}
	return strings.TrimSpace(response)
}

// cleanTitle drops heading and emphasis markup, a "Title:" label and
// wrapping quotes.
func cleanTitle(line string) string {
	t := strings.TrimSpace(line)
	t = titlePrefix.ReplaceAllString(t, "")
	t = strings.TrimLeft(t, "# ")
	for _, mark := range []string{"**", "__"} {
		t = strings.TrimPrefix(t, mark)
		t = strings.TrimSuffix(t, mark)
	}
	t = strings.TrimSpace(t)
	if len(t) >= 2 && (t[0] == '"' && t[len(t)-1] == '"') {
		t = strings.TrimSpace(t[1 : len(t)-1])
	}
	return t
}
