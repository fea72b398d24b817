// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown renders the inline Markdown that language models
// sprinkle through plain text (bold, emphasis, links) into HTML using
// goldmark. Raw HTML in model output is never trusted.
package markdown

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md is the configured goldmark instance, reused across calls.
// html.WithUnsafe is deliberately absent.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.Strikethrough,
		extension.Linkify,
		extension.Typographer,
	),
)

var (
	angleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

	// orderedItem and blockStart match line openings goldmark would turn
	// into a block (ordered list, heading, list, thematic break, fence).
	orderedItem = regexp.MustCompile(`^\d+([.)])(\s|$)`)
	blockStart  = regexp.MustCompile(`^(#{1,6}(\s|$)|[-+*](\s|$)|-{3,}|\*{3,}|_{3,}|=+$|` + "```" + `|~~~)`)
)

// escapeBlockStart backslash-escapes the punctuation that would open a
// block element.
func escapeBlockStart(s string) string {
	if loc := orderedItem.FindStringSubmatchIndex(s); loc != nil {
		return s[:loc[2]] + `\` + s[loc[2]:]
	}
	if blockStart.MatchString(s) {
		return `\` + s
	}
	return s
}

// Inline converts one block of text into inline HTML: no wrapping <p>,
// no block elements. Angle brackets are escaped before parsing, so raw
// tags show up as text.
func Inline(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	src := escapeBlockStart(angleEscaper.Replace(text))

	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return html.EscapeString(text)
	}
	out := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(out, "<p>") || !strings.HasSuffix(out, "</p>") {
		return html.EscapeString(text)
	}
	return strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
}
