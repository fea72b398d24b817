// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MetaDescriptionLength is the search-snippet budget in runes.
const MetaDescriptionLength = 155

// PlainText returns the visible text of an HTML fragment with whitespace
// collapsed.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Block boundaries must not glue words together.
			sb.WriteByte(' ')
		}
	}
}

// MetaDescription extracts at most max runes of text from the post HTML,
// cut at a word boundary with an ellipsis when shortened.
func MetaDescription(fragment string, max int) string {
	text := PlainText(fragment)
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:max-1])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.-") + "…"
}
