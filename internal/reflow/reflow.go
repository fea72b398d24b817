// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package reflow turns the plain text a language model returns into post
// HTML. It is a best-effort pass: blank lines delimit paragraphs, heading-like
// lines become <h2>, bullet lines become list items, and inline markdown is
// rendered inside every block.
package reflow

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"smeinsights/internal/markdown"
)

// Tuning for the heading heuristic and the paragraph fallbacks.
const (
	MaxHeadingRunes   = 70
	MaxHeadingWords   = 10
	SentenceParaRunes = 250
	ChunkRunes        = 200
	minParagraphs     = 2
)

var (
	atxHeading    = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	boldHeading   = regexp.MustCompile(`^(?:\*\*|__)(.+?)(?:\*\*|__):?$`)
	bulletItem    = regexp.MustCompile(`^[-•*]\s+(.+)$`)
	orderedItem   = regexp.MustCompile(`^\d{1,3}[.)]\s+(.+)$`)
	blankLineSep  = regexp.MustCompile(`\n[ \t]*\n`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// minor words stay lowercase inside a title-cased heading.
var minorWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"nor": true, "of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "by": true, "with": true, "from": true, "as": true, "vs": true,
	"via": true, "into": true, "per": true,
}

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockList
	blockOrderedList
)

type block struct {
	kind  blockKind
	text  string   // paragraph or heading source
	items []string // list items
}

// FormatContentHTML reflows body into HTML. When the structural pass yields
// fewer than two paragraphs the text is re-split by blank-line groups, then
// by sentences, then into fixed-size chunks, stopping at the first tier that
// produces at least two paragraphs.
func FormatContentHTML(body string) string {
	body = normalize(body)
	if body == "" {
		return ""
	}

	blocks := structure(body)
	if countParagraphs(blocks) >= minParagraphs {
		return render(blocks)
	}

	for _, split := range []func(string) []string{byBlankLines, bySentences, byChunks} {
		if paras := split(body); len(paras) >= minParagraphs {
			return renderParagraphs(paras)
		}
	}
	return render(blocks)
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// structure is the line-by-line pass.
func structure(body string) []block {
	var (
		blocks []block
		para   []string
		list   *block
	)
	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, block{kind: blockParagraph, text: strings.Join(para, " ")})
			para = nil
		}
	}
	flushList := func() {
		if list != nil {
			blocks = append(blocks, *list)
			list = nil
		}
	}
	addItem := func(kind blockKind, text string) {
		if list != nil && list.kind != kind {
			flushList()
		}
		if list == nil {
			list = &block{kind: kind}
		}
		list.items = append(list.items, text)
	}

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flushPara()
			flushList()
			continue
		}
		if text, ok := headingText(line); ok {
			flushPara()
			flushList()
			blocks = append(blocks, block{kind: blockHeading, text: text})
			continue
		}
		if m := bulletItem.FindStringSubmatch(line); m != nil {
			flushPara()
			addItem(blockList, m[1])
			continue
		}
		if m := orderedItem.FindStringSubmatch(line); m != nil {
			flushPara()
			addItem(blockOrderedList, m[1])
			continue
		}
		flushList()
		para = append(para, line)
	}
	flushPara()
	flushList()
	return blocks
}

// headingText reports whether line reads as a heading and returns its text
// without markup.
func headingText(line string) (string, bool) {
	if m := atxHeading.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if m := boldHeading.FindStringSubmatch(line); m != nil {
		inner := strings.TrimSpace(m[1])
		if inner != "" && !strings.ContainsAny(inner, "*_") {
			return inner, true
		}
	}
	if isTitleLine(line) {
		return line, true
	}
	return "", false
}

// isTitleLine is the plain-text heading heuristic: short, no terminal
// punctuation, and every significant word capitalised.
func isTitleLine(line string) bool {
	if utf8.RuneCountInString(line) > MaxHeadingRunes {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(line)
	if strings.ContainsRune(".!?,;:", last) {
		return false
	}
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > MaxHeadingWords {
		return false
	}
	if bulletItem.MatchString(line) || orderedItem.MatchString(line) {
		return false
	}
	for i, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		switch {
		case unicode.IsUpper(first), unicode.IsDigit(first):
		case i > 0 && minorWords[strings.ToLower(w)]:
		default:
			return false
		}
	}
	return true
}

func countParagraphs(blocks []block) int {
	n := 0
	for _, b := range blocks {
		if b.kind == blockParagraph {
			n++
		}
	}
	return n
}

func render(blocks []block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch b.kind {
		case blockHeading:
			sb.WriteString("<h2>" + markdown.Inline(b.text) + "</h2>")
		case blockList, blockOrderedList:
			tag := "ul"
			if b.kind == blockOrderedList {
				tag = "ol"
			}
			sb.WriteString("<" + tag + ">\n")
			for _, item := range b.items {
				sb.WriteString("<li>" + markdown.Inline(item) + "</li>\n")
			}
			sb.WriteString("</" + tag + ">")
		default:
			sb.WriteString("<p>" + markdown.Inline(b.text) + "</p>")
		}
	}
	return sb.String()
}

func renderParagraphs(paras []string) string {
	blocks := make([]block, len(paras))
	for i, p := range paras {
		blocks[i] = block{kind: blockParagraph, text: p}
	}
	return render(blocks)
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// byBlankLines splits on blank-line groups, ignoring heading and list
// detection.
func byBlankLines(body string) []string {
	var paras []string
	for _, group := range blankLineSep.Split(body, -1) {
		if p := collapse(group); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// bySentences groups sentences two at a time, closing a paragraph early
// once it grows past SentenceParaRunes.
func bySentences(body string) []string {
	var (
		paras []string
		cur   []string
		size  int
	)
	for _, s := range sentences(collapse(body)) {
		cur = append(cur, s)
		size += utf8.RuneCountInString(s)
		if len(cur) == 2 || size > SentenceParaRunes {
			paras = append(paras, strings.Join(cur, " "))
			cur, size = nil, 0
		}
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, " "))
	}
	return paras
}

// sentences splits text after runs of terminal punctuation (plus any
// closing quotes or brackets) that are followed by a space.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !strings.ContainsRune(".!?", rune(text[i])) {
			continue
		}
		end := i + 1
		for end < len(text) && strings.ContainsRune(".!?\"')]", rune(text[end])) {
			end++
		}
		if end < len(text) && text[end] != ' ' {
			i = end - 1
			continue
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// byChunks cuts the text into pieces of at most ChunkRunes, breaking only
// between words.
func byChunks(body string) []string {
	var (
		paras []string
		cur   strings.Builder
	)
	for _, w := range strings.Fields(body) {
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+1+utf8.RuneCountInString(w) > ChunkRunes {
			paras = append(paras, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		paras = append(paras, cur.String())
	}
	return paras
}
