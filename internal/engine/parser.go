package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/questforge/questforge/pkg/game"
)

// fallbackNarrative replaces near-empty narrative text so the player
// never sees a blank reply.
const fallbackNarrative = "You continue your adventure..."

const minNarrativeLen = 10

// ParseResult is the outcome of parsing one raw LLM turn reply. Reply is
// nil when no structured object could be recovered; Narrative is always
// populated.
type ParseResult struct {
	Reply     *game.Reply
	Narrative string
}

// ParseReply extracts a structured state object and the narrative text
// from a raw LLM reply. The reply may be a pure JSON object, JSON
// embedded in prose, or free text with no JSON at all. It never fails:
// the worst case is a nil Reply with the trimmed raw text as narrative.
func ParseReply(raw string) ParseResult {
	trimmed := strings.TrimSpace(stripCodeFences(raw))

	// Whole reply as one JSON object.
	if strings.HasPrefix(trimmed, "{") {
		var reply game.Reply
		if err := json.Unmarshal([]byte(trimmed), &reply); err == nil {
			narrative := sanitizeNarrative(reply.Description.String())
			return ParseResult{Reply: &reply, Narrative: narrative}
		}
	}

	// JSON object embedded in narrative text.
	if span, ok := firstBalancedObject(trimmed); ok {
		var reply game.Reply
		if err := json.Unmarshal([]byte(trimmed[span.start:span.end]), &reply); err == nil {
			narrative := trimmed[:span.start] + trimmed[span.end:]
			narrative = sanitizeNarrative(narrative)
			if narrative == fallbackNarrative && reply.Description != "" {
				narrative = sanitizeNarrative(reply.Description.String())
			}
			return ParseResult{Reply: &reply, Narrative: narrative}
		}
	}

	return ParseResult{Reply: nil, Narrative: sanitizeNarrative(trimmed)}
}

type span struct {
	start, end int
}

// firstBalancedObject finds the first balanced {...} span using a depth
// counter, skipping braces inside JSON string literals. A greedy regex
// would mangle nested objects.
func firstBalancedObject(s string) (span, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return span{}, false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return span{start: start, end: i + 1}, true
			}
		}
	}
	return span{}, false
}

var (
	residualObjectRe = regexp.MustCompile(`\{[^{}]*\}`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// sanitizeNarrative strips residual JSON fragments and collapses
// whitespace. Text shorter than minNarrativeLen is replaced with the
// generic continuation line.
func sanitizeNarrative(text string) string {
	// Repeated passes peel nested leftovers inside-out.
	for i := 0; i < 5 && strings.ContainsRune(text, '{'); i++ {
		next := residualObjectRe.ReplaceAllString(text, " ")
		if next == text {
			break
		}
		text = next
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) < minNarrativeLen {
		return fallbackNarrative
	}
	return text
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(t[:nl])
		// Drop a bare language tag like "json".
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}[]") {
			t = t[nl+1:]
		}
	}
	if idx := strings.LastIndex(t, "```"); idx >= 0 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}
