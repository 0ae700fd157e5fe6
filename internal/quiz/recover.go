package quiz

import (
	"encoding/json"
	"strings"
)

// Recover extracts a valid quiz document from raw model output. It never
// fails: strategies are tried in order and the deterministic fallback
// document is returned when none succeeds.
//
// Strategy 1 takes the outermost brace span (first '{' to last '}'), so a
// response with several balanced groups or nested braces inside string
// content is handled as a single candidate. Strategy 2 re-parses the same
// candidate after a bounded escape repair. A response with no '{' at all
// goes straight to the fallback.
func Recover(response string) Document {
	start := strings.IndexByte(response, '{')
	end := strings.LastIndexByte(response, '}')
	if start < 0 || end <= start {
		return Fallback()
	}

	candidate := normalizeWhitespace(response[start : end+1])

	if doc, ok := parse(candidate); ok {
		return doc
	}
	if doc, ok := parse(Repair(candidate)); ok {
		return doc
	}
	return Fallback()
}

// parse attempts a strict structural parse and invariant check.
func parse(candidate string) (Document, bool) {
	var doc Document
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return Document{}, false
	}
	if err := doc.Validate(); err != nil {
		return Document{}, false
	}
	return doc, true
}

// normalizeWhitespace collapses line breaks and runs of whitespace to single
// spaces. Pretty-printed model output often arrives truncated or with stray
// newlines inside string values; collapsing first makes both parse attempts
// see the same canonical candidate.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
