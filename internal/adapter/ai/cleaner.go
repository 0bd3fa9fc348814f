// Package ai provides response cleaning utilities for LLM output.
package ai

import (
	"encoding/json"
	"strings"
)

// StripFences removes a surrounding markdown code fence (with optional
// language tag) from an LLM response.
func StripFences(response string) string {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// ExtractJSON returns the best JSON-object candidate from a response. It
// strips fences first; when the remainder still fails to parse it falls back
// to the span between the first '{' and its matching '}'. The returned
// string is not guaranteed valid JSON; callers own the final parse so they
// can attach their own error context.
func ExtractJSON(response string) string {
	text := StripFences(response)
	if IsValidJSON(text) {
		return text
	}
	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	// Unbalanced braces: fall back to first '{' .. last '}'.
	if end := strings.LastIndex(text, "}"); end > start {
		return text[start : end+1]
	}
	return text
}

// IsValidJSON checks if a string parses as JSON.
func IsValidJSON(s string) bool {
	var v any
	return json.Unmarshal([]byte(s), &v) == nil
}
