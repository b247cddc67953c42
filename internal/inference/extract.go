package inference

import (
	"encoding/json"
	"strings"
)

// ExtractObject locates and parses a JSON object inside raw model output.
// The whole string is tried first; otherwise the smallest brace-matched
// block containing the discriminator key is used. Pure function: the same
// input always yields the same output.
func ExtractObject(raw, discriminatorKey string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)

	if isJSONObject(trimmed) {
		return json.RawMessage(trimmed), nil
	}

	needle := `"` + discriminatorKey + `"`
	searchFrom := 0
	for {
		keyIdx := strings.Index(trimmed[searchFrom:], needle)
		if keyIdx == -1 {
			break
		}
		keyIdx += searchFrom

		// Walk back to the nearest opening brace and try successively
		// larger enclosing blocks until one parses.
		for start := strings.LastIndex(trimmed[:keyIdx], "{"); start != -1; start = strings.LastIndex(trimmed[:start], "{") {
			candidate := matchBraces(trimmed, start)
			if candidate != "" && start+len(candidate) > keyIdx && isJSONObject(candidate) {
				return json.RawMessage(candidate), nil
			}
		}

		searchFrom = keyIdx + len(needle)
	}

	return nil, &ExtractionError{Shape: "object", Snippet: truncateForDiagnostics(raw)}
}

// ExtractArray locates and parses a JSON array inside raw model output. The
// whole string is tried first, then the largest bracket-delimited substring.
func ExtractArray(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)

	if isJSONArray(trimmed) {
		return json.RawMessage(trimmed), nil
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start != -1 && end > start {
		candidate := trimmed[start : end+1]
		if isJSONArray(candidate) {
			return json.RawMessage(candidate), nil
		}

		// The widest span may capture unbalanced text between two unrelated
		// brackets; fall back to bracket matching from the first opener.
		candidate = matchBrackets(trimmed, start)
		if candidate != "" && isJSONArray(candidate) {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, &ExtractionError{Shape: "array", Snippet: truncateForDiagnostics(raw)}
}

func isJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var v map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &v) == nil
}

func isJSONArray(s string) bool {
	if !strings.HasPrefix(s, "[") {
		return false
	}
	var v []json.RawMessage
	return json.Unmarshal([]byte(s), &v) == nil
}

// matchBraces returns the brace-balanced substring starting at start, or ""
// when no matching closing brace exists. String literals and escapes are
// respected so braces inside values do not break the count.
func matchBraces(text string, start int) string {
	return matchDelimited(text, start, '{', '}')
}

func matchBrackets(text string, start int) string {
	return matchDelimited(text, start, '[', ']')
}

func matchDelimited(text string, start int, open, close byte) string {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}
