package openai

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
)

// ExtractJSON recovers a JSON document from a model reply. Markdown fences are
// removed first; if the remainder is still not valid JSON, the first balanced
// object or array embedded in the text is tried.
func ExtractJSON(text string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	if json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned), nil
	}

	pairs := [][2]byte{{'{', '}'}, {'[', ']'}}
	if arr := strings.IndexByte(cleaned, '['); arr >= 0 {
		if obj := strings.IndexByte(cleaned, '{'); obj < 0 || arr < obj {
			pairs[0], pairs[1] = pairs[1], pairs[0]
		}
	}
	for _, p := range pairs {
		if s, ok := balanced(cleaned, p[0], p[1]); ok && json.Valid([]byte(s)) {
			return json.RawMessage(s), nil
		}
	}

	return nil, &apperrors.ParseError{Raw: text, Err: errors.New("no valid JSON found in response")}
}

// balanced returns the first open...close span, tracking depth outside strings.
func balanced(s string, openCh, closeCh byte) (string, bool) {
	start := strings.IndexByte(s, openCh)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == openCh:
			depth++
		case c == closeCh:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
