package llm

import (
	"strings"
)

// StripFences removes a leading ``` marker (with optional language tag) and a trailing
// ``` marker. Text that does not start with a fence is only trimmed.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := s[3:]
	i := 0
	for i < len(rest) && isTagChar(rest[i]) {
		i++
	}
	if i == len(rest) || strings.ContainsRune(" \t\r\n{[", rune(rest[i])) {
		rest = rest[i:]
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}

func isTagChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

// FirstObjectSpan returns the first balanced {...} span in text. Braces inside JSON
// strings are ignored. ok is false when no opening brace is ever closed.
func FirstObjectSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
