package reconstruct

import (
	"strconv"
	"strings"
)

// ParsePropertyBlock parses the inside of a Cypher property literal
// (the text between the outer braces) into a typed map. The block is
// machine-generated, so this is a tolerant scanner rather than a grammar:
// a pair that cannot be parsed is dropped and the rest of the block
// still parses.
//
// Value types produced: string, int64, float64, bool, nil. Array
// literals are kept as their raw bracketed text rather than parsed
// recursively.
func ParsePropertyBlock(block string) map[string]any {
	props := make(map[string]any)
	block = strings.TrimSpace(block)
	if block == "" {
		return props
	}

	for _, pair := range splitTopLevel(block, ',') {
		key, value, ok := splitPair(pair)
		if !ok {
			continue
		}
		props[key] = parseValue(value)
	}
	return props
}

// splitTopLevel splits s on sep, ignoring separators inside quotes or
// inside nested (), [], {} groups. This is what keeps commas inside an
// array literal from being treated as pair separators.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	var depth int
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++ // skip escaped character
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// splitPair splits "key: value" on the first top-level colon. Keys may be
// quoted or backticked; both are stripped.
func splitPair(pair string) (string, string, bool) {
	var depth int
	var quote byte
	for i := 0; i < len(pair); i++ {
		c := pair[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				key := strings.Trim(strings.TrimSpace(pair[:i]), "'\"`")
				value := strings.TrimSpace(pair[i+1:])
				if key == "" || value == "" {
					return "", "", false
				}
				return key, value, true
			}
		}
	}
	return "", "", false
}

// parseValue converts one raw value token to its Go representation.
func parseValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Quoted string, with backslash escapes.
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if (first == '\'' || first == '"') && last == first {
			return unescape(raw[1 : len(raw)-1])
		}
	}

	// Array literal: kept as raw text, not parsed recursively.
	if strings.HasPrefix(raw, "[") {
		return raw
	}

	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}

	// Anything else (function calls, identifiers) stays a bare string.
	return raw
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
