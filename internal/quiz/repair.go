package quiz

import "strings"

// Repair applies a bounded set of textual fixes to a candidate JSON string:
// stray backslashes that do not start a recognized escape are escaped,
// unescaped quotes inside evident string content are escaped, and control
// characters outside the printable range are stripped. It is a best-effort
// second pass before giving up on a model response, never the sole recovery
// path.
func Repair(candidate string) string {
	var b strings.Builder
	b.Grow(len(candidate) + 16)

	inString := false
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]

		if c < 0x20 {
			continue
		}

		if !inString {
			b.WriteByte(c)
			if c == '"' {
				inString = true
			}
			continue
		}

		switch c {
		case '\\':
			if i+1 < len(candidate) && isEscapeChar(candidate[i+1]) {
				b.WriteByte(c)
				b.WriteByte(candidate[i+1])
				i++
			} else {
				b.WriteString(`\\`)
			}
		case '"':
			if closesString(candidate[i+1:]) {
				b.WriteByte(c)
				inString = false
			} else {
				b.WriteString(`\"`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// isEscapeChar reports whether c is valid after a backslash in JSON.
func isEscapeChar(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
		return true
	}
	return false
}

// closesString decides whether a quote at this position ends the current
// string value: it does when the next significant character is structural
// (comma, colon, closing bracket) or the input ends. Anything else means the
// quote sits inside string content and must be escaped.
func closesString(rest string) bool {
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case ' ', '\t':
			continue
		case ',', ':', '}', ']':
			return true
		default:
			return false
		}
	}
	return true
}
