package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

var (
	// ErrNotFound means the page has no assignment to the requested variable.
	ErrNotFound = errors.New("script variable not found")
	// ErrMalformed means the variable exists but its payload could not be parsed.
	ErrMalformed = errors.New("malformed script payload")
)

func assignmentRe(name string) *regexp.Regexp {
	name = strings.TrimPrefix(name, "window.")
	return regexp.MustCompile(`(?:(?:var|let|const)\s+|window\.|\b)` + regexp.QuoteMeta(name) + `\s*=\s*`)
}

// ScriptVar finds `var name = <literal>` (also let/const/window.name) in src and returns the literal
// text: a balanced object or array, a quoted string, or a bare scalar up to the next ';' or newline.
func ScriptVar(src, name string) (string, error) {
	matches := assignmentRe(name).FindAllStringIndex(src, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	for _, m := range matches {
		if payload, ok := scanLiteral(src, m[1]); ok {
			return payload, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrMalformed)
}

// DecodeScriptVar is ScriptVar followed by ParseLoose.
func DecodeScriptVar(src, name string, v any) error {
	payload, err := ScriptVar(src, name)
	if err != nil {
		return err
	}
	if err := ParseLoose(payload, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func scanLiteral(src string, start int) (string, bool) {
	i := start
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r' || src[i] == '\n') {
		i++
	}
	if i >= len(src) {
		return "", false
	}

	switch src[i] {
	case '{', '[':
		end, ok := scanBalanced(src, i)
		if !ok {
			return "", false
		}
		return src[i:end], true
	case '\'', '"', '`':
		end, ok := scanString(src, i)
		if !ok {
			return "", false
		}
		return src[i:end], true
	case '=':
		return "", false
	}

	end := strings.IndexAny(src[i:], ";\n")
	if end < 0 {
		end = len(src) - i
	}
	lit := strings.TrimSpace(src[i : i+end])
	return lit, lit != ""
}

// scanBalanced returns the index just past the bracket that closes src[start].
func scanBalanced(src string, start int) (int, bool) {
	var stack []byte
	for i := start; i < len(src); i++ {
		switch c := src[i]; c {
		case '\'', '"', '`':
			end, ok := scanString(src, i)
			if !ok {
				return 0, false
			}
			i = end - 1
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// scanString returns the index just past the quote closing the string that opens at src[start].
func scanString(src string, start int) (int, bool) {
	quote := src[start]
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}
	return 0, false
}

// ParseLoose decodes JSON-ish payloads: strict JSON first, then JSON5 (unquoted keys, trailing
// commas), then the same two passes over a single-to-double quote rewrite. Unescaped single quotes
// nested inside single-quoted strings are not recoverable.
func ParseLoose(payload string, v any) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return fmt.Errorf("empty payload: %w", ErrMalformed)
	}

	strictErr := json.Unmarshal([]byte(payload), v)
	if strictErr == nil {
		return nil
	}
	if err := json5.Unmarshal([]byte(payload), v); err == nil {
		return nil
	}
	quoted := []byte(SingleToDoubleQuotes(payload))
	if err := json.Unmarshal(quoted, v); err == nil {
		return nil
	}
	if err := json5.Unmarshal(quoted, v); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrMalformed, strictErr)
}

// SingleToDoubleQuotes rewrites single-quoted string literals as double-quoted JSON strings.
// Text inside double-quoted strings is left untouched.
func SingleToDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble, inSingle := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inDouble:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' {
				inDouble = false
			}
		case inSingle:
			switch c {
			case '\\':
				if i+1 < len(s) && s[i+1] == '\'' {
					b.WriteByte('\'')
					i++
				} else {
					b.WriteByte(c)
					if i+1 < len(s) {
						i++
						b.WriteByte(s[i])
					}
				}
			case '"':
				b.WriteString(`\"`)
			case '\'':
				b.WriteByte('"')
				inSingle = false
			default:
				b.WriteByte(c)
			}
		case c == '"':
			inDouble = true
			b.WriteByte(c)
		case c == '\'':
			inSingle = true
			b.WriteByte('"')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
