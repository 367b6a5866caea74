package library

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// indent prefixes every line of s with pad spaces.
func indent(s string, pad int) string {
	prefix := strings.Repeat(" ", pad)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// encodeArray writes "[", the indented objects separated by ",\n" and a
// closing "]" indented by pad-2. An empty slice spans two lines.
func encodeArray(objects []string, pad int) string {
	var sb strings.Builder
	sb.WriteString("[\n")
	for i, o := range objects {
		sb.WriteString(indent(o, pad))
		if i < len(objects)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat(" ", pad-2))
	sb.WriteString("]")
	return sb.String()
}

// skipString returns the index just past the quoted string starting at s[i].
func skipString(s string, i int) int {
	for i++; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(s)
}

func arrayStart(field string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)"` + regexp.QuoteMeta(field) + `"\s*:\s*\[`)
}

// arrayBody finds the array owned by field and returns its trimmed contents.
// It reports false when the field is absent or the array never closes.
func arrayBody(doc, field string) (string, bool) {
	loc := arrayStart(field).FindStringIndex(doc)
	if loc == nil {
		return "", false
	}
	start := loc[1]
	depth := 0
	for i := start; i < len(doc); {
		switch doc[i] {
		case '"':
			i = skipString(doc, i)
			continue
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return strings.TrimSpace(doc[start:i]), true
			}
			depth--
		}
		i++
	}
	return "", false
}

// splitObjects cuts an array body into its top-level {...} elements. It stops
// at the first element that does not start with '{'; the rest is dropped.
func splitObjects(body string) []string {
	var out []string
	i := 0
	for i < len(body) {
		for i < len(body) && (body[i] == ',' || unicode.IsSpace(rune(body[i]))) {
			i++
		}
		if i >= len(body) || body[i] != '{' {
			break
		}
		start := i
		depth := 0
	scan:
		for i < len(body) {
			switch body[i] {
			case '"':
				i = skipString(body, i)
				continue
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					i++
					break scan
				}
			}
			i++
		}
		out = append(out, strings.TrimSpace(body[start:i]))
	}
	return out
}

// decodeArray decodes every object of the named array. Objects that fail to
// decode are skipped and reported in the returned errors.
func decodeArray[T any](doc, field string, decode func(string) (T, error)) ([]T, []error) {
	body, ok := arrayBody(doc, field)
	if !ok {
		return nil, nil
	}
	var (
		items   []T
		dropped []error
	)
	for n, obj := range splitObjects(body) {
		v, err := decode(obj)
		if err != nil {
			dropped = append(dropped, fmt.Errorf("%s[%d]: %w", field, n, err))
			continue
		}
		items = append(items, v)
	}
	return items, dropped
}
