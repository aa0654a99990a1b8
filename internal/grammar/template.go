package grammar

import (
	"fmt"
	"strings"
)

// Placeholders lists the {slot} references in s in order of appearance.
func Placeholders(s string) ([]string, error) {
	names := make([]string, 0, 2)
	_, err := expand(s, func(name string) (string, error) {
		names = append(names, name)
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Expand replaces each {slot} in s with lookup(slot). "{{" and "}}" produce literal braces.
func Expand(s string, lookup func(name string) (string, error)) (string, error) {
	return expand(s, lookup)
}

func expand(s string, lookup func(name string) (string, error)) (string, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, nil
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder in %q", s)
			}
			name := strings.TrimSpace(s[i+1 : i+1+end])
			if name == "" {
				return "", fmt.Errorf("empty placeholder in %q", s)
			}
			value, err := lookup(name)
			if err != nil {
				return "", err
			}
			b.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("unmatched '}' in %q", s)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
