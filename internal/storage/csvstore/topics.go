// SPDX-License-Identifier: MIT

package csvstore

import "strings"

// FormatTopics renders topics as a Python list literal, the format of
// existing datasets: ['a', 'b'].
func FormatTopics(topics []string) string {
	if len(topics) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, t := range topics {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(strings.ReplaceAll(t, "'", `\'`))
		b.WriteByte('\'')
	}
	b.WriteByte(']')
	return b.String()
}

// ParseTopics reads a Python or JSON list of strings. Blank input yields nil.
func ParseTopics(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if len(part) >= 2 && (part[0] == '\'' || part[0] == '"') && part[len(part)-1] == part[0] {
			part = part[1 : len(part)-1]
		}
		part = strings.ReplaceAll(part, `\'`, "'")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
