package document

import (
	"strings"
	"unicode"
)

// Normalize cleans extracted text for chunking: control characters and
// embedded binary artifacts are stripped, runs of spaces and tabs collapse
// to a single space, and blank-line paragraph boundaries are preserved as
// exactly one empty line.
func Normalize(raw string) string {
	var clean strings.Builder
	clean.Grow(len(raw))

	for _, r := range raw {
		switch {
		case r == '\n':
			clean.WriteRune(r)
		case r == '\t':
			clean.WriteRune(' ')
		case r == '�':
			// replacement characters from invalid byte sequences
		case unicode.IsControl(r):
		default:
			clean.WriteRune(r)
		}
	}

	lines := strings.Split(clean.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := true // swallow leading blank lines

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}

	// Drop a trailing paragraph separator.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n")
}
