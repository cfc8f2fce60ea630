// internal/app/system/normalize/normalize.go
package normalize

import "strings"

// Email trims and lowercases an address for lookups and rate-limit keys.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Domain lowercases a mail domain and drops a leading "@".
func Domain(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// List trims every entry and drops the blank ones. The result is never nil.
func List(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
