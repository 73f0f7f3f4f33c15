package agegate

import "strings"

// NormalizeDomain reduces a raw domain or URL to a bare lowercase host so
// curated entries and ranking rows compare reliably. It strips scheme,
// path, query, port, a trailing dot, and a leading "www.".
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))

	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 && !strings.Contains(d[i+1:], "]") {
		// Port suffix; IPv6 literals keep their closing bracket.
		if isDigits(d[i+1:]) {
			d = d[:i]
		}
	}
	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, "www.")
	return d
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
