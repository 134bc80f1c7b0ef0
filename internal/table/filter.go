package table

import "strings"

// Filter keeps the records whose searchable fields contain query, compared
// case-insensitively. A blank query keeps everything. The result is a new
// slice in the original relative order.
func Filter[T Record](s *Schema[T], records []T, query string) []T {
	q := normalizeQuery(query)
	out := make([]T, 0, len(records))
	for _, r := range records {
		if s.matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single record passes the filter for query.
func (s *Schema[T]) Matches(r T, query string) bool {
	return s.matches(r, normalizeQuery(query))
}

func (s *Schema[T]) matches(r T, q string) bool {
	if q == "" {
		return true
	}
	for _, text := range s.searchText(r) {
		if strings.Contains(text, q) {
			return true
		}
	}
	return false
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
