package table

import "sort"

// Comparator builds the ordering for state. With no direction it orders by
// natural rank and ignores the key. An unknown key yields a comparator that
// treats every pair as equal, so a stable sort leaves the input order intact.
func (s *Schema[T]) Comparator(state SortState) func(a, b T) int {
	if !state.Active() {
		return func(a, b T) int { return compareInts(a.RecordRank(), b.RecordRank()) }
	}

	field, ok := s.fields[state.Key]
	if !ok {
		return func(a, b T) int { return 0 }
	}

	sign := 1
	if state.Direction == Descending {
		sign = -1
	}
	return func(a, b T) int {
		return sign * Compare(field.Value(a), field.Value(b))
	}
}

// Sort returns records ordered by state. The sort is stable and the input
// slice is never modified.
func Sort[T Record](s *Schema[T], records []T, state SortState) []T {
	out := make([]T, len(records))
	copy(out, records)

	cmp := s.Comparator(state)
	sort.SliceStable(out, func(i, j int) bool {
		return cmp(out[i], out[j]) < 0
	})
	return out
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
