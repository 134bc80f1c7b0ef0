// Package table implements the leaderboard table view model: sort state
// transitions, comparator construction, text filtering, time-frame and tab
// scoping, and the wallet gate in front of state-mutating actions.
package table

import (
	"fmt"
	"strings"
)

// Direction is the ordering applied to the sort key.
type Direction string

// Sort directions. None means natural rank order.
const (
	None       Direction = "none"
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection reads a direction from user input. The empty string is None.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return None, fmt.Errorf("unknown sort direction %q", s)
}

// SortState is the authoritative sort of one table view.
type SortState struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort is the initial state: the default key, unsorted.
func DefaultSort(defaultKey string) SortState {
	return SortState{Key: defaultKey, Direction: None}
}

// Active reports whether the state orders by its key rather than by rank.
func (s SortState) Active() bool {
	return s.Direction == Ascending || s.Direction == Descending
}

// NextSort computes the state that follows a click on the requested column.
//
// Same-key clicks cycle ascending, descending, then reset to the default key
// with no direction. A different key, or any key while unsorted, starts at
// ascending.
func NextSort(current SortState, requested, defaultKey string) SortState {
	if requested != current.Key || !current.Active() {
		return SortState{Key: requested, Direction: Ascending}
	}
	if current.Direction == Ascending {
		return SortState{Key: requested, Direction: Descending}
	}
	return DefaultSort(defaultKey)
}
