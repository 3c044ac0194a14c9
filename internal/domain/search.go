package domain

import (
	"cmp"
	"sort"
)

// Side selects which insertion point SearchSorted reports when x equals
// elements of the slice.
type Side int

const (
	// SideLeft returns the first index i with sorted[i] >= x.
	SideLeft Side = iota
	// SideRight returns the first index i with sorted[i] > x.
	SideRight
)

// SearchSorted returns the insertion index of x in the ascending slice sorted.
func SearchSorted[T cmp.Ordered](sorted []T, x T, side Side) int {
	if side == SideRight {
		return sort.Search(len(sorted), func(i int) bool { return sorted[i] > x })
	}
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] >= x })
}

// FloorIndex returns the index of the last element <= x, or -1 when every
// element is greater than x.
func FloorIndex[T cmp.Ordered](sorted []T, x T) int {
	return SearchSorted(sorted, x, SideRight) - 1
}
