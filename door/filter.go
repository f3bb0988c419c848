package door

import "slices"

// FilterMode decides how a list of values in a Filter is used.
type FilterMode uint8

const (
	FilterIgnore FilterMode = iota
	// FilterBlacklist filters out doors whose value is in the list.
	FilterBlacklist
	// FilterWhitelist filters out doors whose value is not in the list.
	FilterWhitelist
)

// Filter is used by targeting code to skip doors based on their state and policies.
type Filter struct {
	StateMode FilterMode
	States    []State

	DirectionMode FilterMode
	Directions    []Direction

	AccessMode FilterMode
	Accesses   []Access

	OpenDirectionMode FilterMode
	OpenDirections    []OpenDirection
}

// Filtered returns true if d should be skipped. A nil door is always filtered.
func (f Filter) Filtered(d *Door) bool {
	if d == nil {
		return true
	}
	return filtered(f.StateMode, d.State(), f.States) ||
		filtered(f.DirectionMode, d.Direction(), f.Directions) ||
		filtered(f.AccessMode, d.Access(), f.Accesses) ||
		filtered(f.OpenDirectionMode, d.OpenDirection(), f.OpenDirections)
}

func filtered[T comparable](mode FilterMode, v T, list []T) bool {
	switch mode {
	case FilterBlacklist:
		return slices.Contains(list, v)
	case FilterWhitelist:
		return !slices.Contains(list, v)
	}
	return false
}
