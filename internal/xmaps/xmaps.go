// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package xmaps

import (
	"cmp"
	"maps"
	"slices"
)

// Contains reports whether key is present in m.
func Contains[Map ~map[K]V, K comparable, V any](m Map, key K) bool {
	_, ok := m[key]
	return ok
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[Map ~map[K]V, K cmp.Ordered, V any](m Map) []K {
	return slices.Sorted(maps.Keys(m))
}

// Missing returns the keys, in the order given, that are absent from m.
func Missing[Map ~map[K]V, K comparable, V any](m Map, keys ...K) []K {
	var missing []K
	for _, k := range keys {
		if !Contains(m, k) {
			missing = append(missing, k)
		}
	}
	return missing
}
