// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"maps"

	"github.com/go-a2a/rewardtrainer/internal/xmaps"
)

// Well known fold names.
const (
	TrainFold      = "train"
	ValidationFold = "validation"
	TestFold       = "test"
)

// Folds maps a fold name such as "train" or "validation" to its table.
type Folds map[string]*Table

// Clone returns a shallow copy of f. Tables are shared with f.
func (f Folds) Clone() Folds {
	if f == nil {
		return Folds{}
	}
	return maps.Clone(f)
}

// Names returns the fold names in ascending order.
func (f Folds) Names() []string {
	return xmaps.SortedKeys(f)
}

// Has reports whether f has a fold called name.
func (f Folds) Has(name string) bool {
	return xmaps.Contains(f, name)
}

// CastColumn returns a copy of f in which column of every fold is cast to dtype.
//
// Folds that already hold dtype elements keep their table.
func (f Folds) CastColumn(column string, dtype DType) (Folds, error) {
	out := f.Clone()
	for _, name := range f.Names() {
		t, err := f[name].CastColumn(column, dtype)
		if err != nil {
			return nil, fmt.Errorf("fold %q: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}
