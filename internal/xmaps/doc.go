// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package xmaps provides generic map helpers complementing the standard maps package.
//
// Fold maps are iterated through [SortedKeys] so that every fold operation and
// every log line follows a deterministic order:
//
//	for _, name := range xmaps.SortedKeys(folds) {
//		...
//	}
package xmaps
