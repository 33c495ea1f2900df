// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import "errors"

var (
	// ErrMissingColumn reports a lookup of a column the table does not have.
	ErrMissingColumn = errors.New("missing column")

	// ErrDuplicateColumn reports adding a column whose name is already taken.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrLengthMismatch reports a column whose length differs from the table's row count.
	ErrLengthMismatch = errors.New("column length mismatch")

	// ErrNotNumeric reports a numeric operation on a non-numeric column or value.
	ErrNotNumeric = errors.New("not numeric")
)
