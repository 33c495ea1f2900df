// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// LabelsColumn is the column the trainer formats and the engine trains against.
const LabelsColumn = "labels"

// Table is an immutable set of named columns of equal length.
type Table struct {
	names   []string
	columns map[string]Column
	numRows int
}

// New builds a table from columns. Column order follows the sorted names.
func New(columns map[string]Column) (*Table, error) {
	t := &Table{columns: make(map[string]Column, len(columns))}
	for _, name := range slices.Sorted(maps.Keys(columns)) {
		if err := t.add(name, columns[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(name string, col Column) error {
	if col == nil {
		return fmt.Errorf("column %q is nil", name)
	}
	if _, ok := t.columns[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(t.names) == 0 {
		t.numRows = col.Len()
	} else if col.Len() != t.numRows {
		return fmt.Errorf("%w: column %q has %d rows, table has %d", ErrLengthMismatch, name, col.Len(), t.numRows)
	}
	t.names = append(t.names, name)
	t.columns[name] = col
	return nil
}

func (t *Table) clone() *Table {
	return &Table{
		names:   slices.Clone(t.names),
		columns: maps.Clone(t.columns),
		numRows: t.numRows,
	}
}

// NumRows returns the number of examples.
func (t *Table) NumRows() int {
	return t.numRows
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	return slices.Clone(t.names)
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the column called name.
func (t *Table) Column(name string) (Column, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return col, nil
}

// Tensor returns the tensor backing the numeric column called name.
func (t *Table) Tensor(name string) (*tensors.Tensor, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	tc, ok := col.(*TensorColumn)
	if !ok {
		return nil, fmt.Errorf("%w: column %q is %T", ErrNotNumeric, name, col)
	}
	return tc.Tensor(), nil
}

// AddColumn returns a copy of t with col appended as the last column.
func (t *Table) AddColumn(name string, col Column) (*Table, error) {
	out := t.clone()
	if err := out.add(name, col); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveColumn returns a copy of t without the column called name.
func (t *Table) RemoveColumn(name string) (*Table, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	out := t.clone()
	out.names = slices.DeleteFunc(out.names, func(n string) bool { return n == name })
	delete(out.columns, name)
	if len(out.names) == 0 {
		out.numRows = 0
	}
	return out, nil
}

// ReplaceColumn returns a copy of t whose column called name is col, keeping its position.
func (t *Table) ReplaceColumn(name string, col Column) (*Table, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	if col.Len() != t.numRows {
		return nil, fmt.Errorf("%w: column %q has %d rows, table has %d", ErrLengthMismatch, name, col.Len(), t.numRows)
	}
	out := t.clone()
	out.columns[name] = col
	return out, nil
}

// CastColumn returns a copy of t whose column called name is converted to dtype.
func (t *Table) CastColumn(name string, dtype DType) (*Table, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	cast, err := Cast(col, dtype)
	if err != nil {
		return nil, fmt.Errorf("cast column %q: %w", name, err)
	}
	if cast == col {
		return t, nil
	}
	return t.ReplaceColumn(name, cast)
}

// Rows yields every example as a map from column name to value.
func (t *Table) Rows() iter.Seq2[int, map[string]any] {
	return func(yield func(int, map[string]any) bool) {
		for i := range t.numRows {
			row := make(map[string]any, len(t.names))
			for _, name := range t.names {
				row[name] = t.columns[name].Value(i)
			}
			if !yield(i, row) {
				return
			}
		}
	}
}
