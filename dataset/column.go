// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Column is a single named column of a [Table].
type Column interface {
	// Len returns the number of examples in the column.
	Len() int

	// Rank returns 1 for one scalar per example, 2 for one vector per example.
	Rank() int

	// Value returns the value of example i: a scalar, a string or a slice.
	Value(i int) any
}

// TensorColumn is a numeric column backed by a gomlx tensor whose first axis is the example axis.
type TensorColumn struct {
	t *tensors.Tensor

	once sync.Once
	rows reflect.Value
}

var _ Column = (*TensorColumn)(nil)

// NewTensorColumn wraps t as a column. t must have at least one axis.
func NewTensorColumn(t *tensors.Tensor) (*TensorColumn, error) {
	if t == nil {
		return nil, errors.New("nil tensor")
	}
	if t.Shape().Rank() < 1 {
		return nil, fmt.Errorf("tensor of shape %s has no example axis", t.Shape())
	}
	return &TensorColumn{t: t}, nil
}

// Tensor returns the backing tensor.
func (c *TensorColumn) Tensor() *tensors.Tensor {
	return c.t
}

// Dimensions returns a copy of the tensor dimensions.
func (c *TensorColumn) Dimensions() []int {
	return slices.Clone(c.t.Shape().Dimensions)
}

// Len implements [Column].
func (c *TensorColumn) Len() int {
	return c.t.Shape().Dimensions[0]
}

// Rank implements [Column].
func (c *TensorColumn) Rank() int {
	return c.t.Shape().Rank()
}

// Value implements [Column].
func (c *TensorColumn) Value(i int) any {
	return c.goValue().Index(i).Interface()
}

// Kind returns the Go kind of the tensor elements, e.g. [reflect.Int64].
func (c *TensorColumn) Kind() reflect.Kind {
	typ := c.goValue().Type()
	for typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	return typ.Kind()
}

// goValue returns the tensor as nested Go slices, converting it once.
func (c *TensorColumn) goValue() reflect.Value {
	c.once.Do(func() {
		c.rows = reflect.ValueOf(c.t.Value())
	})
	return c.rows
}

// StringColumn is a text column.
type StringColumn []string

var _ Column = StringColumn(nil)

// Len implements [Column].
func (c StringColumn) Len() int { return len(c) }

// Rank implements [Column].
func (c StringColumn) Rank() int { return 1 }

// Value implements [Column].
func (c StringColumn) Value(i int) any { return c[i] }

// element is the set of tensor element types columns are built from.
type element interface {
	int64 | float32 | float64
}

func fromFlat[T element](flat []T, dims ...int) *TensorColumn {
	return &TensorColumn{t: tensors.FromFlatDataAndDimensions(flat, dims...)}
}

func scalars[T element](values []T) *TensorColumn {
	return fromFlat(slices.Clone(values), len(values))
}

func vectors[T element](values [][]T, width int) (*TensorColumn, error) {
	flat := make([]T, 0, len(values)*width)
	for i, v := range values {
		if len(v) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrLengthMismatch, i, len(v), width)
		}
		flat = append(flat, v...)
	}
	return fromFlat(flat, len(values), width), nil
}

// Int64s returns a rank 1 int64 column.
func Int64s(values ...int64) *TensorColumn { return scalars(values) }

// Float32s returns a rank 1 float32 column.
func Float32s(values ...float32) *TensorColumn { return scalars(values) }

// Float64s returns a rank 1 float64 column.
func Float64s(values ...float64) *TensorColumn { return scalars(values) }

// Int64Vectors returns a rank 2 int64 column of shape [len(values), width].
func Int64Vectors(values [][]int64, width int) (*TensorColumn, error) { return vectors(values, width) }

// Float32Vectors returns a rank 2 float32 column of shape [len(values), width].
func Float32Vectors(values [][]float32, width int) (*TensorColumn, error) {
	return vectors(values, width)
}

// Float64Vectors returns a rank 2 float64 column of shape [len(values), width].
func Float64Vectors(values [][]float64, width int) (*TensorColumn, error) {
	return vectors(values, width)
}
