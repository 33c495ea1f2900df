// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"math"
	"reflect"
)

// DType is the element type a numeric column can be cast to.
type DType string

const (
	Float32 DType = "float32"
	Int64   DType = "int64"
)

func (d DType) kind() reflect.Kind {
	switch d {
	case Float32:
		return reflect.Float32
	case Int64:
		return reflect.Int64
	}
	return reflect.Invalid
}

// Cast converts the elements of col to dtype, keeping its shape.
//
// Cast returns col itself when it already holds dtype elements. Casting a
// float with a fractional part to [Int64] fails.
func Cast(col Column, dtype DType) (Column, error) {
	if dtype.kind() == reflect.Invalid {
		return nil, fmt.Errorf("unknown dtype %q", dtype)
	}
	tc, ok := col.(*TensorColumn)
	if !ok {
		return nil, fmt.Errorf("%w: cannot cast %T to %s", ErrNotNumeric, col, dtype)
	}
	if tc.Kind() == dtype.kind() {
		return tc, nil
	}

	dims := tc.Dimensions()
	rows := tc.goValue()
	switch dtype {
	case Float32:
		flat := make([]float32, 0, size(dims))
		err := walk(rows, func(v reflect.Value) error {
			f, err := asFloat(v)
			flat = append(flat, float32(f))
			return err
		})
		if err != nil {
			return nil, err
		}
		return fromFlat(flat, dims...), nil
	default:
		flat := make([]int64, 0, size(dims))
		err := walk(rows, func(v reflect.Value) error {
			n, err := asInt(v)
			flat = append(flat, n)
			return err
		})
		if err != nil {
			return nil, err
		}
		return fromFlat(flat, dims...), nil
	}
}

func size(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// walk visits the scalars of nested slices in row-major order.
func walk(v reflect.Value, fn func(reflect.Value) error) error {
	if v.Kind() != reflect.Slice {
		return fn(v)
	}
	for i := range v.Len() {
		if err := walk(v.Index(i), fn); err != nil {
			return err
		}
	}
	return nil
}

func asFloat(v reflect.Value) (float64, error) {
	switch {
	case v.CanFloat():
		return v.Float(), nil
	case v.CanInt():
		return float64(v.Int()), nil
	case v.CanUint():
		return float64(v.Uint()), nil
	case v.Kind() == reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s value", ErrNotNumeric, v.Kind())
}

func asInt(v reflect.Value) (int64, error) {
	switch {
	case v.CanInt():
		return v.Int(), nil
	case v.CanUint():
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrNotNumeric, u)
		}
		return int64(u), nil
	case v.CanFloat():
		f := v.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrNotNumeric, f)
		}
		return int64(f), nil
	case v.Kind() == reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s value", ErrNotNumeric, v.Kind())
}
