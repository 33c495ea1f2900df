// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/go-a2a/rewardtrainer/internal/pool"
	"github.com/go-a2a/rewardtrainer/internal/xmaps"
)

// JSONLExt is the file extension of a fold file.
const JSONLExt = ".jsonl"

// maxLineSize bounds a single example line.
const maxLineSize = 64 << 20

// flushSize is the amount of encoded rows [WriteJSONL] buffers before writing.
const flushSize = 1 << 20

// decoder keeps integers as [json.Number] so int64 labels are not routed through float64.
var decoder = sonic.Config{UseNumber: true}.Froze()

// ReadJSONL reads one JSON object per line into a table.
//
// Every object must have the same keys. Column types are inferred from the
// values: strings become a [StringColumn], numbers an int64 or float64 column,
// arrays of numbers of one length an int64 or float64 vector column.
func ReadJSONL(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	var rows []map[string]any
	for line := 1; sc.Scan(); line++ {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var row map[string]any
		if err := decoder.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	if len(rows) == 0 {
		return New(nil)
	}

	names := xmaps.SortedKeys(rows[0])
	columns := make(map[string]Column, len(names))
	for _, name := range names {
		values := make([]any, len(rows))
		for i, row := range rows {
			v, ok := row[name]
			if !ok {
				return nil, fmt.Errorf("%w: row %d has no %q", ErrMissingColumn, i, name)
			}
			values[i] = v
		}
		col, err := inferColumn(values)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		columns[name] = col
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrLengthMismatch, i, len(row), len(names))
		}
	}
	return New(columns)
}

func inferColumn(values []any) (Column, error) {
	switch values[0].(type) {
	case string:
		out := make(StringColumn, len(values))
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("row %d: got %T, want string", i, v)
			}
			out[i] = s
		}
		return out, nil
	case json.Number:
		nums := make([]json.Number, len(values))
		for i, v := range values {
			n, ok := v.(json.Number)
			if !ok {
				return nil, fmt.Errorf("%w: row %d: got %T", ErrNotNumeric, i, v)
			}
			nums[i] = n
		}
		if ints, ok := parseInts(nums); ok {
			return Int64s(ints...), nil
		}
		floats, err := parseFloats(nums)
		if err != nil {
			return nil, err
		}
		return Float64s(floats...), nil
	case []any:
		return inferVectors(values)
	}
	return nil, fmt.Errorf("unsupported value of type %T", values[0])
}

func inferVectors(values []any) (Column, error) {
	width := -1
	var flat []json.Number
	for i, v := range values {
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d: got %T, want array", i, v)
		}
		if width < 0 {
			width = len(arr)
		}
		if len(arr) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrLengthMismatch, i, len(arr), width)
		}
		for _, e := range arr {
			n, ok := e.(json.Number)
			if !ok {
				return nil, fmt.Errorf("%w: row %d holds %T", ErrNotNumeric, i, e)
			}
			flat = append(flat, n)
		}
	}
	if ints, ok := parseInts(flat); ok {
		return fromFlat(ints, len(values), width), nil
	}
	floats, err := parseFloats(flat)
	if err != nil {
		return nil, err
	}
	return fromFlat(floats, len(values), width), nil
}

func parseInts(nums []json.Number) ([]int64, bool) {
	out := make([]int64, len(nums))
	for i, n := range nums {
		v, err := n.Int64()
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseFloats(nums []json.Number) ([]float64, error) {
	out := make([]float64, len(nums))
	for i, n := range nums {
		v, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNotNumeric, n)
		}
		out[i] = v
	}
	return out, nil
}

// WriteJSONL writes every row of t as one JSON object per line.
func WriteJSONL(w io.Writer, t *Table) error {
	buf := pool.Buffer.Get()
	defer func() {
		buf.Reset()
		pool.Buffer.Put(buf)
	}()

	enc := sonic.ConfigStd.NewEncoder(buf)
	for i, row := range t.Rows() {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if buf.Len() >= flushSize {
			if _, err := buf.WriteTo(w); err != nil {
				return err
			}
		}
	}
	_, err := buf.WriteTo(w)
	return err
}

// LoadFolds reads every {fold}.jsonl file in dir.
func LoadFolds(dir string) (Folds, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folds dir: %w", err)
	}
	folds := Folds{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != JSONLExt {
			continue
		}
		t, err := readJSONLFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		folds[strings.TrimSuffix(e.Name(), JSONLExt)] = t
	}
	if len(folds) == 0 {
		return nil, fmt.Errorf("no %s files in %s", JSONLExt, dir)
	}
	return folds, nil
}

func readJSONLFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// SaveFolds writes every fold of folds to dir as {fold}.jsonl.
func SaveFolds(dir string, folds Folds) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range folds.Names() {
		if err := writeJSONLFile(filepath.Join(dir, name+JSONLExt), folds[name]); err != nil {
			return fmt.Errorf("fold %q: %w", name, err)
		}
	}
	return nil
}

func writeJSONLFile(path string, t *Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return WriteJSONL(f, t)
}
