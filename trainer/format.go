// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"fmt"

	"github.com/go-a2a/rewardtrainer/dataset"
	"github.com/go-a2a/rewardtrainer/types"
)

// Formatter shapes the labels column of every fold for one training task.
//
// Format must not modify folds. It returns a new mapping whose values are
// either the caller's table, for folds it leaves alone, or a new table.
type Formatter interface {
	// ProblemType returns the task tag handed to the model registry.
	ProblemType() types.ProblemType

	// Format returns folds with labels shaped for the task.
	Format(folds dataset.Folds, numLabels int) (dataset.Folds, error)
}

// Regression formats labels for scalar reward regression.
type Regression struct{}

var _ Formatter = Regression{}

// ProblemType implements [Formatter].
func (Regression) ProblemType() types.ProblemType {
	return types.ProblemTypeRegression
}

// Format implements [Formatter]. Labels of every fold are cast to float32
// with their shape unchanged.
func (Regression) Format(folds dataset.Folds, _ int) (dataset.Folds, error) {
	out, err := folds.CastColumn(dataset.LabelsColumn, dataset.Float32)
	if err != nil {
		return nil, fmt.Errorf("format regression labels: %w", err)
	}
	return out, nil
}

// Classification formats labels for single-label classification.
type Classification struct{}

var _ Formatter = Classification{}

// ProblemType implements [Formatter].
func (Classification) ProblemType() types.ProblemType {
	return types.ProblemTypeSingleLabelClassification
}

// Format implements [Formatter].
//
// Folds with one label per example are cast to int64 and expanded into
// one-hot vectors of length numLabels; the labels column moves to the last
// position. Folds whose labels already have one vector per example are
// returned as they are.
func (Classification) Format(folds dataset.Folds, numLabels int) (dataset.Folds, error) {
	out := folds.Clone()
	for _, name := range folds.Names() {
		tbl := folds[name]
		col, err := tbl.Column(dataset.LabelsColumn)
		if err != nil {
			return nil, fmt.Errorf("fold %q: %w", name, err)
		}
		if col.Rank() != 1 {
			continue
		}

		tbl, err = tbl.CastColumn(dataset.LabelsColumn, dataset.Int64)
		if err != nil {
			return nil, fmt.Errorf("fold %q: %w", name, err)
		}
		tbl, err = oneHotLabels(tbl, numLabels)
		if err != nil {
			return nil, fmt.Errorf("fold %q: %w", name, err)
		}
		out[name] = tbl
	}
	return out, nil
}

func oneHotLabels(tbl *dataset.Table, numLabels int) (*dataset.Table, error) {
	col, err := tbl.Column(dataset.LabelsColumn)
	if err != nil {
		return nil, err
	}
	labels := make([]int64, col.Len())
	for i := range labels {
		labels[i] = col.Value(i).(int64)
	}
	onehot, err := OneHot(labels, numLabels)
	if err != nil {
		return nil, err
	}

	tbl, err = tbl.RemoveColumn(dataset.LabelsColumn)
	if err != nil {
		return nil, err
	}
	return tbl.AddColumn(dataset.LabelsColumn, onehot)
}

// OneHot returns a [len(labels), numLabels] int64 column with a 1 at each label's index.
//
// It fails with [types.ErrLabelCardinality] when labels holds more than
// numLabels distinct values and with [types.ErrLabelOutOfRange] when a label
// is outside [0, numLabels).
func OneHot(labels []int64, numLabels int) (*dataset.TensorColumn, error) {
	if numLabels < 1 {
		return nil, fmt.Errorf("num_labels must be positive, got %d", numLabels)
	}

	distinct := make(map[int64]struct{}, numLabels)
	for _, l := range labels {
		distinct[l] = struct{}{}
	}
	if len(distinct) > numLabels {
		return nil, fmt.Errorf("%w: %d distinct labels, num_labels is %d", types.ErrLabelCardinality, len(distinct), numLabels)
	}

	rows := make([][]int64, len(labels))
	for i, l := range labels {
		if l < 0 || l >= int64(numLabels) {
			return nil, fmt.Errorf("%w: example %d has label %d, want [0, %d)", types.ErrLabelOutOfRange, i, l, numLabels)
		}
		row := make([]int64, numLabels)
		row[l] = 1
		rows[i] = row
	}
	return dataset.Int64Vectors(rows, numLabels)
}
