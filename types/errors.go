// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"

	"github.com/go-a2a/rewardtrainer/dataset"
)

// NotImplementedError is the error type for unimplemented behaviour.
type NotImplementedError string

// Error returns a string representation of the [NotImplementedError].
func (e NotImplementedError) Error() string {
	return string(e)
}

var (
	// ErrLabelCardinality reports more distinct label values than the classification head has outputs.
	ErrLabelCardinality = errors.New("number of distinct labels exceeds num_labels")

	// ErrLabelOutOfRange reports a class label outside [0, num_labels).
	ErrLabelOutOfRange = errors.New("label out of range")

	// ErrMissingColumn reports a fold without a column the trainer needs.
	ErrMissingColumn = dataset.ErrMissingColumn

	// ErrMissingFold reports a dataset without a fold required by the training engine.
	ErrMissingFold = errors.New("missing dataset fold")

	// ErrNotInstantiated reports a lifecycle call made before the handle it needs was built.
	ErrNotInstantiated = errors.New("not instantiated")
)
