// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

// ProblemType tags the training task consumed by the model registry when it
// builds the classification head.
type ProblemType string

const (
	// ProblemTypeRegression trains a scalar (or vector) regression head with an MSE loss.
	ProblemTypeRegression ProblemType = "regression"

	// ProblemTypeSingleLabelClassification trains a softmax head over num_labels classes.
	ProblemTypeSingleLabelClassification ProblemType = "single_label_classification"
)

// String implements [fmt.Stringer].
func (p ProblemType) String() string {
	return string(p)
}
