// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"
	"fmt"
)

// IntervalStrategy is the cadence at which the engine logs, evaluates or checkpoints.
type IntervalStrategy string

const (
	IntervalNo    IntervalStrategy = "no"
	IntervalSteps IntervalStrategy = "steps"
	IntervalEpoch IntervalStrategy = "epoch"
)

// Valid reports whether s is a strategy understood by the training engine.
func (s IntervalStrategy) Valid() bool {
	switch s {
	case IntervalNo, IntervalSteps, IntervalEpoch:
		return true
	}
	return false
}

// Optimizer names the optimizer algorithm used by the training engine.
type Optimizer string

const (
	OptimizerAdamWHF    Optimizer = "adamw_hf"
	OptimizerAdamWTorch Optimizer = "adamw_torch"
	OptimizerAdafactor  Optimizer = "adafactor"
	OptimizerSGD        Optimizer = "sgd"
)

// LogsDirName is the directory under the output dir where the engine writes its logs.
const LogsDirName = "logs"

// TrainingArguments is the resolved set of hyperparameters handed to the training engine.
//
// The JSON field names are the ones the engine reads from training_args.json.
type TrainingArguments struct {
	// OutputDir is where checkpoints and the final weights are written.
	OutputDir string `json:"output_dir"`

	LearningRate   float64 `json:"learning_rate"`
	NumTrainEpochs int     `json:"num_train_epochs"`

	// LoggingDir is always {OutputDir}/logs.
	LoggingDir      string           `json:"logging_dir"`
	LoggingStrategy IntervalStrategy `json:"logging_strategy"`
	LoggingSteps    int              `json:"logging_steps"`

	EvaluationStrategy IntervalStrategy `json:"evaluation_strategy"`
	EvalSteps          *int             `json:"eval_steps,omitempty"`

	SaveStrategy IntervalStrategy `json:"save_strategy"`
	SaveSteps    *int             `json:"save_steps,omitempty"`

	// BF16 enables bfloat16 mixed precision training.
	BF16 bool `json:"bf16"`

	Optim            Optimizer `json:"optim"`
	LoggingFirstStep bool      `json:"logging_first_step"`
	Seed             int       `json:"seed"`

	// PerDeviceTrainBatchSize and PerDeviceEvalBatchSize always carry the same value.
	PerDeviceTrainBatchSize   int `json:"per_device_train_batch_size"`
	PerDeviceEvalBatchSize    int `json:"per_device_eval_batch_size"`
	GradientAccumulationSteps int `json:"gradient_accumulation_steps"`
}

// LogsDir returns "{outputDir}/logs". Remote prefixes such as gs://bucket/run keep their scheme.
func LogsDir(outputDir string) string {
	return outputDir + "/" + LogsDirName
}

// Validate reports every inconsistency in the arguments.
func (a *TrainingArguments) Validate() error {
	var errs []error
	if a.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if a.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("learning_rate must be positive, got %g", a.LearningRate))
	}
	if a.NumTrainEpochs <= 0 {
		errs = append(errs, fmt.Errorf("num_train_epochs must be positive, got %d", a.NumTrainEpochs))
	}
	if a.PerDeviceTrainBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("per_device_batch_size must be positive, got %d", a.PerDeviceTrainBatchSize))
	}
	if a.GradientAccumulationSteps <= 0 {
		errs = append(errs, fmt.Errorf("gradient_accumulation_steps must be positive, got %d", a.GradientAccumulationSteps))
	}
	for name, s := range map[string]IntervalStrategy{
		"logging_strategy":    a.LoggingStrategy,
		"evaluation_strategy": a.EvaluationStrategy,
		"save_strategy":       a.SaveStrategy,
	} {
		if !s.Valid() {
			errs = append(errs, fmt.Errorf("%s: unknown strategy %q", name, s))
		}
	}
	if a.LoggingStrategy == IntervalSteps && a.LoggingSteps <= 0 {
		errs = append(errs, fmt.Errorf("logging_steps must be positive with the steps strategy, got %d", a.LoggingSteps))
	}
	if a.Optim == "" {
		errs = append(errs, errors.New("optim is required"))
	}
	return errors.Join(errs...)
}
