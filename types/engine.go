// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"

	"github.com/go-a2a/rewardtrainer/dataset"
)

// EngineInput is everything a training engine is bound to.
type EngineInput struct {
	Model     RewardModel
	Tokenizer Tokenizer
	Args      *TrainingArguments

	// TrainDataset is the formatted "train" fold.
	TrainDataset *dataset.Table

	// EvalDataset is the formatted "validation" fold, or nil.
	EvalDataset *dataset.Table
}

// TrainingEngine runs a training job to completion.
type TrainingEngine interface {
	// Train blocks until training finishes or fails.
	Train(ctx context.Context) error
}

// EngineFactory builds training engines.
type EngineFactory interface {
	NewEngine(ctx context.Context, input *EngineInput) (TrainingEngine, error)
}

// EngineFactoryFunc adapts a function to [EngineFactory].
type EngineFactoryFunc func(ctx context.Context, input *EngineInput) (TrainingEngine, error)

// NewEngine implements [EngineFactory].
func (f EngineFactoryFunc) NewEngine(ctx context.Context, input *EngineInput) (TrainingEngine, error) {
	return f(ctx, input)
}
