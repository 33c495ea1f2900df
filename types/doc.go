// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package types provides the core interfaces and contracts shared by the reward trainer.
//
// The trainer itself owns hyperparameters and label formatting only; everything
// else is delegated to collaborators defined here:
//
//   - TokenizerLoader/Tokenizer: loads the tokenizer used by the training engine
//   - ModelRegistry/RewardModel: resolves a checkpoint name into a sequence-classification model
//   - EngineFactory/TrainingEngine: runs the actual training job
//   - ArtifactService: the remote registry models and tokenizers are published to
//
// # Training arguments
//
// [TrainingArguments] is the snapshot of hyperparameters passed to the engine:
//
//	args := &types.TrainingArguments{
//		OutputDir:                 "out",
//		LearningRate:              2e-5,
//		NumTrainEpochs:            1,
//		LoggingDir:                types.LogsDir("out"),
//		LoggingStrategy:           types.IntervalSteps,
//		LoggingSteps:              50,
//		EvaluationStrategy:        types.IntervalNo,
//		SaveStrategy:              types.IntervalNo,
//		Optim:                     types.OptimizerAdamWHF,
//		Seed:                      1,
//		PerDeviceTrainBatchSize:   8,
//		PerDeviceEvalBatchSize:    8,
//		GradientAccumulationSteps: 1,
//	}
//
// # Errors
//
// [NotImplementedError] is returned when a trainer without a task-specific
// formatter is asked to fit. [ErrLabelCardinality] and [ErrLabelOutOfRange]
// report classification labels that do not fit the configured head.
package types
