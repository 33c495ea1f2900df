// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"log/slog"

	"github.com/go-a2a/rewardtrainer/types"
)

// hyperparameters are the values [Trainer.TrainingConfig] is built from.
type hyperparameters struct {
	numLabels                 int
	learningRate              float64
	numTrainEpochs            int
	optim                     types.Optimizer
	bf16                      bool
	loggingStrategy           types.IntervalStrategy
	loggingSteps              int
	evalStrategy              types.IntervalStrategy
	evalSteps                 *int
	saveStrategy              types.IntervalStrategy
	saveSteps                 *int
	perDeviceBatchSize        int
	gradientAccumulationSteps int
	trainSeed                 int
	deviceMap                 string
}

func defaultHyperparameters() hyperparameters {
	return hyperparameters{
		numLabels:                 1,
		learningRate:              2e-5,
		numTrainEpochs:            1,
		optim:                     types.OptimizerAdamWHF,
		bf16:                      false,
		loggingStrategy:           types.IntervalSteps,
		loggingSteps:              50,
		evalStrategy:              types.IntervalNo,
		saveStrategy:              types.IntervalNo,
		perDeviceBatchSize:        8,
		gradientAccumulationSteps: 1,
		trainSeed:                 1,
		deviceMap:                 types.DeviceMapAuto,
	}
}

// Option is a functional option for configuring a [Trainer].
type Option func(*Trainer)

// WithNumLabels sets the output dimensionality of the classification head.
func WithNumLabels(n int) Option {
	return func(t *Trainer) {
		t.hp.numLabels = n
	}
}

// WithLearningRate sets the initial learning rate.
func WithLearningRate(lr float64) Option {
	return func(t *Trainer) {
		t.hp.learningRate = lr
	}
}

// WithNumTrainEpochs sets the number of passes over the train fold.
func WithNumTrainEpochs(n int) Option {
	return func(t *Trainer) {
		t.hp.numTrainEpochs = n
	}
}

// WithOptim sets the optimizer algorithm.
func WithOptim(optim types.Optimizer) Option {
	return func(t *Trainer) {
		t.hp.optim = optim
	}
}

// WithBF16 toggles bfloat16 mixed precision training.
func WithBF16(enabled bool) Option {
	return func(t *Trainer) {
		t.hp.bf16 = enabled
	}
}

// WithLoggingStrategy sets the training log cadence.
func WithLoggingStrategy(strategy types.IntervalStrategy, steps int) Option {
	return func(t *Trainer) {
		t.hp.loggingStrategy = strategy
		t.hp.loggingSteps = steps
	}
}

// WithEvalStrategy sets the validation cadence. steps <= 0 leaves eval_steps unset.
func WithEvalStrategy(strategy types.IntervalStrategy, steps int) Option {
	return func(t *Trainer) {
		t.hp.evalStrategy = strategy
		t.hp.evalSteps = optionalSteps(steps)
	}
}

// WithSaveStrategy sets the checkpoint cadence. steps <= 0 leaves save_steps unset.
func WithSaveStrategy(strategy types.IntervalStrategy, steps int) Option {
	return func(t *Trainer) {
		t.hp.saveStrategy = strategy
		t.hp.saveSteps = optionalSteps(steps)
	}
}

func optionalSteps(steps int) *int {
	if steps <= 0 {
		return nil
	}
	return types.ToPtr(steps)
}

// WithPerDeviceBatchSize sets the per-device batch size used for both training and evaluation.
func WithPerDeviceBatchSize(n int) Option {
	return func(t *Trainer) {
		t.hp.perDeviceBatchSize = n
	}
}

// WithGradientAccumulationSteps sets the number of steps accumulated before an optimizer update.
func WithGradientAccumulationSteps(n int) Option {
	return func(t *Trainer) {
		t.hp.gradientAccumulationSteps = n
	}
}

// WithTrainSeed sets the seed of the training randomness.
func WithTrainSeed(seed int) Option {
	return func(t *Trainer) {
		t.hp.trainSeed = seed
	}
}

// WithDeviceMap sets the placement policy for model weights, e.g. [types.DeviceMapAuto].
func WithDeviceMap(deviceMap string) Option {
	return func(t *Trainer) {
		t.hp.deviceMap = deviceMap
	}
}

// WithModelRegistry sets the registry pretrained checkpoints are resolved through.
func WithModelRegistry(registry types.ModelRegistry) Option {
	return func(t *Trainer) {
		t.registry = registry
	}
}

// WithEngineFactory sets the factory of the training engine.
func WithEngineFactory(factory types.EngineFactory) Option {
	return func(t *Trainer) {
		t.engines = factory
	}
}

// WithArtifactService sets the registry [Trainer.PushToHub] publishes to.
func WithArtifactService(svc types.ArtifactService) Option {
	return func(t *Trainer) {
		t.artifacts = svc
	}
}

// WithLogger sets a custom logger for the trainer.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trainer) {
		t.logger = logger
	}
}
