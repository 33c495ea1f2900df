// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-a2a/rewardtrainer/dataset"
	"github.com/go-a2a/rewardtrainer/engine"
	"github.com/go-a2a/rewardtrainer/model"
	"github.com/go-a2a/rewardtrainer/types"
)

// state holds the handles built by the lifecycle steps of a [Trainer].
type state struct {
	tokenizer types.Tokenizer
	model     types.RewardModel
	engine    types.TrainingEngine
}

// Trainer fine-tunes a pretrained sequence-classification model as a reward model.
//
// A Trainer is not safe for concurrent use.
type Trainer struct {
	modelName string
	loader    types.TokenizerLoader
	outputDir string
	formatter Formatter
	hp        hyperparameters

	registry  types.ModelRegistry
	engines   types.EngineFactory
	artifacts types.ArtifactService
	logger    *slog.Logger

	state state
}

// New returns a [Trainer] for the pretrained checkpoint modelName.
//
// formatter selects the training task. A nil formatter yields a trainer whose
// [Trainer.Fit] fails with [types.NotImplementedError]. Without
// [WithModelRegistry] checkpoints are resolved by [model.NewRegistry]; without
// [WithEngineFactory] training runs in a local process, see [engine.NewProcessFactory].
func New(modelName string, loader types.TokenizerLoader, outputDir string, formatter Formatter, opts ...Option) (*Trainer, error) {
	if modelName == "" {
		return nil, errors.New("modelName is required")
	}
	if loader == nil {
		return nil, errors.New("tokenizer loader is required")
	}

	t := &Trainer{
		modelName: modelName,
		loader:    loader,
		outputDir: outputDir,
		formatter: formatter,
		hp:        defaultHyperparameters(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.registry == nil {
		t.registry = model.NewRegistry(model.WithLogger(t.logger))
	}
	if t.engines == nil {
		t.engines = engine.NewProcessFactory(engine.WithProcessLogger(t.logger))
	}

	if t.hp.numLabels < 1 {
		return nil, fmt.Errorf("num_labels must be positive, got %d", t.hp.numLabels)
	}
	if err := t.TrainingConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid training configuration: %w", err)
	}

	return t, nil
}

// NewRegression returns a [Trainer] that fits a scalar reward head.
func NewRegression(modelName string, loader types.TokenizerLoader, outputDir string, opts ...Option) (*Trainer, error) {
	return New(modelName, loader, outputDir, Regression{}, opts...)
}

// NewClassification returns a [Trainer] that fits a single-label classification head.
func NewClassification(modelName string, loader types.TokenizerLoader, outputDir string, opts ...Option) (*Trainer, error) {
	return New(modelName, loader, outputDir, Classification{}, opts...)
}

// ModelName returns the pretrained checkpoint identifier.
func (t *Trainer) ModelName() string { return t.modelName }

// OutputDir returns the directory the engine writes weights and logs to.
func (t *Trainer) OutputDir() string { return t.outputDir }

// NumLabels returns the output dimensionality of the classification head.
func (t *Trainer) NumLabels() int { return t.hp.numLabels }

// ProblemType returns the task tag of the formatter, or "" without one.
func (t *Trainer) ProblemType() types.ProblemType {
	if t.formatter == nil {
		return ""
	}
	return t.formatter.ProblemType()
}

// Tokenizer returns the loaded tokenizer, or nil.
func (t *Trainer) Tokenizer() types.Tokenizer { return t.state.tokenizer }

// Model returns the instantiated model, or nil.
func (t *Trainer) Model() types.RewardModel { return t.state.model }

// Engine returns the instantiated training engine, or nil.
func (t *Trainer) Engine() types.TrainingEngine { return t.state.engine }

// TrainingConfig builds the training arguments from the stored hyperparameters.
//
// Every call returns a new value; mutating it does not affect the trainer.
func (t *Trainer) TrainingConfig() *types.TrainingArguments {
	return &types.TrainingArguments{
		OutputDir:                 t.outputDir,
		LearningRate:              t.hp.learningRate,
		NumTrainEpochs:            t.hp.numTrainEpochs,
		LoggingDir:                types.LogsDir(t.outputDir),
		LoggingStrategy:           t.hp.loggingStrategy,
		LoggingSteps:              t.hp.loggingSteps,
		EvaluationStrategy:        t.hp.evalStrategy,
		EvalSteps:                 types.ClonePtr(t.hp.evalSteps),
		SaveStrategy:              t.hp.saveStrategy,
		SaveSteps:                 types.ClonePtr(t.hp.saveSteps),
		BF16:                      t.hp.bf16,
		Optim:                     t.hp.optim,
		LoggingFirstStep:          false,
		Seed:                      t.hp.trainSeed,
		PerDeviceTrainBatchSize:   t.hp.perDeviceBatchSize,
		PerDeviceEvalBatchSize:    t.hp.perDeviceBatchSize,
		GradientAccumulationSteps: t.hp.gradientAccumulationSteps,
	}
}

// Fit trains the model on folds.
//
// folds must have a "train" fold and may have a "validation" fold; every
// fold needs a "labels" column. folds is not modified.
func (t *Trainer) Fit(ctx context.Context, folds dataset.Folds) error {
	if t.formatter == nil {
		return types.NotImplementedError("label formatting is not implemented: construct the trainer with a Regression or Classification formatter")
	}

	start := time.Now()
	t.logger.InfoContext(ctx, "Starting reward model training",
		slog.String("model", t.modelName),
		slog.String("problem_type", t.ProblemType().String()),
		slog.Int("num_labels", t.hp.numLabels),
		slog.String("output_dir", t.outputDir),
	)

	if err := t.LoadTokenizer(ctx); err != nil {
		return err
	}

	formatted, err := t.formatter.Format(folds, t.hp.numLabels)
	if err != nil {
		return err
	}

	if err := t.InstantiateRewardModel(ctx); err != nil {
		return err
	}
	if err := t.InstantiateRewardTrainer(ctx, formatted); err != nil {
		return err
	}

	if err := t.state.engine.Train(ctx); err != nil {
		t.logger.ErrorContext(ctx, "Training failed", slog.String("error", err.Error()))
		return fmt.Errorf("train: %w", err)
	}

	t.logger.InfoContext(ctx, "Reward model training completed",
		slog.String("model", t.modelName),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// LoadTokenizer loads the tokenizer through the injected loader.
func (t *Trainer) LoadTokenizer(ctx context.Context) error {
	tok, err := t.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	t.state.tokenizer = tok
	return nil
}

// InstantiateRewardModel resolves the pretrained checkpoint with the head
// configured for the task.
func (t *Trainer) InstantiateRewardModel(ctx context.Context) error {
	m, err := t.registry.FromPretrained(ctx, t.modelName, &types.ModelConfig{
		NumLabels:   t.hp.numLabels,
		ProblemType: t.ProblemType(),
		DeviceMap:   t.hp.deviceMap,
	})
	if err != nil {
		return fmt.Errorf("instantiate reward model %q: %w", t.modelName, err)
	}
	t.state.model = m

	t.logger.InfoContext(ctx, "Reward model instantiated",
		slog.String("model", m.Name()),
		slog.String("device_map", t.hp.deviceMap),
	)
	return nil
}

// InstantiateRewardTrainer builds the training engine bound to the model,
// the tokenizer, [Trainer.TrainingConfig] and the "train" and optional
// "validation" folds of folds.
func (t *Trainer) InstantiateRewardTrainer(ctx context.Context, folds dataset.Folds) error {
	if t.state.model == nil {
		return fmt.Errorf("instantiate training engine: model %w", types.ErrNotInstantiated)
	}
	if t.state.tokenizer == nil {
		return fmt.Errorf("instantiate training engine: tokenizer %w", types.ErrNotInstantiated)
	}
	train, ok := folds[dataset.TrainFold]
	if !ok || train == nil {
		return fmt.Errorf("%w: %q", types.ErrMissingFold, dataset.TrainFold)
	}

	eng, err := t.engines.NewEngine(ctx, &types.EngineInput{
		Model:        t.state.model,
		Tokenizer:    t.state.tokenizer,
		Args:         t.TrainingConfig(),
		TrainDataset: train,
		EvalDataset:  folds[dataset.ValidationFold],
	})
	if err != nil {
		return fmt.Errorf("instantiate training engine: %w", err)
	}
	t.state.engine = eng
	return nil
}

// Save writes the model weights to path, or to the output directory when path is empty.
func (t *Trainer) Save(ctx context.Context, path string) error {
	if t.state.model == nil {
		return fmt.Errorf("save: model %w", types.ErrNotInstantiated)
	}
	if path == "" {
		path = t.outputDir
	}
	if err := t.state.model.SavePretrained(ctx, path); err != nil {
		return fmt.Errorf("save model to %s: %w", path, err)
	}

	t.logger.InfoContext(ctx, "Model saved", slog.String("path", path))
	return nil
}

// PushToHub publishes the model, then the tokenizer, to remotePath on the
// artifact registry configured by [WithArtifactService].
func (t *Trainer) PushToHub(ctx context.Context, remotePath string, private bool) error {
	if t.artifacts == nil {
		return errors.New("push to hub: no artifact service configured")
	}
	if t.state.model == nil {
		return fmt.Errorf("push to hub: model %w", types.ErrNotInstantiated)
	}
	if t.state.tokenizer == nil {
		return fmt.Errorf("push to hub: tokenizer %w", types.ErrNotInstantiated)
	}

	if err := t.state.model.PushToHub(ctx, t.artifacts, remotePath, private); err != nil {
		return fmt.Errorf("push model to %s: %w", remotePath, err)
	}
	if err := t.state.tokenizer.PushToHub(ctx, t.artifacts, remotePath, private); err != nil {
		return fmt.Errorf("push tokenizer to %s: %w", remotePath, err)
	}

	t.logger.InfoContext(ctx, "Model and tokenizer pushed",
		slog.String("repo", remotePath),
		slog.Bool("private", private),
	)
	return nil
}
