// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-a2a/rewardtrainer/pkg/logging"
	"github.com/go-a2a/rewardtrainer/types"
)

// ProcessFactory builds [ProcessEngine] values.
type ProcessFactory struct {
	python     string
	stageRoot  string
	textColumn string
	env        map[string]string
	logger     *slog.Logger
}

var _ types.EngineFactory = (*ProcessFactory)(nil)

// ProcessOption is a functional option for configuring a [ProcessFactory].
type ProcessOption func(*ProcessFactory)

// WithPython sets the python interpreter. Defaults to [DefaultPython].
func WithPython(python string) ProcessOption {
	return func(f *ProcessFactory) {
		f.python = python
	}
}

// WithStageRoot sets the directory runs are staged in.
// Defaults to {output_dir}/runs.
func WithStageRoot(dir string) ProcessOption {
	return func(f *ProcessFactory) {
		f.stageRoot = dir
	}
}

// WithTextColumn sets the column the runner tokenizes.
func WithTextColumn(column string) ProcessOption {
	return func(f *ProcessFactory) {
		f.textColumn = column
	}
}

// WithEnv adds environment variables to the runner process.
func WithEnv(env map[string]string) ProcessOption {
	return func(f *ProcessFactory) {
		for k, v := range env {
			f.env[k] = v
		}
	}
}

// WithProcessLogger sets the logger runner output is logged to.
func WithProcessLogger(logger *slog.Logger) ProcessOption {
	return func(f *ProcessFactory) {
		f.logger = logger
	}
}

// NewProcessFactory returns a factory of engines running the runner in a local python process.
func NewProcessFactory(opts ...ProcessOption) *ProcessFactory {
	f := &ProcessFactory{
		python: DefaultPython,
		env:    make(map[string]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewEngine implements [types.EngineFactory]. The run is staged immediately.
func (f *ProcessFactory) NewEngine(ctx context.Context, in *types.EngineInput) (types.TrainingEngine, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	root := f.stageRoot
	if root == "" {
		root = filepath.Join(in.Args.OutputDir, RunsDirName)
	}
	run, err := Stage(ctx, root, in, StageOptions{TextColumn: f.textColumn})
	if err != nil {
		return nil, err
	}
	return &ProcessEngine{
		python:    f.python,
		env:       f.env,
		logger:    f.logger,
		run:       run,
		model:     in.Model,
		outputDir: in.Args.OutputDir,
	}, nil
}

// ProcessEngine runs a staged run in a local python process.
type ProcessEngine struct {
	python    string
	env       map[string]string
	logger    *slog.Logger
	run       *Run
	model     types.RewardModel
	outputDir string
}

var _ types.TrainingEngine = (*ProcessEngine)(nil)

// Run returns the staged run.
func (e *ProcessEngine) Run() *Run { return e.run }

// Command returns the command [ProcessEngine.Train] executes.
func (e *ProcessEngine) Command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, e.python, filepath.Join(e.run.Dir, RunnerScript), "--run-dir", e.run.Dir)
	cmd.Dir = e.run.Dir

	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, "PYTHONUNBUFFERED=1")
	if e.run.Manifest.DeviceMap == types.DeviceMapCPU {
		cmd.Env = append(cmd.Env, "CUDA_VISIBLE_DEVICES=")
	}
	for key, value := range e.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}
	return cmd
}

// Train implements [types.TrainingEngine].
func (e *ProcessEngine) Train(ctx context.Context) error {
	ctx = logging.NewContext(ctx, e.logger.With(slog.String("run_id", e.run.ID)))
	logger := logging.FromContext(ctx)

	stdout := newLogWriter(ctx, logger, "stdout")
	stderr := newLogWriter(ctx, logger, "stderr")
	defer stdout.Flush()
	defer stderr.Flush()

	cmd := e.Command(ctx)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	logger.InfoContext(ctx, "Starting training process", slog.String("python", e.python))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("runner exited with code %d: %w", exitErr.ExitCode(), err)
		}
		return fmt.Errorf("run %s: %w", e.python, err)
	}
	logger.InfoContext(ctx, "Training process finished", slog.Duration("duration", time.Since(start)))

	return updateWeights(ctx, e.model, e.outputDir)
}
