// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"

	"github.com/go-a2a/rewardtrainer/dataset"
	"github.com/go-a2a/rewardtrainer/pkg/logging"
	"github.com/go-a2a/rewardtrainer/types"
)

// Files and directories of a staged run.
const (
	ManifestFile  = "run.json"
	ArgsFile      = "training_args.json"
	RunnerScript  = "train.py"
	ModelDir      = "model"
	TokenizerDir  = "tokenizer"
	RunsDirName   = "runs"
	DefaultPython = "python3"
)

// DefaultTextColumn is the column the runner tokenizes when the folds are not tokenized yet.
const DefaultTextColumn = "text"

//go:embed runner/train.py
var runnerScript []byte

// Manifest describes a staged run to the runner.
type Manifest struct {
	RunID       string            `json:"run_id"`
	ModelName   string            `json:"model_name"`
	ProblemType types.ProblemType `json:"problem_type"`
	NumLabels   int               `json:"num_labels"`
	DeviceMap   string            `json:"device_map"`
	TextColumn  string            `json:"text_column"`
	TrainFile   string            `json:"train_file"`
	EvalFile    string            `json:"eval_file,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Run is a staged run directory.
type Run struct {
	ID       string
	Dir      string
	Manifest Manifest
}

// StageOptions adjust a staged run.
type StageOptions struct {
	// OutputDir replaces the output directory in training_args.json, for
	// runners that see the output directory under another path.
	OutputDir string

	// TextColumn is the column the runner tokenizes. Defaults to [DefaultTextColumn].
	TextColumn string
}

// Stage writes the run directory of in below root and returns it.
func Stage(ctx context.Context, root string, in *types.EngineInput, opts StageOptions) (*Run, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	args := *in.Args
	args.EvalSteps = types.ClonePtr(in.Args.EvalSteps)
	args.SaveSteps = types.ClonePtr(in.Args.SaveSteps)
	if opts.OutputDir != "" {
		args.OutputDir = opts.OutputDir
		args.LoggingDir = types.LogsDir(opts.OutputDir)
	}
	if err := writeJSON(filepath.Join(dir, ArgsFile), &args); err != nil {
		return nil, err
	}

	if err := in.Model.SavePretrained(ctx, filepath.Join(dir, ModelDir)); err != nil {
		return nil, fmt.Errorf("stage model: %w", err)
	}
	if err := in.Tokenizer.SavePretrained(ctx, filepath.Join(dir, TokenizerDir)); err != nil {
		return nil, fmt.Errorf("stage tokenizer: %w", err)
	}

	folds := dataset.Folds{dataset.TrainFold: in.TrainDataset}
	if in.EvalDataset != nil {
		folds[dataset.ValidationFold] = in.EvalDataset
	}
	if err := dataset.SaveFolds(dir, folds); err != nil {
		return nil, fmt.Errorf("stage folds: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, RunnerScript), runnerScript, 0o644); err != nil {
		return nil, err
	}

	cfg := in.Model.Config()
	manifest := Manifest{
		RunID:       id,
		ModelName:   in.Model.Name(),
		ProblemType: cfg.ProblemType,
		NumLabels:   cfg.NumLabels,
		DeviceMap:   cfg.DeviceMap,
		TextColumn:  opts.TextColumn,
		TrainFile:   dataset.TrainFold + dataset.JSONLExt,
		CreatedAt:   time.Now().UTC(),
	}
	if manifest.TextColumn == "" {
		manifest.TextColumn = DefaultTextColumn
	}
	if in.EvalDataset != nil {
		manifest.EvalFile = dataset.ValidationFold + dataset.JSONLExt
	}
	if err := writeJSON(filepath.Join(dir, ManifestFile), &manifest); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).InfoContext(ctx, "run staged",
		"run_id", id,
		"dir", dir,
		"train_rows", in.TrainDataset.NumRows(),
	)
	return &Run{ID: id, Dir: dir, Manifest: manifest}, nil
}

func validateInput(in *types.EngineInput) error {
	var errs []error
	if in == nil {
		return errors.New("nil engine input")
	}
	if in.Model == nil {
		errs = append(errs, errors.New("model is required"))
	}
	if in.Tokenizer == nil {
		errs = append(errs, errors.New("tokenizer is required"))
	}
	if in.TrainDataset == nil {
		errs = append(errs, fmt.Errorf("%w: %q", types.ErrMissingFold, dataset.TrainFold))
	}
	if in.Args == nil {
		errs = append(errs, errors.New("training arguments are required"))
	} else if err := in.Args.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v, json.DefaultOptionsV2(), jsontext.Multiline(true))
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadManifest reads the manifest of the run staged in dir.
func ReadManifest(dir string) (*Manifest, error) {
	var m Manifest
	if err := readJSON(filepath.Join(dir, ManifestFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v, json.DefaultOptionsV2()); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// updateWeights re-points the model at the trained weights in dir.
func updateWeights(ctx context.Context, m types.RewardModel, dir string) error {
	u, ok := m.(types.WeightsUpdater)
	if !ok {
		return nil
	}
	if err := u.UpdateWeights(ctx, dir); err != nil {
		return fmt.Errorf("load trained weights: %w", err)
	}
	return nil
}
