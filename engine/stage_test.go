// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-a2a/rewardtrainer/dataset"
	"github.com/go-a2a/rewardtrainer/types"
)

func TestStage(t *testing.T) {
	tests := []struct {
		name         string
		withEval     bool
		opts         StageOptions
		wantFiles    []string
		wantManifest Manifest
		wantOutput   string
	}{
		{
			name:     "train only",
			withEval: false,
			wantFiles: []string{
				ArgsFile,
				ManifestFile,
				RunnerScript,
				"model/config.json",
				"tokenizer/tokenizer.json",
				"train.jsonl",
			},
			wantManifest: Manifest{
				ModelName:   "org/reward-base",
				ProblemType: types.ProblemTypeRegression,
				NumLabels:   1,
				DeviceMap:   types.DeviceMapAuto,
				TextColumn:  DefaultTextColumn,
				TrainFile:   "train.jsonl",
			},
		},
		{
			name:     "with validation and output override",
			withEval: true,
			opts: StageOptions{
				OutputDir:  "/workspace/output",
				TextColumn: "prompt",
			},
			wantFiles: []string{
				ArgsFile,
				ManifestFile,
				RunnerScript,
				"model/config.json",
				"tokenizer/tokenizer.json",
				"train.jsonl",
				"validation.jsonl",
			},
			wantManifest: Manifest{
				ModelName:   "org/reward-base",
				ProblemType: types.ProblemTypeRegression,
				NumLabels:   1,
				DeviceMap:   types.DeviceMapAuto,
				TextColumn:  "prompt",
				TrainFile:   "train.jsonl",
				EvalFile:    "validation.jsonl",
			},
			wantOutput: "/workspace/output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInput(t, types.DeviceMapAuto, tt.withEval)
			root := t.TempDir()

			run, err := Stage(t.Context(), root, in, tt.opts)
			if err != nil {
				t.Fatalf("Stage() error = %v", err)
			}
			if got, want := run.Dir, filepath.Join(root, run.ID); got != want {
				t.Errorf("run.Dir = %q, want %q", got, want)
			}

			for _, name := range tt.wantFiles {
				if _, err := os.Stat(filepath.Join(run.Dir, filepath.FromSlash(name))); err != nil {
					t.Errorf("staged file %s: %v", name, err)
				}
			}

			manifest, err := ReadManifest(run.Dir)
			if err != nil {
				t.Fatalf("ReadManifest() error = %v", err)
			}
			tt.wantManifest.RunID = run.ID
			if diff := cmp.Diff(tt.wantManifest, *manifest, cmpopts.IgnoreFields(Manifest{}, "CreatedAt")); diff != "" {
				t.Errorf("manifest mismatch (-want +got):\n%s", diff)
			}

			var args types.TrainingArguments
			if err := readJSON(filepath.Join(run.Dir, ArgsFile), &args); err != nil {
				t.Fatal(err)
			}
			wantOutput := tt.wantOutput
			if wantOutput == "" {
				wantOutput = in.Args.OutputDir
			}
			if args.OutputDir != wantOutput {
				t.Errorf("output_dir = %q, want %q", args.OutputDir, wantOutput)
			}
			if got, want := args.LoggingDir, types.LogsDir(wantOutput); got != want {
				t.Errorf("logging_dir = %q, want %q", got, want)
			}
			if in.Args.OutputDir == wantOutput {
				return
			}
			if got := in.Args.LoggingDir; got != types.LogsDir(in.Args.OutputDir) {
				t.Errorf("caller arguments were modified: logging_dir = %q", got)
			}
		})
	}
}

func TestStageRoundTripsFolds(t *testing.T) {
	in := newInput(t, types.DeviceMapAuto, false)
	run, err := Stage(t.Context(), t.TempDir(), in, StageOptions{})
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	folds, err := dataset.LoadFolds(run.Dir)
	if err != nil {
		t.Fatalf("LoadFolds() error = %v", err)
	}
	if diff := cmp.Diff([]string{dataset.TrainFold}, folds.Names()); diff != "" {
		t.Errorf("folds mismatch (-want +got):\n%s", diff)
	}
	if got, want := folds[dataset.TrainFold].NumRows(), 2; got != want {
		t.Errorf("train rows = %d, want %d", got, want)
	}
}

func TestStageInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *types.EngineInput)
	}{
		{
			name:   "missing train fold",
			mutate: func(in *types.EngineInput) { in.TrainDataset = nil },
		},
		{
			name:   "missing model",
			mutate: func(in *types.EngineInput) { in.Model = nil },
		},
		{
			name:   "invalid arguments",
			mutate: func(in *types.EngineInput) { in.Args.LearningRate = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInput(t, types.DeviceMapAuto, false)
			tt.mutate(in)
			root := t.TempDir()
			if _, err := Stage(t.Context(), root, in, StageOptions{}); err == nil {
				t.Fatal("Stage() error = nil, want error")
			}
			entries, err := os.ReadDir(root)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("Stage() created %d entries for invalid input", len(entries))
			}
		})
	}
}
