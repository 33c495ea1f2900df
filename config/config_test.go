// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/rewardtrainer/trainer"
	"github.com/go-a2a/rewardtrainer/types"
)

const classificationYAML = `
model: distilroberta-base
task: classification
output_dir: out
data_dir: data
hyperparameters:
  num_labels: 3
  learning_rate: 1.0e-4
  eval_strategy: "steps"
  eval_steps: 100
  bf16: true
engine:
  kind: vertex
  vertex:
    project: my-project
    location: us-central1
    staging_uri: gs://bucket/runs
hub:
  backend: local
  root: /srv/hub
push:
  repo: org/reward
  private: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(classificationYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := Default()
	want.Model = "distilroberta-base"
	want.Task = TaskClassification
	want.OutputDir = "out"
	want.DataDir = "data"
	want.Hyperparameters.NumLabels = 3
	want.Hyperparameters.LearningRate = 1e-4
	want.Hyperparameters.EvalStrategy = types.IntervalSteps
	want.Hyperparameters.EvalSteps = 100
	want.Hyperparameters.BF16 = true
	want.Engine = Engine{
		Kind: EngineVertex,
		Vertex: &Vertex{
			Project:    "my-project",
			Location:   "us-central1",
			StagingURI: "gs://bucket/runs",
		},
	}
	want.Hub = Hub{Backend: HubLocal, Root: "/srv/hub"}
	want.Push = &Push{Repo: "org/reward", Private: true}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	if got, want := cfg.TokenizerName(), "distilroberta-base"; got != want {
		t.Errorf("TokenizerName() = %q, want %q", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing model",
			yaml:    "output_dir: out",
			wantErr: "model is required",
		},
		{
			name:    "unknown task",
			yaml:    "model: m\noutput_dir: out\ntask: ranking",
			wantErr: `unknown task "ranking"`,
		},
		{
			name:    "classification with one label",
			yaml:    "model: m\noutput_dir: out\ntask: classification",
			wantErr: "at least 2 labels",
		},
		{
			name:    "vertex without settings",
			yaml:    "model: m\noutput_dir: out\nengine:\n  kind: vertex",
			wantErr: "engine.vertex is required",
		},
		{
			name:    "gcs without bucket",
			yaml:    "model: m\noutput_dir: out\nhub:\n  backend: gcs",
			wantErr: "hub.bucket is required",
		},
		{
			name:    "unknown device map",
			yaml:    "model: m\noutput_dir: out\nhyperparameters:\n  device_map: tpu",
			wantErr: `unknown device_map "tpu"`,
		},
		{
			name:    "malformed",
			yaml:    "model: [",
			wantErr: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("model: m\noutput_dir: out\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, path)

	if got := Path(""); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
	if got, want := Path("explicit.yaml"), "explicit.yaml"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "m" || cfg.Engine.Kind != EngineProcess || cfg.Hub.Backend != HubMemory {
		t.Errorf("Load() = %+v, want defaults applied", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file error = nil, want error")
	}
}

func TestTrainerOptions(t *testing.T) {
	cfg, err := Parse([]byte(classificationYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	formatter, err := cfg.Formatter()
	if err != nil {
		t.Fatalf("Formatter() error = %v", err)
	}
	loader := types.TokenizerLoaderFunc(func(context.Context) (types.Tokenizer, error) { return nil, nil })

	tr, err := trainer.New(cfg.Model, loader, cfg.OutputDir, formatter, cfg.TrainerOptions()...)
	if err != nil {
		t.Fatalf("trainer.New() error = %v", err)
	}

	want := &types.TrainingArguments{
		OutputDir:                 "out",
		LearningRate:              1e-4,
		NumTrainEpochs:            1,
		LoggingDir:                "out/logs",
		LoggingStrategy:           types.IntervalSteps,
		LoggingSteps:              50,
		EvaluationStrategy:        types.IntervalSteps,
		EvalSteps:                 types.ToPtr(100),
		SaveStrategy:              types.IntervalNo,
		BF16:                      true,
		Optim:                     types.OptimizerAdamWHF,
		Seed:                      1,
		PerDeviceTrainBatchSize:   8,
		PerDeviceEvalBatchSize:    8,
		GradientAccumulationSteps: 1,
	}
	if diff := cmp.Diff(want, tr.TrainingConfig()); diff != "" {
		t.Errorf("TrainingConfig() mismatch (-want +got):\n%s", diff)
	}
	if got, want := tr.ProblemType(), types.ProblemTypeSingleLabelClassification; got != want {
		t.Errorf("ProblemType() = %q, want %q", got, want)
	}
	if got, want := tr.NumLabels(), 3; got != want {
		t.Errorf("NumLabels() = %d, want %d", got, want)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(classificationYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
