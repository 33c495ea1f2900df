// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/rewardtrainer"
	"github.com/go-a2a/rewardtrainer/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, rewardtrainer.Version) {
		t.Errorf("version output %q does not contain %q", out, rewardtrainer.Version)
	}
}

func TestConfigCmd(t *testing.T) {
	path := writeConfig(t, `
model: distilroberta-base
task: classification
output_dir: out
hyperparameters:
  num_labels: 4
  per_device_batch_size: 32
  save_strategy: "epoch"
`)

	out, err := execute(t, "config", "--config", path)
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	var args types.TrainingArguments
	if err := json.Unmarshal([]byte(out), &args); err != nil {
		t.Fatalf("config output is not training arguments: %v\n%s", err, out)
	}
	if args.PerDeviceTrainBatchSize != 32 || args.PerDeviceEvalBatchSize != 32 {
		t.Errorf("batch sizes = %d/%d, want 32/32", args.PerDeviceTrainBatchSize, args.PerDeviceEvalBatchSize)
	}
	if args.SaveStrategy != types.IntervalEpoch || args.LoggingDir != "out/logs" {
		t.Errorf("config output = %+v", args)
	}

	out, err = execute(t, "config", "--config", path, "--yaml")
	if err != nil {
		t.Fatalf("config --yaml error = %v", err)
	}
	if !strings.Contains(out, "num_labels: 4") {
		t.Errorf("config --yaml output missing num_labels:\n%s", out)
	}
}

func TestTrainCmdValidation(t *testing.T) {
	path := writeConfig(t, "model: m\noutput_dir: out\n")
	if _, err := execute(t, "train", "--config", path); err == nil || !strings.Contains(err.Error(), "data_dir") {
		t.Fatalf("train error = %v, want a data_dir error", err)
	}
	if _, err := execute(t, "train", "--config", path, "--data-dir", t.TempDir(), "--engine", "slurm"); err == nil || !strings.Contains(err.Error(), "slurm") {
		t.Fatalf("train error = %v, want an engine error", err)
	}
}

func TestReportCmd(t *testing.T) {
	dir := t.TempDir()
	state := `{"global_step": 20, "epoch": 1.0, "log_history": [
		{"step": 10, "epoch": 0.5, "loss": 0.8},
		{"step": 20, "epoch": 1.0, "loss": 0.4, "eval_loss": 0.5}
	]}`
	if err := os.WriteFile(filepath.Join(dir, "trainer_state.json"), []byte(state), 0o644); err != nil {
		t.Fatal(err)
	}

	plot := filepath.Join(t.TempDir(), "loss.svg")
	out, err := execute(t, "report", dir, "--out", plot)
	if err != nil {
		t.Fatalf("report error = %v", err)
	}
	for _, want := range []string{"steps:    20", "loss:     0.4000", "eval:     0.5000 (best, step 20)", plot} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(plot); err != nil {
		t.Errorf("plot not written: %v", err)
	}
}
