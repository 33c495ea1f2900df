// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/rewardtrainer/artifact"
	"github.com/go-a2a/rewardtrainer/internal/hub"
	"github.com/go-a2a/rewardtrainer/model"
	"github.com/go-a2a/rewardtrainer/types"
)

func writeCheckpoint(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		model.ConfigFile:    `{"model_type":"roberta","hidden_size":8}`,
		"model.safetensors": "weights",
		"README.md":         "not copied",
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readConfig(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, model.ConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	return got
}

var classification = &types.ModelConfig{
	NumLabels:   2,
	ProblemType: types.ProblemTypeSingleLabelClassification,
	DeviceMap:   types.DeviceMapAuto,
}

func TestRegistryLocalCheckpoint(t *testing.T) {
	ctx := t.Context()
	src := t.TempDir()
	writeCheckpoint(t, src)

	m, err := model.NewRegistry().FromPretrained(ctx, src, classification)
	if err != nil {
		t.Fatalf("FromPretrained() error = %v", err)
	}
	if diff := cmp.Diff(*classification, m.Config()); diff != "" {
		t.Errorf("Config() mismatch (-want +got):\n%s", diff)
	}

	dst := t.TempDir()
	if err := m.SavePretrained(ctx, dst); err != nil {
		t.Fatalf("SavePretrained() error = %v", err)
	}
	want := map[string]any{
		"model_type":   "roberta",
		"hidden_size":  float64(8),
		"problem_type": "single_label_classification",
		"id2label":     map[string]any{"0": "LABEL_0", "1": "LABEL_1"},
		"label2id":     map[string]any{"LABEL_0": float64(0), "LABEL_1": float64(1)},
	}
	if diff := cmp.Diff(want, readConfig(t, dst)); diff != "" {
		t.Errorf("saved config mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dst, "model.safetensors")); err != nil {
		t.Errorf("weights not copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "README.md")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("README.md copied, stat error = %v", err)
	}

	// saving in place rewrites the config only
	if err := m.SavePretrained(ctx, src); err != nil {
		t.Fatalf("SavePretrained(src) error = %v", err)
	}
}

func TestRegistryHubCheckpoint(t *testing.T) {
	ctx := t.Context()
	src := t.TempDir()
	writeCheckpoint(t, src)

	svc := artifact.NewInMemoryService()
	if err := artifact.SaveDir(ctx, svc, "org/base", src); err != nil {
		t.Fatal(err)
	}

	registry := model.NewRegistry(model.WithHub(svc), model.WithCacheDir(t.TempDir()))
	m, err := registry.FromPretrained(ctx, "org/base", classification)
	if err != nil {
		t.Fatalf("FromPretrained() error = %v", err)
	}
	if got := m.Name(); got != "org/base" {
		t.Errorf("Name() = %q, want org/base", got)
	}

	if err := m.PushToHub(ctx, svc, "org/tuned", true); err != nil {
		t.Fatalf("PushToHub() error = %v", err)
	}
	keys, err := svc.ListArtifactKeys(ctx, "org/tuned")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"config.json", "model.safetensors"}, keys); diff != "" {
		t.Errorf("pushed keys mismatch (-want +got):\n%s", diff)
	}
	if !svc.Private("org/tuned") {
		t.Error("pushed repo is not private")
	}
}

func TestRegistryErrors(t *testing.T) {
	ctx := t.Context()

	if _, err := model.NewRegistry().FromPretrained(ctx, "org/missing", classification); !errors.Is(err, hub.ErrNotFound) {
		t.Errorf("FromPretrained(no hub) error = %v, want %v", err, hub.ErrNotFound)
	}

	registry := model.NewRegistry(model.WithHub(artifact.NewInMemoryService()), model.WithCacheDir(t.TempDir()))
	if _, err := registry.FromPretrained(ctx, "org/missing", classification); !errors.Is(err, hub.ErrNotFound) {
		t.Errorf("FromPretrained(empty hub) error = %v, want %v", err, hub.ErrNotFound)
	}

	if _, err := registry.FromPretrained(ctx, "gs://bucket/ckpt", classification); !errors.Is(err, hub.ErrNotFound) {
		t.Errorf("FromPretrained(unmatched) error = %v, want %v", err, hub.ErrNotFound)
	}

	empty := t.TempDir()
	if err := os.WriteFile(filepath.Join(empty, model.ConfigFile), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.FromPretrained(ctx, empty, classification); err == nil {
		t.Error("FromPretrained(no weights) succeeded")
	}
}

func TestRegistryRegister(t *testing.T) {
	registry := model.NewRegistry()
	var called string
	err := registry.Register(`^mem://`, func(ctx context.Context, name string, config *types.ModelConfig) (types.RewardModel, error) {
		called = name
		return nil, errors.New("stub")
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := registry.FromPretrained(t.Context(), "mem://x", classification); err == nil {
		t.Error("FromPretrained() succeeded")
	}
	if called != "mem://x" {
		t.Errorf("loader called with %q, want mem://x", called)
	}

	if err := registry.Register(`(`, nil); err == nil {
		t.Error("Register(bad pattern) succeeded")
	}
}

func TestUpdateWeights(t *testing.T) {
	ctx := t.Context()
	base, trained := t.TempDir(), t.TempDir()
	writeCheckpoint(t, base)
	writeCheckpoint(t, trained)

	m, err := model.Load(ctx, "base", base, classification, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateWeights(ctx, trained); err != nil {
		t.Fatalf("UpdateWeights() error = %v", err)
	}
	if got := m.Dir(); got != trained {
		t.Errorf("Dir() = %q, want %q", got, trained)
	}
	if err := m.UpdateWeights(ctx, t.TempDir()); err == nil {
		t.Error("UpdateWeights(empty dir) succeeded")
	}
}
