// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/rewardtrainer/internal/hub"
	"github.com/go-a2a/rewardtrainer/types"
)

// ConfigFile is the name of the checkpoint configuration file.
const ConfigFile = "config.json"

// weightSuffixes are the file suffixes of checkpoint weights and their shard indexes.
var weightSuffixes = []string{
	".safetensors",
	".bin",
	".pt",
	".ckpt",
	".h5",
	".msgpack",
	".index.json",
}

// IsWeightsFile reports whether name is a weights file or a shard index.
func IsWeightsFile(name string) bool {
	return slices.ContainsFunc(weightSuffixes, func(suffix string) bool {
		return strings.HasSuffix(name, suffix)
	})
}

// SequenceClassifier is a sequence-classification checkpoint on the local file system.
//
// The head configuration is merged into config.json whenever the model is saved.
type SequenceClassifier struct {
	name   string
	config types.ModelConfig
	logger *slog.Logger

	mu      sync.Mutex
	dir     string
	weights []string
	raw     map[string]any
}

var (
	_ types.RewardModel    = (*SequenceClassifier)(nil)
	_ types.WeightsUpdater = (*SequenceClassifier)(nil)
)

// Load reads the checkpoint in dir and configures its head with config.
func Load(ctx context.Context, name, dir string, config *types.ModelConfig, logger *slog.Logger) (*SequenceClassifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &SequenceClassifier{
		name:   name,
		config: *config,
		logger: logger,
	}
	if err := m.read(dir); err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "checkpoint loaded",
		slog.String("name", name),
		slog.String("dir", dir),
		slog.Int("weight_files", len(m.weights)),
	)
	return m, nil
}

// read points m at the checkpoint in dir.
func (m *SequenceClassifier) read(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		return fmt.Errorf("read checkpoint config: %w", err)
	}
	raw := make(map[string]any)
	if err := json.Unmarshal(data, &raw, json.DefaultOptionsV2()); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Join(dir, ConfigFile), err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var weights []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsWeightsFile(e.Name()) {
			weights = append(weights, e.Name())
		}
	}
	if len(weights) == 0 {
		return fmt.Errorf("checkpoint %s has no weight files", dir)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dir = dir
	m.weights = weights
	m.raw = raw
	return nil
}

// Name implements [types.RewardModel].
func (m *SequenceClassifier) Name() string {
	return m.name
}

// Config implements [types.RewardModel].
func (m *SequenceClassifier) Config() types.ModelConfig {
	return m.config
}

// Dir returns the directory the current weights are read from.
func (m *SequenceClassifier) Dir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir
}

// HeadConfig returns config.json with the head configuration applied.
func (m *SequenceClassifier) HeadConfig() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]any, len(m.raw)+3)
	for k, v := range m.raw {
		out[k] = v
	}
	id2label := make(map[string]any, m.config.NumLabels)
	label2id := make(map[string]any, m.config.NumLabels)
	for i := range m.config.NumLabels {
		label := "LABEL_" + strconv.Itoa(i)
		id2label[strconv.Itoa(i)] = label
		label2id[label] = i
	}
	out["id2label"] = id2label
	out["label2id"] = label2id
	if m.config.ProblemType != "" {
		out["problem_type"] = m.config.ProblemType.String()
	}
	return out
}

// SavePretrained implements [types.RewardModel].
func (m *SequenceClassifier) SavePretrained(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	m.mu.Lock()
	src, weights := m.dir, slices.Clone(m.weights)
	m.mu.Unlock()

	if !samePath(src, dir) {
		for _, name := range weights {
			if err := copyFile(filepath.Join(src, name), filepath.Join(dir, name)); err != nil {
				return fmt.Errorf("copy %s: %w", name, err)
			}
		}
	}

	data, err := json.Marshal(m.HeadConfig(), json.Deterministic(true), jsontext.Multiline(true))
	if err != nil {
		return fmt.Errorf("encode %s: %w", ConfigFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), data, 0o644); err != nil {
		return err
	}

	m.logger.DebugContext(ctx, "checkpoint saved",
		slog.String("name", m.name),
		slog.String("dir", dir),
	)
	return nil
}

// PushToHub implements [types.RewardModel].
func (m *SequenceClassifier) PushToHub(ctx context.Context, svc types.ArtifactService, repo string, private bool) error {
	tmp, err := os.MkdirTemp("", "rewardtrainer-model-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := m.SavePretrained(ctx, tmp); err != nil {
		return err
	}
	return hub.Publish(ctx, svc, repo, tmp, private)
}

// UpdateWeights implements [types.WeightsUpdater]. dir must hold a checkpoint.
func (m *SequenceClassifier) UpdateWeights(ctx context.Context, dir string) error {
	if err := m.read(dir); err != nil {
		return fmt.Errorf("update weights: %w", err)
	}

	m.logger.InfoContext(ctx, "model weights updated",
		slog.String("name", m.name),
		slog.String("dir", dir),
	)
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	_, err = io.Copy(out, in)
	return err
}
