// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
)

// DeviceMapAuto spreads model weights over every available accelerator.
const DeviceMapAuto = "auto"

// DeviceMapCPU keeps model weights on the host.
const DeviceMapCPU = "cpu"

// ModelConfig is the head configuration applied when a pretrained checkpoint is loaded.
type ModelConfig struct {
	// NumLabels is the output dimensionality of the classification head.
	NumLabels int `json:"num_labels"`

	// ProblemType selects the loss the engine trains the head with.
	ProblemType ProblemType `json:"problem_type"`

	// DeviceMap is the placement policy for model weights across devices.
	DeviceMap string `json:"device_map,omitempty"`
}

// RewardModel is a sequence-classification model handle resolved from a pretrained checkpoint.
type RewardModel interface {
	// Name returns the checkpoint identifier the model was loaded from.
	Name() string

	// Config returns the head configuration the model was loaded with.
	Config() ModelConfig

	// SavePretrained writes the model weights and configuration into dir.
	SavePretrained(ctx context.Context, dir string) error

	// PushToHub publishes the model files to repo on the artifact registry.
	PushToHub(ctx context.Context, svc ArtifactService, repo string, private bool) error
}

// WeightsUpdater is implemented by models whose weights are replaced in place
// after a training engine finishes.
type WeightsUpdater interface {
	UpdateWeights(ctx context.Context, dir string) error
}

// ModelRegistry resolves checkpoint names to sequence-classification models.
type ModelRegistry interface {
	// FromPretrained loads the checkpoint name and configures its head with config.
	FromPretrained(ctx context.Context, name string, config *ModelConfig) (RewardModel, error)
}
