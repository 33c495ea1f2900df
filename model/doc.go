// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package model resolves pretrained checkpoints into sequence-classification reward models.
//
// A checkpoint is a directory holding a config.json and one or more weight
// files (*.safetensors, *.bin, ...). [Registry] implements
// [types.ModelRegistry]: local directories are loaded directly, repository
// style names are downloaded from the hub first.
//
//	registry := model.NewRegistry(model.WithHub(svc))
//	m, err := registry.FromPretrained(ctx, "org/base-model", &types.ModelConfig{
//		NumLabels:   3,
//		ProblemType: types.ProblemTypeSingleLabelClassification,
//		DeviceMap:   types.DeviceMapAuto,
//	})
//
// Additional name schemes are added with [Registry.Register].
package model
