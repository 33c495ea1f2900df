// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine provides [types.TrainingEngine] implementations that run
// training outside the Go process.
//
// Every engine stages a run directory first (see [Stage]): the training
// arguments, the model checkpoint, the tokenizer files and the formatted
// folds, together with the embedded runner script. The runner then trains
// with the transformers Trainer and writes the final weights to the output
// directory, which the engine hands back to the model through
// [types.WeightsUpdater].
//
// Engines differ in where the runner executes:
//
//   - [ProcessEngine]: a local python process
//   - [ContainerEngine]: a docker container, optionally with GPUs
//   - [VertexEngine]: a Vertex AI custom job reading the run from Cloud Storage
package engine
