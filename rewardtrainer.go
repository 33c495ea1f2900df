// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package rewardtrainer configures and drives supervised fine-tuning of pretrained
// sequence-classification models for reward modeling.
//
// The heavy lifting (model loading, optimization, checkpointing) belongs to an
// external training engine. This module owns the hyperparameters, the label
// formatting for regression and single-label classification, and the
// fit/save/publish lifecycle around the engine. See package [trainer] for the
// entry point.
package rewardtrainer

// Version is the version of the reward trainer.
var Version = "v0.1.0"
