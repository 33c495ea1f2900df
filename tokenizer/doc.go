// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package tokenizer loads tokenizer files for the training engine.
//
// Tokenization happens inside the engine; this package only locates,
// validates, copies and publishes the tokenizer files of a checkpoint.
package tokenizer
