// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
)

// Tokenizer is a tokenizer handle. Tokenization itself happens inside the training engine.
type Tokenizer interface {
	// Name returns the identifier the tokenizer was loaded from.
	Name() string

	// SavePretrained writes the tokenizer files into dir.
	SavePretrained(ctx context.Context, dir string) error

	// PushToHub publishes the tokenizer files to repo on the artifact registry.
	PushToHub(ctx context.Context, svc ArtifactService, repo string, private bool) error
}

// TokenizerLoader loads a tokenizer.
type TokenizerLoader interface {
	Load(ctx context.Context) (Tokenizer, error)
}

// TokenizerLoaderFunc adapts a function to [TokenizerLoader].
type TokenizerLoaderFunc func(ctx context.Context) (Tokenizer, error)

// Load implements [TokenizerLoader].
func (f TokenizerLoaderFunc) Load(ctx context.Context) (Tokenizer, error) {
	return f(ctx)
}
