// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"log/slog"

	"github.com/go-a2a/rewardtrainer/types"
)

// Config holds the settings of a [Registry].
type Config struct {
	// hub is the artifact registry checkpoints are downloaded from.
	hub types.ArtifactService

	// cacheDir is where downloaded checkpoints are kept.
	cacheDir string

	// cacheSize bounds the number of resolved names remembered.
	cacheSize int

	// logger is the logger used for logging.
	logger *slog.Logger
}

func newConfig() Config {
	return Config{
		cacheSize: 32,
		logger:    slog.Default(),
	}
}

// Option is a function that modifies the [Config] of a [Registry].
type Option interface {
	apply(base Config) Config
}

type hubOption struct{ types.ArtifactService }

func (o hubOption) apply(base Config) Config {
	base.hub = o.ArtifactService
	return base
}

// WithHub sets the artifact registry checkpoints that are not local directories are downloaded from.
func WithHub(svc types.ArtifactService) Option {
	return hubOption{svc}
}

type cacheDirOption string

func (o cacheDirOption) apply(base Config) Config {
	base.cacheDir = string(o)
	return base
}

// WithCacheDir sets the directory downloaded checkpoints are kept in.
func WithCacheDir(dir string) Option {
	return cacheDirOption(dir)
}

type cacheSizeOption int

func (o cacheSizeOption) apply(base Config) Config {
	base.cacheSize = int(o)
	return base
}

// WithCacheSize bounds the number of resolved checkpoint names the registry remembers.
func WithCacheSize(n int) Option {
	return cacheSizeOption(n)
}

type loggerOption struct{ *slog.Logger }

func (o loggerOption) apply(base Config) Config {
	base.logger = o.Logger
	return base
}

// WithLogger sets the logger for the registry and the models it loads.
func WithLogger(logger *slog.Logger) Option {
	return loggerOption{logger}
}
