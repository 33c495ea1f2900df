// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-a2a/rewardtrainer/internal/hub"
	"github.com/go-a2a/rewardtrainer/types"
)

// HubPattern matches repository style checkpoint names such as "org/reward-model".
const HubPattern = `^[A-Za-z0-9][\w.-]*(/[\w.-]+)*$`

// LoaderFunc loads the checkpoint name with its head configured by config.
type LoaderFunc func(ctx context.Context, name string, config *types.ModelConfig) (types.RewardModel, error)

// loaderEntry represents a registry entry with a regex pattern and loader function.
type loaderEntry struct {
	pattern *regexp.Regexp
	loader  LoaderFunc
}

// Registry resolves checkpoint names to [SequenceClassifier] models.
//
// Existing local directories are always loaded directly. Other names are
// matched against the registered patterns in registration order; the
// built-in [HubPattern] entry downloads the checkpoint from the hub.
type Registry struct {
	config Config

	mu       sync.RWMutex
	registry []loaderEntry
	cache    map[string]LoaderFunc
}

var _ types.ModelRegistry = (*Registry)(nil)

// NewRegistry returns a [Registry] with the hub loader registered.
func NewRegistry(opts ...Option) *Registry {
	config := newConfig()
	for _, opt := range opts {
		config = opt.apply(config)
	}
	r := &Registry{
		config: config,
		cache:  make(map[string]LoaderFunc),
	}
	if err := r.Register(HubPattern, r.loadFromHub); err != nil {
		panic(err)
	}
	return r
}

// Register adds a loader for names matching pattern.
// If the pattern is already registered its loader is replaced.
func (r *Registry) Register(pattern string, loader LoaderFunc) error {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compile checkpoint pattern %q: %w", pattern, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.cache)
	for i, entry := range r.registry {
		if entry.pattern.String() == pattern {
			r.registry[i].loader = loader
			return nil
		}
	}
	r.registry = append(r.registry, loaderEntry{
		pattern: regex,
		loader:  loader,
	})
	return nil
}

// Resolve finds the loader for the checkpoint name.
func (r *Registry) Resolve(name string) (LoaderFunc, error) {
	if hub.IsDir(name) {
		return r.loadLocal, nil
	}

	r.mu.RLock()
	if loader, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return loader, nil
	}
	var matched LoaderFunc
	for _, entry := range r.registry {
		if entry.pattern.MatchString(name) {
			matched = entry.loader
			break
		}
	}
	r.mu.RUnlock()

	if matched == nil {
		return nil, fmt.Errorf("checkpoint %q: %w", name, hub.ErrNotFound)
	}

	r.mu.Lock()
	if len(r.cache) >= r.config.cacheSize {
		clear(r.cache)
	}
	r.cache[name] = matched
	r.mu.Unlock()

	return matched, nil
}

// FromPretrained implements [types.ModelRegistry].
func (r *Registry) FromPretrained(ctx context.Context, name string, config *types.ModelConfig) (types.RewardModel, error) {
	if config == nil {
		return nil, fmt.Errorf("checkpoint %q: nil model config", name)
	}
	loader, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return loader(ctx, name, config)
}

func (r *Registry) loadLocal(ctx context.Context, name string, config *types.ModelConfig) (types.RewardModel, error) {
	return Load(ctx, name, name, config, r.config.logger)
}

func (r *Registry) loadFromHub(ctx context.Context, name string, config *types.ModelConfig) (types.RewardModel, error) {
	dir, err := hub.Resolve(ctx, name, r.config.hub, r.config.cacheDir)
	if err != nil {
		return nil, err
	}
	return Load(ctx, name, dir, config, r.config.logger)
}
