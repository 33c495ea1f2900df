// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-a2a/rewardtrainer/artifact"
	"github.com/go-a2a/rewardtrainer/config"
	"github.com/go-a2a/rewardtrainer/engine"
	"github.com/go-a2a/rewardtrainer/model"
	"github.com/go-a2a/rewardtrainer/tokenizer"
	"github.com/go-a2a/rewardtrainer/trainer"
	"github.com/go-a2a/rewardtrainer/types"
)

func newArtifactService(ctx context.Context, hub config.Hub, logger *slog.Logger) (types.ArtifactService, error) {
	switch hub.Backend {
	case config.HubMemory:
		return artifact.NewInMemoryService(), nil
	case config.HubLocal:
		return artifact.NewLocalService(hub.Root)
	case config.HubGCS:
		return artifact.NewGCSService(ctx, hub.Bucket, artifact.WithGCSLogger(logger))
	}
	return nil, fmt.Errorf("unknown hub backend %q", hub.Backend)
}

func newEngineFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (types.EngineFactory, error) {
	e := cfg.Engine
	switch e.Kind {
	case config.EngineProcess:
		opts := []engine.ProcessOption{
			engine.WithTextColumn(cfg.TextColumn),
			engine.WithEnv(e.Env),
			engine.WithProcessLogger(logger),
		}
		if e.Python != "" {
			opts = append(opts, engine.WithPython(e.Python))
		}
		return engine.NewProcessFactory(opts...), nil

	case config.EngineDocker:
		opts := []engine.ContainerOption{
			engine.WithContainerTextColumn(cfg.TextColumn),
			engine.WithMemoryLimit(e.MemoryLimit),
			engine.WithContainerLogger(logger),
		}
		if e.Image != "" {
			opts = append(opts, engine.WithImage(e.Image))
		}
		return engine.NewContainerFactory(opts...)

	case config.EngineVertex:
		v := e.Vertex
		opts := []engine.VertexOption{
			engine.WithVertexTextColumn(cfg.TextColumn),
			engine.WithServiceAccount(v.ServiceAccount),
			engine.WithVertexLogger(logger),
		}
		if e.Image != "" {
			opts = append(opts, engine.WithVertexImage(e.Image))
		}
		if v.MachineType != "" {
			opts = append(opts, engine.WithMachine(v.MachineType, v.AcceleratorType, v.AcceleratorCount))
		}
		return engine.NewVertexFactory(ctx, v.Project, v.Location, v.StagingURI, opts...)
	}
	return nil, fmt.Errorf("unknown engine kind %q", e.Kind)
}

// newTrainer wires a trainer to the hub and engine of cfg.
func newTrainer(cfg *config.Config, hub types.ArtifactService, engines types.EngineFactory, logger *slog.Logger) (*trainer.Trainer, error) {
	formatter, err := cfg.Formatter()
	if err != nil {
		return nil, err
	}

	loader := tokenizer.NewFileLoader(cfg.TokenizerName(),
		tokenizer.WithHub(hub),
		tokenizer.WithCacheDir(cfg.Hub.CacheDir),
		tokenizer.WithLogger(logger),
	)
	registry := model.NewRegistry(
		model.WithHub(hub),
		model.WithCacheDir(cfg.Hub.CacheDir),
		model.WithLogger(logger),
	)

	opts := append(cfg.TrainerOptions(),
		trainer.WithModelRegistry(registry),
		trainer.WithArtifactService(hub),
		trainer.WithLogger(logger),
	)
	if engines != nil {
		opts = append(opts, trainer.WithEngineFactory(engines))
	}
	return trainer.New(cfg.Model, loader, cfg.OutputDir, formatter, opts...)
}
