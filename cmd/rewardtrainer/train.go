// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-a2a/rewardtrainer/config"
	"github.com/go-a2a/rewardtrainer/dataset"
	"github.com/go-a2a/rewardtrainer/internal/report"
	"github.com/go-a2a/rewardtrainer/pkg/logging"
)

type trainOptions struct {
	*rootOptions

	dataDir   string
	outputDir string
	engine    string
	push      string
	private   bool
}

func newTrainCmd(root *rootOptions) *cobra.Command {
	opts := &trainOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit, save and optionally publish a reward model",
		Long: heredoc.Doc(`
			Load the folds of the data directory, fine-tune the configured model
			and save the trained weights into the output directory.

			The data directory holds one {fold}.jsonl file per fold. A "train"
			fold is required; a "validation" fold is used for evaluation.
		`),
		Example: heredoc.Doc(`
			$ rewardtrainer train -c run.yaml
			$ rewardtrainer train -c run.yaml --engine docker --push org/reward-model --private
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := opts.apply(cfg); err != nil {
				return err
			}
			return runTrain(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory of {fold}.jsonl files (overrides data_dir)")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "output directory (overrides output_dir)")
	flags.StringVar(&opts.engine, "engine", "", "training engine: process, docker or vertex (overrides engine.kind)")
	flags.StringVar(&opts.push, "push", "", "repository to publish the trained model to")
	flags.BoolVar(&opts.private, "private", false, "publish the repository as private")
	return cmd
}

// apply overrides cfg with the flags that were set.
func (o *trainOptions) apply(cfg *config.Config) error {
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if o.engine != "" {
		cfg.Engine.Kind = o.engine
	}
	if o.push != "" {
		cfg.Push = &config.Push{Repo: o.push, Private: o.private}
	}
	if cfg.DataDir == "" {
		return errors.New("data_dir is required to train")
	}
	return cfg.Validate()
}

func runTrain(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	start := time.Now()

	folds, err := dataset.LoadFolds(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load folds: %w", err)
	}
	logger.InfoContext(ctx, "Folds loaded",
		slog.String("data_dir", cfg.DataDir),
		slog.Any("folds", folds.Names()),
	)

	hub, err := newArtifactService(ctx, cfg.Hub, logger)
	if err != nil {
		return fmt.Errorf("create artifact service: %w", err)
	}
	defer hub.Close()

	engines, err := newEngineFactory(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create training engine: %w", err)
	}
	tr, err := newTrainer(cfg, hub, engines, logger)
	if err != nil {
		return err
	}

	if err := tr.Fit(ctx, folds); err != nil {
		return err
	}
	if err := tr.Save(ctx, ""); err != nil {
		return err
	}
	if cfg.Push != nil {
		if err := tr.PushToHub(ctx, cfg.Push.Repo, cfg.Push.Private); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprintf(out, "Trained %s in %s\n", cfg.Model, time.Since(start).Round(time.Second))
	fmt.Fprintf(out, "  weights:  %s\n", cfg.OutputDir)
	if cfg.Push != nil {
		fmt.Fprintf(out, "  pushed:   %s (private=%t)\n", cfg.Push.Repo, cfg.Push.Private)
	}
	if path, err := report.Find(cfg.OutputDir); err == nil {
		if state, err := report.ReadState(path); err == nil {
			printSummary(cmd, state.Summarize())
		}
	}
	return nil
}
