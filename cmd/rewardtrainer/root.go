// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/go-a2a/rewardtrainer/config"
	"github.com/go-a2a/rewardtrainer/pkg/logging"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "rewardtrainer",
		Short: "Fine-tune pretrained sequence classifiers as reward models",
		Long: heredoc.Docf(`
			Fine-tune a pretrained sequence-classification model as a reward model.

			A run is described by a YAML file, looked up in this order:
			the --config flag, $%s, ./%s and the user config directory.
		`, config.EnvConfig, config.FileName),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := newLogger(cmd.ErrOrStderr(), opts)
			cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "run configuration file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log in JSON instead of text")

	cmd.AddCommand(
		newTrainCmd(opts),
		newConfigCmd(opts),
		newReportCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newLogger(w io.Writer, opts *rootOptions) *slog.Logger {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if opts.logJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
