// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/go-a2a/rewardtrainer/config"
	"github.com/go-a2a/rewardtrainer/pkg/logging"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective training arguments",
		Long: heredoc.Doc(`
			Print the training arguments handed to the training engine, as the
			training_args.json a run stages, or with --yaml the resolved run
			configuration including defaults.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}

			var data []byte
			if asYAML {
				data, err = cfg.Marshal()
			} else {
				data, err = trainingArgsJSON(cmd, cfg)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the resolved run configuration as YAML")
	return cmd
}

func trainingArgsJSON(cmd *cobra.Command, cfg *config.Config) ([]byte, error) {
	tr, err := newTrainer(cfg, nil, nil, logging.FromContext(cmd.Context()))
	if err != nil {
		return nil, err
	}
	return json.Marshal(tr.TrainingConfig(), json.DefaultOptionsV2(), jsontext.Multiline(true))
}
