// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-a2a/rewardtrainer/internal/report"
)

func newReportCmd() *cobra.Command {
	var (
		out   string
		title string
	)
	cmd := &cobra.Command{
		Use:   "report <output-dir>",
		Short: "Summarize a finished run and plot its loss curves",
		Long: heredoc.Doc(`
			Read the training state of a run output directory, or of its latest
			checkpoint, print a summary and plot the train and eval loss curves.
			The image format follows the extension of --out.
		`),
		Example: heredoc.Doc(`
			$ rewardtrainer report out/ -o out/loss.svg
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := report.Find(args[0])
			if err != nil {
				return err
			}
			state, err := report.ReadState(path)
			if err != nil {
				return err
			}
			printSummary(cmd, state.Summarize())

			if out == "" {
				out = filepath.Join(args[0], "loss.png")
			}
			if title == "" {
				title = filepath.Base(filepath.Clean(args[0]))
			}
			if err := state.Save(out, title); err != nil {
				return fmt.Errorf("plot loss curves: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  plot:     %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "plot file (default: {output-dir}/loss.png)")
	cmd.Flags().StringVar(&title, "title", "", "plot title (default: the output directory name)")
	return cmd
}

func printSummary(cmd *cobra.Command, s report.Summary) {
	w := cmd.OutOrStdout()
	color.New(color.FgCyan).Fprintf(w, "Training summary\n")
	fmt.Fprintf(w, "  steps:    %d (%.2f epochs)\n", s.Steps, s.Epochs)
	if !math.IsNaN(s.FinalLoss) {
		fmt.Fprintf(w, "  loss:     %.4f\n", s.FinalLoss)
	}
	if s.HasEvaluation {
		fmt.Fprintf(w, "  eval:     %.4f (best, step %d)\n", s.BestEvalLoss, s.BestEvalStep)
	}
}
