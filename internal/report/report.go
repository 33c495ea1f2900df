// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package report summarizes and plots the training history written by the runner.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// StateFile is the training state the runner writes next to the trained weights.
const StateFile = "trainer_state.json"

// checkpointPrefix prefixes the checkpoint directories of the save strategy.
const checkpointPrefix = "checkpoint-"

// ErrNoState reports an output directory without any training state.
var ErrNoState = errors.New("no training state found")

// LogEntry is one record of the training log history. Train records carry
// Loss, evaluation records carry EvalLoss.
type LogEntry struct {
	Step         int      `json:"step"`
	Epoch        float64  `json:"epoch"`
	Loss         *float64 `json:"loss,omitempty"`
	EvalLoss     *float64 `json:"eval_loss,omitempty"`
	LearningRate *float64 `json:"learning_rate,omitempty"`
}

// State is the subset of the training state the report reads.
type State struct {
	GlobalStep   int        `json:"global_step"`
	Epoch        float64    `json:"epoch"`
	MaxSteps     int        `json:"max_steps"`
	LogHistory   []LogEntry `json:"log_history"`
	BestMetric   *float64   `json:"best_metric,omitempty"`
	BestModelDir string     `json:"best_model_checkpoint,omitempty"`
}

// ReadState reads a training state file.
func ReadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(data, &s, json.DefaultOptionsV2()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &s, nil
}

// Find returns the training state of outputDir. The state of the output
// directory itself wins over the one of its latest checkpoint.
func Find(outputDir string) (string, error) {
	path := filepath.Join(outputDir, StateFile)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", err
	}
	latest := -1
	for _, e := range entries {
		n, ok := strings.CutPrefix(e.Name(), checkpointPrefix)
		if !ok || !e.IsDir() {
			continue
		}
		step, err := strconv.Atoi(n)
		if err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(outputDir, e.Name(), StateFile)); err == nil {
			latest = max(latest, step)
		}
	}
	if latest < 0 {
		return "", fmt.Errorf("%w in %s", ErrNoState, outputDir)
	}
	return filepath.Join(outputDir, checkpointPrefix+strconv.Itoa(latest), StateFile), nil
}

// Series returns the train and evaluation loss curves of s ordered by step.
func (s *State) Series() (train, eval plotter.XYs) {
	for _, e := range s.LogHistory {
		if e.Loss != nil {
			train = append(train, plotter.XY{X: float64(e.Step), Y: *e.Loss})
		}
		if e.EvalLoss != nil {
			eval = append(eval, plotter.XY{X: float64(e.Step), Y: *e.EvalLoss})
		}
	}
	byStep := func(a, b plotter.XY) int { return cmp.Compare(a.X, b.X) }
	slices.SortStableFunc(train, byStep)
	slices.SortStableFunc(eval, byStep)
	return train, eval
}

// Summary condenses a training state.
type Summary struct {
	Steps         int
	Epochs        float64
	FinalLoss     float64
	BestEvalLoss  float64
	BestEvalStep  int
	HasEvaluation bool
}

// Summarize returns the summary of s. Losses are NaN when never logged.
func (s *State) Summarize() Summary {
	sum := Summary{
		Steps:        s.GlobalStep,
		Epochs:       s.Epoch,
		FinalLoss:    math.NaN(),
		BestEvalLoss: math.NaN(),
	}
	train, eval := s.Series()
	if len(train) > 0 {
		sum.FinalLoss = train[len(train)-1].Y
	}
	for _, p := range eval {
		if !sum.HasEvaluation || p.Y < sum.BestEvalLoss {
			sum.BestEvalLoss = p.Y
			sum.BestEvalStep = int(p.X)
			sum.HasEvaluation = true
		}
	}
	return sum
}

var (
	trainColor = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	evalColor  = color.RGBA{R: 200, G: 30, B: 30, A: 255}
)

// Plot draws the loss curves of s.
func (s *State) Plot(title string) (*plot.Plot, error) {
	train, eval := s.Series()
	if len(train) == 0 && len(eval) == 0 {
		return nil, errors.New("log history has no losses")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())

	for _, curve := range []struct {
		name  string
		xys   plotter.XYs
		color color.Color
	}{
		{name: "train", xys: train, color: trainColor},
		{name: "eval", xys: eval, color: evalColor},
	} {
		if len(curve.xys) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(curve.xys)
		if err != nil {
			return nil, fmt.Errorf("%s curve: %w", curve.name, err)
		}
		line.Color = curve.color
		line.Width = vg.Points(1.2)
		points.Color = curve.color
		points.Radius = vg.Points(1.5)
		p.Add(line, points)
		p.Legend.Add(curve.name, line, points)
	}
	return p, nil
}

// Save plots s into path. The image format follows the extension of path,
// e.g. ".png" or ".svg".
func (s *State) Save(path, title string) error {
	p, err := s.Plot(title)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
