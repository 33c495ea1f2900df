// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML run configuration of the rewardtrainer command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-a2a/rewardtrainer/trainer"
	"github.com/go-a2a/rewardtrainer/types"
)

// EnvConfig names the environment variable holding the config path.
const EnvConfig = "REWARDTRAINER_CONFIG"

// FileName is the config file looked up in the working directory.
const FileName = "rewardtrainer.yaml"

// Task names the training task.
type Task string

const (
	TaskRegression     Task = "regression"
	TaskClassification Task = "classification"
)

// Engine kinds.
const (
	EngineProcess = "process"
	EngineDocker  = "docker"
	EngineVertex  = "vertex"
)

// Hub backends.
const (
	HubMemory = "memory"
	HubLocal  = "local"
	HubGCS    = "gcs"
)

// Config is a training run.
type Config struct {
	Model     string `yaml:"model"`
	Tokenizer string `yaml:"tokenizer,omitempty"`
	Task      Task   `yaml:"task"`
	OutputDir string `yaml:"output_dir"`

	// DataDir holds one {fold}.jsonl file per fold.
	DataDir    string `yaml:"data_dir"`
	TextColumn string `yaml:"text_column,omitempty"`

	Hyperparameters Hyperparameters `yaml:"hyperparameters"`
	Engine          Engine          `yaml:"engine"`
	Hub             Hub             `yaml:"hub"`
	Push            *Push           `yaml:"push,omitempty"`
}

// Hyperparameters mirror the trainer options. Zero step counts leave the steps unset.
type Hyperparameters struct {
	NumLabels                 int                    `yaml:"num_labels"`
	LearningRate              float64                `yaml:"learning_rate"`
	NumTrainEpochs            int                    `yaml:"num_train_epochs"`
	Optim                     types.Optimizer        `yaml:"optim"`
	BF16                      bool                   `yaml:"bf16"`
	LoggingStrategy           types.IntervalStrategy `yaml:"logging_strategy"`
	LoggingSteps              int                    `yaml:"logging_steps"`
	EvalStrategy              types.IntervalStrategy `yaml:"eval_strategy"`
	EvalSteps                 int                    `yaml:"eval_steps,omitempty"`
	SaveStrategy              types.IntervalStrategy `yaml:"save_strategy"`
	SaveSteps                 int                    `yaml:"save_steps,omitempty"`
	PerDeviceBatchSize        int                    `yaml:"per_device_batch_size"`
	GradientAccumulationSteps int                    `yaml:"gradient_accumulation_steps"`
	TrainSeed                 int                    `yaml:"train_seed"`
	DeviceMap                 string                 `yaml:"device_map"`
}

// Engine selects where the runner executes.
type Engine struct {
	Kind string `yaml:"kind"`

	// Python is the interpreter of the process engine.
	Python string `yaml:"python,omitempty"`

	// Image is the runner image of the docker and vertex engines.
	Image       string `yaml:"image,omitempty"`
	MemoryLimit int64  `yaml:"memory_limit,omitempty"`

	Env    map[string]string `yaml:"env,omitempty"`
	Vertex *Vertex           `yaml:"vertex,omitempty"`
}

// Vertex configures the Vertex AI engine.
type Vertex struct {
	Project          string `yaml:"project"`
	Location         string `yaml:"location"`
	StagingURI       string `yaml:"staging_uri"`
	MachineType      string `yaml:"machine_type,omitempty"`
	AcceleratorType  string `yaml:"accelerator_type,omitempty"`
	AcceleratorCount int32  `yaml:"accelerator_count,omitempty"`
	ServiceAccount   string `yaml:"service_account,omitempty"`
}

// Hub selects the artifact registry checkpoints are resolved from and published to.
type Hub struct {
	Backend  string `yaml:"backend"`
	Root     string `yaml:"root,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// Push publishes the trained model after training.
type Push struct {
	Repo    string `yaml:"repo"`
	Private bool   `yaml:"private"`
}

// Default returns the configuration every file is applied on top of.
func Default() *Config {
	return &Config{
		Task: TaskRegression,
		Hyperparameters: Hyperparameters{
			NumLabels:                 1,
			LearningRate:              2e-5,
			NumTrainEpochs:            1,
			Optim:                     types.OptimizerAdamWHF,
			LoggingStrategy:           types.IntervalSteps,
			LoggingSteps:              50,
			EvalStrategy:              types.IntervalNo,
			SaveStrategy:              types.IntervalNo,
			PerDeviceBatchSize:        8,
			GradientAccumulationSteps: 1,
			TrainSeed:                 1,
			DeviceMap:                 types.DeviceMapAuto,
		},
		Engine: Engine{Kind: EngineProcess},
		Hub:    Hub{Backend: HubMemory},
	}
}

// Path returns the config path to load: path itself, else $REWARDTRAINER_CONFIG,
// else ./rewardtrainer.yaml, else the file in the user config directory.
func Path(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "rewardtrainer", "config.yaml")
	}
	return FileName
}

// Load reads, defaults and validates the config at [Path](path).
func Load(path string) (*Config, error) {
	path = Path(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found at %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data on top of [Default] and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports every inconsistency of c.
func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	switch c.Task {
	case TaskRegression, TaskClassification:
	default:
		errs = append(errs, fmt.Errorf("unknown task %q", c.Task))
	}

	hp := c.Hyperparameters
	if hp.NumLabels < 1 {
		errs = append(errs, fmt.Errorf("num_labels must be positive, got %d", hp.NumLabels))
	}
	if c.Task == TaskClassification && hp.NumLabels < 2 {
		errs = append(errs, fmt.Errorf("classification needs at least 2 labels, got %d", hp.NumLabels))
	}
	switch hp.DeviceMap {
	case types.DeviceMapAuto, types.DeviceMapCPU:
	default:
		if !strings.HasPrefix(hp.DeviceMap, "cuda") {
			errs = append(errs, fmt.Errorf("unknown device_map %q", hp.DeviceMap))
		}
	}

	switch c.Engine.Kind {
	case EngineProcess, EngineDocker:
	case EngineVertex:
		v := c.Engine.Vertex
		switch {
		case v == nil:
			errs = append(errs, errors.New("engine.vertex is required with the vertex engine"))
		case v.Project == "" || v.Location == "" || v.StagingURI == "":
			errs = append(errs, errors.New("engine.vertex needs project, location and staging_uri"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown engine kind %q", c.Engine.Kind))
	}

	switch c.Hub.Backend {
	case HubMemory:
	case HubLocal:
		if c.Hub.Root == "" {
			errs = append(errs, errors.New("hub.root is required with the local backend"))
		}
	case HubGCS:
		if c.Hub.Bucket == "" {
			errs = append(errs, errors.New("hub.bucket is required with the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown hub backend %q", c.Hub.Backend))
	}

	if c.Push != nil && c.Push.Repo == "" {
		errs = append(errs, errors.New("push.repo is required"))
	}
	return errors.Join(errs...)
}

// TokenizerName returns the tokenizer to load, defaulting to the model.
func (c *Config) TokenizerName() string {
	if c.Tokenizer != "" {
		return c.Tokenizer
	}
	return c.Model
}

// Formatter returns the label formatter of the task.
func (c *Config) Formatter() (trainer.Formatter, error) {
	switch c.Task {
	case TaskRegression:
		return trainer.Regression{}, nil
	case TaskClassification:
		return trainer.Classification{}, nil
	}
	return nil, fmt.Errorf("unknown task %q", c.Task)
}

// TrainerOptions converts the hyperparameters to trainer options.
func (c *Config) TrainerOptions() []trainer.Option {
	hp := c.Hyperparameters
	return []trainer.Option{
		trainer.WithNumLabels(hp.NumLabels),
		trainer.WithLearningRate(hp.LearningRate),
		trainer.WithNumTrainEpochs(hp.NumTrainEpochs),
		trainer.WithOptim(hp.Optim),
		trainer.WithBF16(hp.BF16),
		trainer.WithLoggingStrategy(hp.LoggingStrategy, hp.LoggingSteps),
		trainer.WithEvalStrategy(hp.EvalStrategy, hp.EvalSteps),
		trainer.WithSaveStrategy(hp.SaveStrategy, hp.SaveSteps),
		trainer.WithPerDeviceBatchSize(hp.PerDeviceBatchSize),
		trainer.WithGradientAccumulationSteps(hp.GradientAccumulationSteps),
		trainer.WithTrainSeed(hp.TrainSeed),
		trainer.WithDeviceMap(hp.DeviceMap),
	}
}
