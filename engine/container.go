// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/go-a2a/rewardtrainer/pkg/logging"
	"github.com/go-a2a/rewardtrainer/types"
)

// DefaultImage is the runner image of [ContainerEngine].
const DefaultImage = "huggingface/transformers-pytorch-gpu:latest"

// Paths of the run and output directories inside the container.
const (
	containerRunDir    = "/workspace/run"
	containerOutputDir = "/workspace/output"
)

// DockerAPI is the subset of the docker client used by [ContainerEngine].
type DockerAPI interface {
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

var _ DockerAPI = (*client.Client)(nil)

// ContainerFactory builds [ContainerEngine] values.
type ContainerFactory struct {
	client      DockerAPI
	image       string
	stageRoot   string
	textColumn  string
	memoryLimit int64
	shmSize     int64
	logger      *slog.Logger
}

var _ types.EngineFactory = (*ContainerFactory)(nil)

// ContainerOption is a functional option for configuring a [ContainerFactory].
type ContainerOption func(*ContainerFactory)

// WithDockerClient sets the docker client.
func WithDockerClient(c DockerAPI) ContainerOption {
	return func(f *ContainerFactory) {
		f.client = c
	}
}

// WithImage sets the runner image. Defaults to [DefaultImage].
func WithImage(image string) ContainerOption {
	return func(f *ContainerFactory) {
		f.image = image
	}
}

// WithContainerStageRoot sets the directory runs are staged in.
// Defaults to {output_dir}/runs.
func WithContainerStageRoot(dir string) ContainerOption {
	return func(f *ContainerFactory) {
		f.stageRoot = dir
	}
}

// WithContainerTextColumn sets the column the runner tokenizes.
func WithContainerTextColumn(column string) ContainerOption {
	return func(f *ContainerFactory) {
		f.textColumn = column
	}
}

// WithMemoryLimit sets the memory limit of the container in bytes.
func WithMemoryLimit(limit int64) ContainerOption {
	return func(f *ContainerFactory) {
		f.memoryLimit = limit
	}
}

// WithShmSize sets the size of /dev/shm in bytes, used by data loader workers.
func WithShmSize(size int64) ContainerOption {
	return func(f *ContainerFactory) {
		f.shmSize = size
	}
}

// WithContainerLogger sets the logger container output is logged to.
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(f *ContainerFactory) {
		f.logger = logger
	}
}

// NewContainerFactory returns a factory of engines running the runner in a docker container.
func NewContainerFactory(opts ...ContainerOption) (*ContainerFactory, error) {
	f := &ContainerFactory{
		image:   DefaultImage,
		shmSize: 2 << 30,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		c, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return nil, fmt.Errorf("create Docker client: %w", err)
		}
		f.client = c
	}
	return f, nil
}

// NewEngine implements [types.EngineFactory]. The run is staged immediately.
func (f *ContainerFactory) NewEngine(ctx context.Context, in *types.EngineInput) (types.TrainingEngine, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	outputDir, err := filepath.Abs(in.Args.OutputDir)
	if err != nil {
		return nil, err
	}
	root := f.stageRoot
	if root == "" {
		root = filepath.Join(outputDir, RunsDirName)
	}
	run, err := Stage(ctx, root, in, StageOptions{
		OutputDir:  containerOutputDir,
		TextColumn: f.textColumn,
	})
	if err != nil {
		return nil, err
	}
	runDir, err := filepath.Abs(run.Dir)
	if err != nil {
		return nil, err
	}

	return &ContainerEngine{
		client:    f.client,
		image:     f.image,
		logger:    f.logger,
		run:       run,
		model:     in.Model,
		outputDir: outputDir,
		config: &container.Config{
			Image:      f.image,
			WorkingDir: containerRunDir,
			Cmd: []string{
				"python", containerRunDir + "/" + RunnerScript,
				"--run-dir", containerRunDir,
			},
			Env: []string{"PYTHONUNBUFFERED=1"},
			Labels: map[string]string{
				"rewardtrainer.run-id": run.ID,
			},
		},
		hostConfig: &container.HostConfig{
			Mounts: []mount.Mount{
				{Type: mount.TypeBind, Source: runDir, Target: containerRunDir},
				{Type: mount.TypeBind, Source: outputDir, Target: containerOutputDir},
			},
			ShmSize: f.shmSize,
			Resources: container.Resources{
				Memory:         f.memoryLimit,
				DeviceRequests: DeviceRequests(run.Manifest.DeviceMap),
			},
		},
	}, nil
}

// DeviceRequests maps a device map to the GPUs requested for the container.
func DeviceRequests(deviceMap string) []container.DeviceRequest {
	if deviceMap == types.DeviceMapCPU {
		return nil
	}
	return []container.DeviceRequest{{
		Driver:       "nvidia",
		Count:        -1,
		Capabilities: [][]string{{"gpu"}},
	}}
}

// ContainerEngine runs a staged run in a docker container.
type ContainerEngine struct {
	client     DockerAPI
	image      string
	logger     *slog.Logger
	run        *Run
	model      types.RewardModel
	outputDir  string
	config     *container.Config
	hostConfig *container.HostConfig
}

var _ types.TrainingEngine = (*ContainerEngine)(nil)

// Run returns the staged run.
func (e *ContainerEngine) Run() *Run { return e.run }

// Train implements [types.TrainingEngine].
func (e *ContainerEngine) Train(ctx context.Context) error {
	ctx = logging.NewContext(ctx, e.logger.With(slog.String("run_id", e.run.ID)))
	logger := logging.FromContext(ctx)

	if err := e.ensureImage(ctx); err != nil {
		return fmt.Errorf("ensure image %s: %w", e.image, err)
	}

	resp, err := e.client.ContainerCreate(ctx, e.config, e.hostConfig, nil, nil, "rewardtrainer-"+e.run.ID)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	defer e.cleanupContainer(context.WithoutCancel(ctx), resp.ID)

	start := time.Now()
	if err := e.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	logger.InfoContext(ctx, "Training container started",
		slog.String("container_id", resp.ID),
		slog.String("image", e.image),
	)

	logsDone := make(chan error, 1)
	go func() {
		logsDone <- e.streamLogs(ctx, resp.ID)
	}()

	statusCh, errCh := e.client.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	var status container.WaitResponse
	select {
	case err := <-errCh:
		return fmt.Errorf("wait for container: %w", err)
	case status = <-statusCh:
	}
	if err := <-logsDone; err != nil {
		logger.WarnContext(ctx, "Reading container logs failed", slog.String("error", err.Error()))
	}

	if status.Error != nil {
		return fmt.Errorf("container %s: %s", resp.ID, status.Error.Message)
	}
	if status.StatusCode != 0 {
		return fmt.Errorf("runner exited with code %d", status.StatusCode)
	}
	logger.InfoContext(ctx, "Training container finished", slog.Duration("duration", time.Since(start)))

	return updateWeights(ctx, e.model, e.outputDir)
}

// ensureImage pulls the image unless it is available locally.
func (e *ContainerEngine) ensureImage(ctx context.Context) error {
	_, err := e.client.ImageInspect(ctx, e.image)
	if err == nil {
		return nil
	}
	if !cerrdefs.IsNotFound(err) {
		return err
	}

	logging.FromContext(ctx).InfoContext(ctx, "Pulling image", slog.String("image", e.image))
	reader, err := e.client.ImagePull(ctx, e.image, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	// Wait for pull to complete
	_, err = io.Copy(io.Discard, reader)
	return err
}

func (e *ContainerEngine) streamLogs(ctx context.Context, containerID string) error {
	logger := logging.FromContext(ctx)
	rc, err := e.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return err
	}
	defer rc.Close()

	stdout := newLogWriter(ctx, logger, "stdout")
	stderr := newLogWriter(ctx, logger, "stderr")
	defer stdout.Flush()
	defer stderr.Flush()

	if _, err := stdcopy.StdCopy(stdout, stderr, rc); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// cleanupContainer removes the container.
func (e *ContainerEngine) cleanupContainer(ctx context.Context, containerID string) {
	if err := e.client.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: true,
	}); err != nil {
		e.logger.WarnContext(ctx, "Removing container failed",
			slog.String("container_id", containerID),
			slog.String("error", err.Error()),
		)
	}
}
