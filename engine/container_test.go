// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/go-cmp/cmp"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/go-a2a/rewardtrainer/types"
)

type fakeDocker struct {
	imagePresent bool
	exitCode     int64
	stdout       string

	mu      sync.Mutex
	calls   []string
	config  *container.Config
	host    *container.HostConfig
	removed []string
}

var _ DockerAPI = (*fakeDocker)(nil)

func (d *fakeDocker) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDocker) ImageInspect(context.Context, string, ...client.ImageInspectOption) (image.InspectResponse, error) {
	d.record("ImageInspect")
	if !d.imagePresent {
		return image.InspectResponse{}, cerrdefs.ErrNotFound
	}
	return image.InspectResponse{}, nil
}

func (d *fakeDocker) ImagePull(context.Context, string, image.PullOptions) (io.ReadCloser, error) {
	d.record("ImagePull")
	return io.NopCloser(strings.NewReader(`{"status":"Downloaded"}`)), nil
}

func (d *fakeDocker) ContainerCreate(_ context.Context, config *container.Config, host *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	d.record("ContainerCreate")
	d.config = config
	d.host = host
	return container.CreateResponse{ID: "c0ffee"}, nil
}

func (d *fakeDocker) ContainerStart(context.Context, string, container.StartOptions) error {
	d.record("ContainerStart")
	return nil
}

func (d *fakeDocker) ContainerWait(context.Context, string, container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	statusCh <- container.WaitResponse{StatusCode: d.exitCode}
	return statusCh, make(chan error)
}

func (d *fakeDocker) ContainerLogs(context.Context, string, container.LogsOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if _, err := stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(d.stdout)); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

func (d *fakeDocker) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removed = append(d.removed, id)
	return nil
}

func TestContainerEngineTrain(t *testing.T) {
	tests := []struct {
		name         string
		imagePresent bool
		exitCode     int64
		wantCalls    []string
		wantErr      string
	}{
		{
			name:         "image present",
			imagePresent: true,
			wantCalls:    []string{"ImageInspect", "ContainerCreate", "ContainerStart"},
		},
		{
			name:      "image pulled",
			wantCalls: []string{"ImageInspect", "ImagePull", "ContainerCreate", "ContainerStart"},
		},
		{
			name:         "runner failure",
			imagePresent: true,
			exitCode:     1,
			wantCalls:    []string{"ImageInspect", "ContainerCreate", "ContainerStart"},
			wantErr:      "runner exited with code 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			docker := &fakeDocker{
				imagePresent: tt.imagePresent,
				exitCode:     tt.exitCode,
				stdout:       "epoch 1\n",
			}
			f, err := NewContainerFactory(
				WithDockerClient(docker),
				WithImage("runner:test"),
				WithContainerLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
			)
			if err != nil {
				t.Fatalf("NewContainerFactory() error = %v", err)
			}

			in := newInput(t, types.DeviceMapAuto, true)
			eng, err := f.NewEngine(t.Context(), in)
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}
			err = eng.Train(t.Context())
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Train() error = %v, want %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Train() error = %v", err)
			}

			if diff := cmp.Diff(tt.wantCalls, docker.calls); diff != "" {
				t.Errorf("docker calls mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"c0ffee"}, docker.removed); diff != "" {
				t.Errorf("removed containers mismatch (-want +got):\n%s", diff)
			}
			if !strings.Contains(logs.String(), "epoch 1") {
				t.Errorf("container output was not logged:\n%s", logs.String())
			}

			outputDir, err := filepath.Abs(in.Args.OutputDir)
			if err != nil {
				t.Fatal(err)
			}
			wantMounts := []mount.Mount{
				{Type: mount.TypeBind, Source: eng.(*ContainerEngine).Run().Dir, Target: containerRunDir},
				{Type: mount.TypeBind, Source: outputDir, Target: containerOutputDir},
			}
			if diff := cmp.Diff(wantMounts, docker.host.Mounts); diff != "" {
				t.Errorf("mounts mismatch (-want +got):\n%s", diff)
			}
			if got, want := docker.config.Image, "runner:test"; got != want {
				t.Errorf("image = %q, want %q", got, want)
			}

			var wantUpdated []string
			if tt.wantErr == "" {
				wantUpdated = []string{outputDir}
			}
			if diff := cmp.Diff(wantUpdated, in.Model.(*fakeModel).Updated()); diff != "" {
				t.Errorf("updated weights mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeviceRequests(t *testing.T) {
	tests := []struct {
		name      string
		deviceMap string
		want      []container.DeviceRequest
	}{
		{
			name:      "cpu",
			deviceMap: types.DeviceMapCPU,
			want:      nil,
		},
		{
			name:      "auto",
			deviceMap: types.DeviceMapAuto,
			want: []container.DeviceRequest{{
				Driver:       "nvidia",
				Count:        -1,
				Capabilities: [][]string{{"gpu"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, DeviceRequests(tt.deviceMap)); diff != "" {
				t.Errorf("DeviceRequests() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
