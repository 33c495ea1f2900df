// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/rewardtrainer/types"
)

func TestProcessEngineTrain(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		wantErr string
	}{
		{
			name: "success",
			mode: "ok",
		},
		{
			name:    "runner failure",
			mode:    "3",
			wantErr: "runner exited with code 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, nil))

			in := newInput(t, types.DeviceMapAuto, false)
			f := NewProcessFactory(
				WithPython(os.Args[0]),
				WithEnv(map[string]string{helperRunnerEnv: tt.mode}),
				WithProcessLogger(logger),
			)
			eng, err := f.NewEngine(t.Context(), in)
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}
			run := eng.(*ProcessEngine).Run()
			if got, want := filepath.Dir(run.Dir), filepath.Join(in.Args.OutputDir, RunsDirName); got != want {
				t.Errorf("run staged in %q, want %q", got, want)
			}

			err = eng.Train(t.Context())
			model := in.Model.(*fakeModel)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Train() error = %v, want %q", err, tt.wantErr)
				}
				if len(model.Updated()) != 0 {
					t.Errorf("weights updated after a failed run: %v", model.Updated())
				}
				if !strings.Contains(logs.String(), "runner failed") {
					t.Errorf("stderr was not logged:\n%s", logs.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("Train() error = %v", err)
			}

			if diff := cmp.Diff([]string{in.Args.OutputDir}, model.Updated()); diff != "" {
				t.Errorf("updated weights mismatch (-want +got):\n%s", diff)
			}
			if _, err := os.Stat(filepath.Join(in.Args.OutputDir, "model.safetensors")); err != nil {
				t.Errorf("trained weights missing: %v", err)
			}
			if !strings.Contains(logs.String(), `"stream":"stdout"`) {
				t.Errorf("stdout was not logged:\n%s", logs.String())
			}
		})
	}
}

func TestProcessEngineCommand(t *testing.T) {
	tests := []struct {
		name      string
		deviceMap string
		wantCPU   bool
	}{
		{name: "auto", deviceMap: types.DeviceMapAuto},
		{name: "cpu", deviceMap: types.DeviceMapCPU, wantCPU: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewProcessFactory(
				WithPython("python3.12"),
				WithStageRoot(t.TempDir()),
				WithEnv(map[string]string{"HF_HOME": "/cache"}),
			)
			eng, err := f.NewEngine(t.Context(), newInput(t, tt.deviceMap, false))
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}
			pe := eng.(*ProcessEngine)
			cmd := pe.Command(t.Context())

			wantArgs := []string{"python3.12", filepath.Join(pe.Run().Dir, RunnerScript), "--run-dir", pe.Run().Dir}
			if diff := cmp.Diff(wantArgs, cmd.Args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
			if !slices.Contains(cmd.Env, "HF_HOME=/cache") {
				t.Error("extra environment missing")
			}
			if got := slices.Contains(cmd.Env, "CUDA_VISIBLE_DEVICES="); got != tt.wantCPU {
				t.Errorf("CUDA_VISIBLE_DEVICES hidden = %t, want %t", got, tt.wantCPU)
			}
		})
	}
}

func TestLogWriter(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	w := newLogWriter(t.Context(), logger, "stdout")
	for _, chunk := range []string{"epoch 1", " done\nloss=0.5\r\n", "\n", "partial"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}
	w.Flush()

	want := strings.Join([]string{
		`msg="epoch 1 done" stream=stdout`,
		`msg="loss=0.5" stream=stdout`,
		`msg=partial stream=stdout`,
		``,
	}, "\n")
	if diff := cmp.Diff(want, logs.String()); diff != "" {
		t.Errorf("logs mismatch (-want +got):\n%s", diff)
	}
}
