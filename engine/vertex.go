// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1beta1"
	"cloud.google.com/go/aiplatform/apiv1beta1/aiplatformpb"
	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/go-a2a/rewardtrainer/pkg/logging"
	"github.com/go-a2a/rewardtrainer/types"
)

// Defaults of [VertexFactory].
const (
	DefaultMachineType     = "n1-standard-8"
	DefaultAcceleratorType = "NVIDIA_TESLA_T4"
	DefaultPollInterval    = 30 * time.Second
)

// gcsFuseRoot is where Vertex AI mounts Cloud Storage buckets inside the job.
const gcsFuseRoot = "/gcs"

// outputDirName is the run subdirectory the job writes its weights to.
const outputDirName = "output"

// maxTransfers bounds the concurrent object transfers of [GCSStore].
const maxTransfers = 16

// JobAPI is the subset of the Vertex AI job client used by [VertexEngine].
type JobAPI interface {
	CreateCustomJob(ctx context.Context, req *aiplatformpb.CreateCustomJobRequest, opts ...gax.CallOption) (*aiplatformpb.CustomJob, error)
	GetCustomJob(ctx context.Context, req *aiplatformpb.GetCustomJobRequest, opts ...gax.CallOption) (*aiplatformpb.CustomJob, error)
	CancelCustomJob(ctx context.Context, req *aiplatformpb.CancelCustomJobRequest, opts ...gax.CallOption) error
}

var _ JobAPI = (*aiplatform.JobClient)(nil)

// ObjectStore moves run directories to and from Cloud Storage.
type ObjectStore interface {
	// Upload copies every file below dir to the gs:// URI prefix.
	Upload(ctx context.Context, dir, uri string) error

	// Download copies every object below the gs:// URI prefix into dir.
	Download(ctx context.Context, uri, dir string) error
}

// VertexFactory builds [VertexEngine] values.
type VertexFactory struct {
	projectID        string
	location         string
	stagingURI       string
	image            string
	machineType      string
	acceleratorType  string
	acceleratorCount int32
	pollInterval     time.Duration
	serviceAccount   string
	textColumn       string
	jobs             JobAPI
	store            ObjectStore
	logger           *slog.Logger
}

var _ types.EngineFactory = (*VertexFactory)(nil)

// VertexOption is a functional option for configuring a [VertexFactory].
type VertexOption func(*VertexFactory)

// WithVertexImage sets the runner image. Defaults to [DefaultImage].
func WithVertexImage(image string) VertexOption {
	return func(f *VertexFactory) {
		f.image = image
	}
}

// WithMachine sets the machine type and the accelerators attached to it.
// acceleratorType names an [aiplatformpb.AcceleratorType], e.g. "NVIDIA_L4".
func WithMachine(machineType, acceleratorType string, acceleratorCount int32) VertexOption {
	return func(f *VertexFactory) {
		f.machineType = machineType
		f.acceleratorType = acceleratorType
		f.acceleratorCount = acceleratorCount
	}
}

// WithPollInterval sets how often the job state is polled.
func WithPollInterval(d time.Duration) VertexOption {
	return func(f *VertexFactory) {
		f.pollInterval = d
	}
}

// WithServiceAccount sets the service account the job runs as.
func WithServiceAccount(email string) VertexOption {
	return func(f *VertexFactory) {
		f.serviceAccount = email
	}
}

// WithVertexTextColumn sets the column the runner tokenizes.
func WithVertexTextColumn(column string) VertexOption {
	return func(f *VertexFactory) {
		f.textColumn = column
	}
}

// WithJobClient sets the Vertex AI job client.
func WithJobClient(jobs JobAPI) VertexOption {
	return func(f *VertexFactory) {
		f.jobs = jobs
	}
}

// WithObjectStore sets the store run directories are uploaded to.
func WithObjectStore(store ObjectStore) VertexOption {
	return func(f *VertexFactory) {
		f.store = store
	}
}

// WithVertexLogger sets the logger for the engine.
func WithVertexLogger(logger *slog.Logger) VertexOption {
	return func(f *VertexFactory) {
		f.logger = logger
	}
}

// NewVertexFactory returns a factory of engines running the runner as a Vertex AI custom job.
//
// Runs are uploaded below stagingURI, a gs://bucket/prefix URI.
func NewVertexFactory(ctx context.Context, projectID, location, stagingURI string, opts ...VertexOption) (*VertexFactory, error) {
	if projectID == "" {
		return nil, errors.New("projectID is required")
	}
	if location == "" {
		return nil, errors.New("location is required")
	}
	if _, _, err := parseGCSURI(stagingURI); err != nil {
		return nil, err
	}

	f := &VertexFactory{
		projectID:        projectID,
		location:         location,
		stagingURI:       strings.TrimSuffix(stagingURI, "/"),
		image:            DefaultImage,
		machineType:      DefaultMachineType,
		acceleratorType:  DefaultAcceleratorType,
		acceleratorCount: 1,
		pollInterval:     DefaultPollInterval,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.acceleratorType != "" {
		if _, ok := aiplatformpb.AcceleratorType_value[f.acceleratorType]; !ok {
			return nil, fmt.Errorf("unknown accelerator type %q", f.acceleratorType)
		}
	}

	if f.jobs != nil && f.store != nil {
		return f, nil
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		Scopes: []string{
			"https://www.googleapis.com/auth/cloud-platform",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect credentials: %w", err)
	}
	if f.jobs == nil {
		jobs, err := aiplatform.NewJobClient(ctx,
			option.WithAuthCredentials(creds),
			option.WithEndpoint(location+"-aiplatform.googleapis.com:443"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create job client: %w", err)
		}
		f.jobs = jobs
	}
	if f.store == nil {
		client, err := storage.NewClient(ctx, option.WithAuthCredentials(creds))
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		f.store = &GCSStore{client: client}
	}

	f.logger.InfoContext(ctx, "Vertex AI engine initialized",
		slog.String("project_id", projectID),
		slog.String("location", location),
	)
	return f, nil
}

// NewEngine implements [types.EngineFactory]. The run is staged locally
// immediately and uploaded when training starts.
func (f *VertexFactory) NewEngine(ctx context.Context, in *types.EngineInput) (types.TrainingEngine, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	tmp, err := os.MkdirTemp("", "rewardtrainer-vertex-")
	if err != nil {
		return nil, err
	}

	// the run id is only known after staging, so the output dir is a path
	// relative to the run dir and rewritten below
	run, err := Stage(ctx, tmp, in, StageOptions{
		OutputDir:  outputDirName,
		TextColumn: f.textColumn,
	})
	if err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}

	runURI := f.stagingURI + "/" + run.ID
	mounted, err := fuseMountPath(runURI)
	if err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}
	args := *in.Args
	args.OutputDir = mounted + "/" + outputDirName
	args.LoggingDir = types.LogsDir(args.OutputDir)
	if err := writeJSON(filepath.Join(run.Dir, ArgsFile), &args); err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}

	return &VertexEngine{
		factory:   f,
		run:       run,
		tmpDir:    tmp,
		runURI:    runURI,
		model:     in.Model,
		outputDir: in.Args.OutputDir,
	}, nil
}

// CustomJob returns the custom job specification of a run uploaded to runURI.
func (f *VertexFactory) CustomJob(run *Run, runURI string) (*aiplatformpb.CustomJob, error) {
	mounted, err := fuseMountPath(runURI)
	if err != nil {
		return nil, err
	}

	machine := &aiplatformpb.MachineSpec{MachineType: f.machineType}
	if run.Manifest.DeviceMap != types.DeviceMapCPU && f.acceleratorType != "" && f.acceleratorCount > 0 {
		machine.AcceleratorType = aiplatformpb.AcceleratorType(aiplatformpb.AcceleratorType_value[f.acceleratorType])
		machine.AcceleratorCount = f.acceleratorCount
	}

	return &aiplatformpb.CustomJob{
		DisplayName: "rewardtrainer-" + run.ID,
		Labels: map[string]string{
			"rewardtrainer-run-id": run.ID,
		},
		JobSpec: &aiplatformpb.CustomJobSpec{
			ServiceAccount: f.serviceAccount,
			WorkerPoolSpecs: []*aiplatformpb.WorkerPoolSpec{{
				MachineSpec:  machine,
				ReplicaCount: 1,
				Task: &aiplatformpb.WorkerPoolSpec_ContainerSpec{
					ContainerSpec: &aiplatformpb.ContainerSpec{
						ImageUri: f.image,
						Command:  []string{"python", mounted + "/" + RunnerScript},
						Args:     []string{"--run-dir", mounted},
						Env: []*aiplatformpb.EnvVar{
							{Name: "PYTHONUNBUFFERED", Value: "1"},
						},
					},
				},
			}},
		},
	}, nil
}

// VertexEngine runs a staged run as a Vertex AI custom job.
type VertexEngine struct {
	factory   *VertexFactory
	run       *Run
	tmpDir    string
	runURI    string
	model     types.RewardModel
	outputDir string
}

var _ types.TrainingEngine = (*VertexEngine)(nil)

// Run returns the staged run.
func (e *VertexEngine) Run() *Run { return e.run }

// Train implements [types.TrainingEngine].
//
// Cancelling ctx cancels the custom job.
func (e *VertexEngine) Train(ctx context.Context) error {
	defer os.RemoveAll(e.tmpDir)

	f := e.factory
	ctx = logging.NewContext(ctx, f.logger.With(slog.String("run_id", e.run.ID)))
	logger := logging.FromContext(ctx)

	if err := f.store.Upload(ctx, e.run.Dir, e.runURI); err != nil {
		return fmt.Errorf("upload run: %w", err)
	}

	spec, err := f.CustomJob(e.run, e.runURI)
	if err != nil {
		return err
	}
	job, err := f.jobs.CreateCustomJob(ctx, &aiplatformpb.CreateCustomJobRequest{
		Parent:    fmt.Sprintf("projects/%s/locations/%s", f.projectID, f.location),
		CustomJob: spec,
	})
	if err != nil {
		return fmt.Errorf("create custom job: %w", err)
	}
	logger.InfoContext(ctx, "Custom job created",
		slog.String("job", job.GetName()),
		slog.String("run_uri", e.runURI),
	)

	start := time.Now()
	if err := e.wait(ctx, job.GetName()); err != nil {
		return err
	}
	logger.InfoContext(ctx, "Custom job succeeded", slog.Duration("duration", time.Since(start)))

	if err := f.store.Download(ctx, e.runURI+"/"+outputDirName, e.outputDir); err != nil {
		return fmt.Errorf("download trained weights: %w", err)
	}
	return updateWeights(ctx, e.model, e.outputDir)
}

func (e *VertexEngine) wait(ctx context.Context, name string) error {
	f := e.factory
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	state := aiplatformpb.JobState_JOB_STATE_UNSPECIFIED
	for {
		job, err := f.jobs.GetCustomJob(ctx, &aiplatformpb.GetCustomJobRequest{Name: name})
		if err != nil {
			if ctx.Err() != nil {
				return e.cancel(ctx, name)
			}
			return fmt.Errorf("get custom job: %w", err)
		}
		if job.GetState() != state {
			state = job.GetState()
			logger.InfoContext(ctx, "Custom job state changed", slog.String("state", state.String()))
		}

		switch state {
		case aiplatformpb.JobState_JOB_STATE_SUCCEEDED:
			return nil
		case aiplatformpb.JobState_JOB_STATE_FAILED,
			aiplatformpb.JobState_JOB_STATE_CANCELLED,
			aiplatformpb.JobState_JOB_STATE_EXPIRED,
			aiplatformpb.JobState_JOB_STATE_PARTIALLY_SUCCEEDED:
			return fmt.Errorf("custom job %s ended in state %s: %s", name, state, job.GetError().GetMessage())
		}

		select {
		case <-ctx.Done():
			return e.cancel(ctx, name)
		case <-ticker.C:
		}
	}
}

func (e *VertexEngine) cancel(ctx context.Context, name string) error {
	if err := e.factory.jobs.CancelCustomJob(context.WithoutCancel(ctx), &aiplatformpb.CancelCustomJobRequest{Name: name}); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "Cancelling custom job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("custom job %s cancelled: %w", name, ctx.Err())
}

// GCSStore implements [ObjectStore] on Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

var _ ObjectStore = (*GCSStore)(nil)

// NewGCSStore returns a [GCSStore] using client.
func NewGCSStore(client *storage.Client) *GCSStore {
	return &GCSStore{client: client}
}

// Upload implements [ObjectStore].
func (s *GCSStore) Upload(ctx context.Context, dir, uri string) error {
	bucket, prefix, err := parseGCSURI(uri)
	if err != nil {
		return err
	}
	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxTransfers)
	for _, p := range files {
		eg.Go(func() error {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			in, err := os.Open(p)
			if err != nil {
				return err
			}
			defer in.Close()

			name := path.Join(prefix, filepath.ToSlash(rel))
			w := s.client.Bucket(bucket).Object(name).NewWriter(egctx)
			if _, err := io.Copy(w, in); err != nil {
				w.Close()
				return fmt.Errorf("upload %s: %w", name, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Download implements [ObjectStore].
func (s *GCSStore) Download(ctx context.Context, uri, dir string) error {
	bucket, prefix, err := parseGCSURI(uri)
	if err != nil {
		return err
	}
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	handle := s.client.Bucket(bucket)

	var names []string
	it := handle.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return err
		}
		if !strings.HasSuffix(attrs.Name, "/") {
			names = append(names, attrs.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no objects below %s", uri)
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxTransfers)
	for _, name := range names {
		eg.Go(func() error {
			dst := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(name, prefix)))
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			r, err := handle.Object(name).NewReader(egctx)
			if err != nil {
				return fmt.Errorf("download %s: %w", name, err)
			}
			defer r.Close()

			out, err := os.Create(dst)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, r); err != nil {
				out.Close()
				return fmt.Errorf("download %s: %w", name, err)
			}
			return out.Close()
		})
	}
	return eg.Wait()
}

// parseGCSURI splits gs://bucket/prefix into its bucket and object prefix.
func parseGCSURI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("invalid Cloud Storage URI %q: want gs://bucket/prefix", uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid Cloud Storage URI %q: empty bucket", uri)
	}
	return bucket, strings.TrimSuffix(prefix, "/"), nil
}

// fuseMountPath returns the path a gs:// URI is mounted at inside a custom job.
func fuseMountPath(uri string) (string, error) {
	bucket, prefix, err := parseGCSURI(uri)
	if err != nil {
		return "", err
	}
	return path.Join(gcsFuseRoot, bucket, prefix), nil
}
