// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/genai"

	"github.com/go-a2a/rewardtrainer/types"
)

// maxACLUpdates bounds the concurrent ACL requests of [GCSService.SetVisibility].
const maxACLUpdates = 16

// GCSService represents an artifact service implementation using Google Cloud Storage (GCS).
type GCSService struct {
	client *storage.Client
	bucket *storage.BucketHandle
	logger *slog.Logger
}

var _ types.ArtifactService = (*GCSService)(nil)

// GCSOption configures a [GCSService].
type GCSOption func(*GCSService)

// WithStorageClient uses client instead of a client built from the default credentials.
func WithStorageClient(client *storage.Client) GCSOption {
	return func(s *GCSService) {
		s.client = client
	}
}

// WithGCSLogger sets the logger for the service.
func WithGCSLogger(logger *slog.Logger) GCSOption {
	return func(s *GCSService) {
		s.logger = logger
	}
}

// NewGCSService creates a new [GCSService] instance with the given bucket name.
func NewGCSService(ctx context.Context, bucketName string, opts ...GCSOption) (*GCSService, error) {
	s := &GCSService{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes: []string{
				storage.ScopeFullControl,
				storage.ScopeReadWrite,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("get credentials for storage: %w", err)
		}

		client, err := storage.NewGRPCClient(ctx, option.WithAuthCredentials(creds))
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		s.client = client
	}
	s.bucket = s.client.Bucket(bucketName)

	return s, nil
}

// getBlobName constructs the blob name in GCS.
func (a *GCSService) getBlobName(repo, filename string, version int) string {
	return fmt.Sprintf("%s/%s/%d", repo, filename, version)
}

// SaveArtifact implements [types.ArtifactService].
func (a *GCSService) SaveArtifact(ctx context.Context, repo, filename string, artifact *genai.Part) (int, error) {
	if artifact == nil || artifact.InlineData == nil {
		return 0, fmt.Errorf("save %s/%s: artifact has no inline data", repo, filename)
	}

	versions, err := a.ListVersions(ctx, repo, filename)
	if err != nil {
		return 0, err
	}
	version := 0
	if len(versions) > 0 {
		version = slices.Max(versions) + 1
	}

	blobName := a.getBlobName(repo, filename, version)
	w := a.bucket.Object(blobName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = artifact.InlineData.MIMEType
	if _, err := w.Write(artifact.InlineData.Data); err != nil {
		w.Close()
		return 0, fmt.Errorf("write %s: %w", blobName, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("write %s: %w", blobName, err)
	}

	a.logger.DebugContext(ctx, "artifact saved",
		slog.String("blob", blobName),
		slog.Int("size", len(artifact.InlineData.Data)),
	)

	return version, nil
}

// LoadArtifact implements [types.ArtifactService].
func (a *GCSService) LoadArtifact(ctx context.Context, repo, filename string, version int) (*genai.Part, error) {
	if version == types.LatestVersion {
		versions, err := a.ListVersions(ctx, repo, filename)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, repo, filename)
		}
		version = slices.Max(versions)
	}

	blobName := a.getBlobName(repo, filename, version)
	r, err := a.bucket.Object(blobName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, blobName)
		}
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return genai.NewPartFromBytes(data, r.Attrs.ContentType), nil
}

// ListArtifactKeys implements [types.ArtifactService].
func (a *GCSService) ListArtifactKeys(ctx context.Context, repo string) ([]string, error) {
	prefix := repo + "/"
	seen := make(map[string]struct{})
	err := a.eachObject(ctx, prefix, func(attrs *storage.ObjectAttrs) error {
		rest := strings.TrimPrefix(attrs.Name, prefix)
		idx := strings.LastIndex(rest, "/")
		if idx <= 0 {
			return nil
		}
		if _, err := strconv.Atoi(rest[idx+1:]); err != nil {
			return nil
		}
		seen[rest[:idx]] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	filenames := make([]string, 0, len(seen))
	for filename := range seen {
		filenames = append(filenames, filename)
	}
	slices.Sort(filenames)

	return filenames, nil
}

// DeleteArtifact implements [types.ArtifactService].
func (a *GCSService) DeleteArtifact(ctx context.Context, repo, filename string) error {
	versions, err := a.ListVersions(ctx, repo, filename)
	if err != nil {
		return err
	}

	for _, version := range versions {
		blobName := a.getBlobName(repo, filename, version)
		if err := a.bucket.Object(blobName).Delete(ctx); err != nil {
			return fmt.Errorf("delete %s: %w", blobName, err)
		}
	}

	return nil
}

// ListVersions implements [types.ArtifactService].
func (a *GCSService) ListVersions(ctx context.Context, repo, filename string) ([]int, error) {
	prefix := repo + "/" + filename + "/"
	var versions []int
	err := a.eachObject(ctx, prefix, func(attrs *storage.ObjectAttrs) error {
		rest := strings.TrimPrefix(attrs.Name, prefix)
		if strings.Contains(rest, "/") {
			return nil
		}
		version, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("blob %s: bad version: %w", attrs.Name, err)
		}
		versions = append(versions, version)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(versions)

	return versions, nil
}

// SetVisibility implements [types.ArtifactService].
//
// Public repositories grant [storage.AllUsers] the reader role on every
// object. The bucket must use fine-grained access control.
func (a *GCSService) SetVisibility(ctx context.Context, repo string, private bool) error {
	var names []string
	err := a.eachObject(ctx, repo+"/", func(attrs *storage.ObjectAttrs) error {
		names = append(names, attrs.Name)
		return nil
	})
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxACLUpdates)
	for _, name := range names {
		eg.Go(func() error {
			acl := a.bucket.Object(name).ACL()
			if private {
				if err := acl.Delete(egctx, storage.AllUsers); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
					return fmt.Errorf("revoke public read on %s: %w", name, err)
				}
				return nil
			}
			if err := acl.Set(egctx, storage.AllUsers, storage.RoleReader); err != nil {
				return fmt.Errorf("grant public read on %s: %w", name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "repository visibility updated",
		slog.String("repo", repo),
		slog.Bool("private", private),
		slog.Int("objects", len(names)),
	)

	return nil
}

func (a *GCSService) eachObject(ctx context.Context, prefix string, fn func(*storage.ObjectAttrs) error) error {
	it := a.bucket.Objects(ctx, &storage.Query{
		Prefix: prefix,
	})
	for {
		objAttrs, err := it.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		}
		if err := fn(objAttrs); err != nil {
			return err
		}
	}
}

// Close implements [types.ArtifactService].
func (a *GCSService) Close() error {
	return a.client.Close()
}
