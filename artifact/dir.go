// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/go-a2a/rewardtrainer/pkg/logging"
	"github.com/go-a2a/rewardtrainer/types"
)

// maxTransfers bounds the concurrent file transfers of [SaveDir] and [LoadDir].
const maxTransfers = 8

const defaultMIMEType = "application/octet-stream"

// MIMEType returns the content type stored for filename.
func MIMEType(filename string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return defaultMIMEType
}

// SaveDir saves every regular file below dir as an artifact of repo, keyed
// by its slash separated path relative to dir.
func SaveDir(ctx context.Context, svc types.ArtifactService, repo, dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxTransfers)
	for _, path := range files {
		eg.Go(func() error {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			filename := filepath.ToSlash(rel)
			if _, err := svc.SaveArtifact(egctx, repo, filename, genai.NewPartFromBytes(data, MIMEType(filename))); err != nil {
				return fmt.Errorf("save %s: %w", filename, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	logging.FromContext(ctx).DebugContext(ctx, "directory saved",
		"repo", repo,
		"dir", dir,
		"files", len(files),
	)
	return nil
}

// LoadDir writes the latest version of every artifact of repo below dir.
func LoadDir(ctx context.Context, svc types.ArtifactService, repo, dir string) error {
	filenames, err := svc.ListArtifactKeys(ctx, repo)
	if err != nil {
		return fmt.Errorf("list %s: %w", repo, err)
	}
	if len(filenames) == 0 {
		return fmt.Errorf("%w: repository %s is empty", ErrNotFound, repo)
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxTransfers)
	for _, filename := range filenames {
		eg.Go(func() error {
			part, err := svc.LoadArtifact(egctx, repo, filename, types.LatestVersion)
			if err != nil {
				return fmt.Errorf("load %s: %w", filename, err)
			}
			if part.InlineData == nil {
				return fmt.Errorf("load %s: artifact has no inline data", filename)
			}
			path := filepath.Join(dir, filepath.FromSlash(filename))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			return os.WriteFile(path, part.InlineData.Data, 0o644)
		})
	}
	return eg.Wait()
}
