// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package hub resolves checkpoint and tokenizer names to local directories,
// downloading them from an artifact registry when needed.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-a2a/rewardtrainer/artifact"
	"github.com/go-a2a/rewardtrainer/pkg/logging"
	"github.com/go-a2a/rewardtrainer/types"
)

// completeMarker is written once a download finished.
const completeMarker = ".complete"

// ErrNotFound reports a name that is neither a local directory nor a repository of the registry.
var ErrNotFound = errors.New("not found locally or on the hub")

// DefaultCacheDir returns the directory downloaded repositories are kept in.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "rewardtrainer", "hub")
	}
	return filepath.Join(os.TempDir(), "rewardtrainer", "hub")
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Resolve returns a local directory holding the files of name.
//
// An existing directory is returned as is. Otherwise the latest version of
// every artifact of the repository name is downloaded from svc below
// cacheDir, unless a complete download is already there.
func Resolve(ctx context.Context, name string, svc types.ArtifactService, cacheDir string) (string, error) {
	if IsDir(name) {
		return name, nil
	}
	if svc == nil {
		return "", fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}

	dst := filepath.Join(cacheDir, filepath.FromSlash(name))
	if _, err := os.Stat(filepath.Join(dst, completeMarker)); err == nil {
		return dst, nil
	}

	logging.FromContext(ctx).InfoContext(ctx, "downloading from hub",
		"repo", name,
		"dir", dst,
	)
	if err := os.RemoveAll(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := artifact.LoadDir(ctx, svc, name, dst); err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return "", fmt.Errorf("%q: %w: %w", name, ErrNotFound, err)
		}
		return "", fmt.Errorf("download %q: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dst, completeMarker), nil, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// Publish uploads every file below dir to repo and sets its visibility.
func Publish(ctx context.Context, svc types.ArtifactService, repo, dir string, private bool) error {
	if err := artifact.SaveDir(ctx, svc, repo, dir); err != nil {
		return err
	}
	return svc.SetVisibility(ctx, repo, private)
}
