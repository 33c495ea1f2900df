// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/go-json-experiment/json"
	"google.golang.org/genai"

	"github.com/go-a2a/rewardtrainer/types"
)

// visibilityFile records the visibility of a repository inside its directory.
const visibilityFile = ".visibility.json"

var versionFileRe = regexp.MustCompile(`^v(\d+)\.json$`)

// localBlob is the on-disk envelope of one artifact version.
type localBlob struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data,format:base64"`
}

type localVisibility struct {
	Private bool `json:"private"`
}

// LocalService stores artifacts below a root directory as
// {root}/{repo}/{filename}/v{version}.json.
type LocalService struct {
	root string
	mu   sync.Mutex
}

var _ types.ArtifactService = (*LocalService)(nil)

// NewLocalService returns a [LocalService] rooted at root, creating it if needed.
func NewLocalService(root string) (*LocalService, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &LocalService{root: root}, nil
}

func (a *LocalService) dir(repo, filename string) string {
	return filepath.Join(a.root, filepath.FromSlash(repo), filepath.FromSlash(filename))
}

func (a *LocalService) versions(repo, filename string) ([]int, error) {
	entries, err := os.ReadDir(a.dir(repo, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var versions []int
	for _, e := range entries {
		m := versionFileRe.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}

// SaveArtifact implements [types.ArtifactService].
func (a *LocalService) SaveArtifact(ctx context.Context, repo, filename string, artifact *genai.Part) (int, error) {
	if artifact == nil || artifact.InlineData == nil {
		return 0, fmt.Errorf("save %s/%s: artifact has no inline data", repo, filename)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	versions, err := a.versions(repo, filename)
	if err != nil {
		return 0, err
	}
	version := 0
	if len(versions) > 0 {
		version = slices.Max(versions) + 1
	}

	dir := a.dir(repo, filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	data, err := json.Marshal(&localBlob{
		MIMEType: artifact.InlineData.MIMEType,
		Data:     artifact.InlineData.Data,
	}, json.DefaultOptionsV2())
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("v%d.json", version)), data, 0o644); err != nil {
		return 0, err
	}

	return version, nil
}

// LoadArtifact implements [types.ArtifactService].
func (a *LocalService) LoadArtifact(ctx context.Context, repo, filename string, version int) (*genai.Part, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if version == types.LatestVersion {
		versions, err := a.versions(repo, filename)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, repo, filename)
		}
		version = slices.Max(versions)
	}

	data, err := os.ReadFile(filepath.Join(a.dir(repo, filename), fmt.Sprintf("v%d.json", version)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s version %d", ErrNotFound, repo, filename, version)
		}
		return nil, err
	}
	var blob localBlob
	if err := json.Unmarshal(data, &blob, json.DefaultOptionsV2()); err != nil {
		return nil, fmt.Errorf("decode %s/%s version %d: %w", repo, filename, version, err)
	}

	return genai.NewPartFromBytes(blob.Data, blob.MIMEType), nil
}

// ListArtifactKeys implements [types.ArtifactService].
func (a *LocalService) ListArtifactKeys(ctx context.Context, repo string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	base := filepath.Join(a.root, filepath.FromSlash(repo))
	seen := make(map[string]struct{})
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == base {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !versionFileRe.MatchString(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(base, filepath.Dir(path))
		if err != nil {
			return err
		}
		seen[filepath.ToSlash(rel)] = struct{}{}
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
func (a *LocalService) DeleteArtifact(ctx context.Context, repo, filename string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	versions, err := a.versions(repo, filename)
	if err != nil {
		return err
	}
	dir := a.dir(repo, filename)
	for _, v := range versions {
		if err := os.Remove(filepath.Join(dir, fmt.Sprintf("v%d.json", v))); err != nil {
			return err
		}
	}

	return nil
}

// ListVersions implements [types.ArtifactService].
func (a *LocalService) ListVersions(ctx context.Context, repo, filename string) ([]int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.versions(repo, filename)
}

// SetVisibility implements [types.ArtifactService].
func (a *LocalService) SetVisibility(ctx context.Context, repo string, private bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dir := filepath.Join(a.root, filepath.FromSlash(repo))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(&localVisibility{Private: private}, json.DefaultOptionsV2())
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, visibilityFile), data, 0o644)
}

// Private reports whether repo is marked private.
func (a *LocalService) Private(repo string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(repo), visibilityFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	var v localVisibility
	if err := json.Unmarshal(data, &v, json.DefaultOptionsV2()); err != nil {
		return false, err
	}

	return v.Private, nil
}

// Close implements [types.ArtifactService].
func (a *LocalService) Close() error {
	return nil
}
