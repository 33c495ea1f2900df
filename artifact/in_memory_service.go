// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/go-a2a/rewardtrainer/types"
)

// InMemoryService represents an in-memory implementation of the artifact service.
type InMemoryService struct {
	artifacts map[string][]*genai.Part
	private   map[string]bool
	mu        sync.Mutex
}

var _ types.ArtifactService = (*InMemoryService)(nil)

// NewInMemoryService creates a new instance of [InMemoryService].
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		artifacts: make(map[string][]*genai.Part),
		private:   make(map[string]bool),
	}
}

// artifactPath constructs the artifact path.
func (a *InMemoryService) artifactPath(repo, filename string) string {
	return repo + "/" + filename
}

// SaveArtifact implements [types.ArtifactService].
func (a *InMemoryService) SaveArtifact(ctx context.Context, repo, filename string, artifact *genai.Part) (int, error) {
	if artifact == nil {
		return 0, fmt.Errorf("save %s/%s: nil artifact", repo, filename)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.artifactPath(repo, filename)
	version := len(a.artifacts[path])
	a.artifacts[path] = append(a.artifacts[path], artifact)

	return version, nil
}

// LoadArtifact implements [types.ArtifactService].
func (a *InMemoryService) LoadArtifact(ctx context.Context, repo, filename string, version int) (*genai.Part, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.artifactPath(repo, filename)
	versions, ok := a.artifacts[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if version == types.LatestVersion {
		version = len(versions) - 1
	}
	if version < 0 || version >= len(versions) {
		return nil, fmt.Errorf("%w: %s version %d", ErrNotFound, path, version)
	}

	return versions[version], nil
}

// ListArtifactKeys implements [types.ArtifactService].
func (a *InMemoryService) ListArtifactKeys(ctx context.Context, repo string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prefix := repo + "/"
	filenames := []string{}
	for path := range a.artifacts {
		if filename, ok := strings.CutPrefix(path, prefix); ok {
			filenames = append(filenames, filename)
		}
	}
	slices.Sort(filenames)

	return filenames, nil
}

// DeleteArtifact implements [types.ArtifactService].
func (a *InMemoryService) DeleteArtifact(ctx context.Context, repo, filename string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.artifacts, a.artifactPath(repo, filename))

	return nil
}

// ListVersions implements [types.ArtifactService].
func (a *InMemoryService) ListVersions(ctx context.Context, repo, filename string) ([]int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	versions, ok := a.artifacts[a.artifactPath(repo, filename)]
	if !ok {
		return nil, nil
	}

	verList := make([]int, len(versions))
	for i := range versions {
		verList[i] = i
	}

	return verList, nil
}

// SetVisibility implements [types.ArtifactService].
func (a *InMemoryService) SetVisibility(ctx context.Context, repo string, private bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.private[repo] = private

	return nil
}

// Private reports whether repo was last marked private.
func (a *InMemoryService) Private(repo string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.private[repo]
}

// Close implements [types.ArtifactService].
func (a *InMemoryService) Close() error {
	// nothing to do
	return nil
}
