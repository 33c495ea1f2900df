// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"

	"google.golang.org/genai"
)

// LatestVersion selects the most recent version in [ArtifactService.LoadArtifact].
const LatestVersion = -1

// ArtifactService represents a remote artifact registry that model and tokenizer
// files are published to.
//
// Artifacts are files identified by a repository path (e.g. "org/reward-model")
// and a filename inside it. Every save creates a new version.
type ArtifactService interface {
	// SaveArtifact saves an artifact to the artifact service storage.
	//
	// After saving the artifact, a revision ID is returned to identify the artifact version.
	SaveArtifact(ctx context.Context, repo, filename string, artifact *genai.Part) (int, error)

	// LoadArtifact gets an artifact from the artifact service storage.
	//
	// Passing [LatestVersion] loads the most recent version.
	LoadArtifact(ctx context.Context, repo, filename string, version int) (*genai.Part, error)

	// ListArtifactKeys lists all the artifact filenames within a repository.
	ListArtifactKeys(ctx context.Context, repo string) ([]string, error)

	// DeleteArtifact deletes every version of an artifact.
	DeleteArtifact(ctx context.Context, repo, filename string) error

	// ListVersions lists all versions of an artifact.
	ListVersions(ctx context.Context, repo, filename string) ([]int, error)

	// SetVisibility marks every artifact of repo as private or publicly readable.
	SetVisibility(ctx context.Context, repo string, private bool) error

	// Close closes the artifact service connection.
	Close() error
}
