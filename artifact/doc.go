// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifact provides the registries trained reward models and tokenizers are published to.
//
// Every backend implements [types.ArtifactService]. Artifacts are files keyed
// by a repository path and a filename inside it:
//
//	{repo}/{filename}/{version}
//
// Each save creates a new version numbered from 0. A repository is either
// private or publicly readable, see [types.ArtifactService.SetVisibility].
//
// # Backends
//
//   - [InMemoryService]: process local storage for tests and dry runs
//   - [LocalService]: a directory tree on the local file system
//   - [GCSService]: a Google Cloud Storage bucket
//
// # Publishing directories
//
// [SaveDir] uploads every file below a directory concurrently and [LoadDir]
// downloads the latest version of every file of a repository:
//
//	svc, err := artifact.NewGCSService(ctx, "my-bucket")
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	if err := artifact.SaveDir(ctx, svc, "org/reward-model", "out/"); err != nil {
//		return err
//	}
//
// All services are safe for concurrent use.
package artifact
