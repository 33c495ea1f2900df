// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging provides context-based structured logging utilities using Go's standard slog package.
//
// Loggers are stored in and retrieved from [context.Context] values so that a
// run identifier attached once follows every log line of a training run:
//
//	ctx = logging.NewContext(ctx, slog.New(slog.NewTextHandler(os.Stderr, nil)))
//	ctx = logging.With(ctx, "run_id", runID)
//
//	logger := logging.FromContext(ctx)
//	logger.InfoContext(ctx, "engine started", slog.String("engine", "docker"))
//
// When no logger is found in the context, [FromContext] returns a JSON logger
// writing to stderr at info level.
package logging
