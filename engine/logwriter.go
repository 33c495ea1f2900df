// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// logWriter logs every complete line written to it.
type logWriter struct {
	ctx    context.Context
	logger *slog.Logger
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLogWriter(ctx context.Context, logger *slog.Logger, stream string) *logWriter {
	return &logWriter{ctx: ctx, logger: logger, stream: stream}
}

// Write implements [io.Writer].
func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// keep the partial line for the next write
			w.buf.Write(line)
			return len(p), nil
		}
		w.log(bytes.TrimRight(line, "\r\n"))
	}
}

// Flush logs a trailing partial line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.log(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *logWriter) log(line []byte) {
	if len(line) == 0 {
		return
	}
	w.logger.InfoContext(w.ctx, string(line), slog.String("stream", w.stream))
}
