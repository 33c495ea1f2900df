// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides strongly-typed object pooling on top of [sync.Pool].
//
//	buf := pool.Buffer.Get()
//	defer func() {
//		buf.Reset()
//		pool.Buffer.Put(buf)
//	}()
//
// Callers reset objects before putting them back.
package pool
