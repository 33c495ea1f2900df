// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"bytes"
	"sync"
)

// Pool is a typed [sync.Pool].
type Pool[T any] struct {
	pool sync.Pool
}

// New returns a [Pool] constructing new values with fn when it is empty.
func New[T any](fn func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return fn()
			},
		},
	}
}

// Get takes a value from the pool, constructing one if the pool is empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns x to the pool.
func (p *Pool[T]) Put(x T) {
	p.pool.Put(x)
}

// Buffer pools the [*bytes.Buffer] values dataset files are encoded into.
var Buffer = New(func() *bytes.Buffer {
	return new(bytes.Buffer)
})
