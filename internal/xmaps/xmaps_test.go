// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package xmaps_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/rewardtrainer/internal/xmaps"
)

func TestContains(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]int
		key  string
		want bool
	}{
		{
			name: "key exists",
			m:    map[string]int{"train": 1, "validation": 2, "test": 3},
			key:  "validation",
			want: true,
		},
		{
			name: "key does not exist",
			m:    map[string]int{"train": 1, "test": 3},
			key:  "validation",
			want: false,
		},
		{
			name: "empty map",
			m:    map[string]int{},
			key:  "train",
			want: false,
		},
		{
			name: "case sensitivity",
			m:    map[string]int{"Train": 1},
			key:  "train",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := xmaps.Contains(tt.m, tt.key)
			if got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortedKeys(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]int
		want []string
	}{
		{
			name: "folds",
			m:    map[string]int{"validation": 2, "train": 1, "test": 3},
			want: []string{"test", "train", "validation"},
		},
		{
			name: "empty",
			m:    map[string]int{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := xmaps.SortedKeys(tt.m)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SortedKeys() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMissing(t *testing.T) {
	m := map[string]int{"train": 1}
	got := xmaps.Missing(m, "train", "validation", "test")
	want := []string{"validation", "test"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Missing() mismatch (-want +got):\n%s", diff)
	}
	if got := xmaps.Missing(m, "train"); got != nil {
		t.Errorf("Missing() = %v, want nil", got)
	}
}

var benchBool bool

func BenchmarkContains(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("map size %d", size), func(b *testing.B) {
			m := make(map[int]string, size)
			for i := range size {
				m[i] = "value"
			}
			for b.Loop() {
				benchBool = xmaps.Contains(m, size/2)
			}
		})
	}
}
