// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import "errors"

// ErrNotFound reports a load of an artifact or version that does not exist.
var ErrNotFound = errors.New("artifact not found")
