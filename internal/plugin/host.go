// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
)

// Host turns manifests of a specific runtime into registrable plugin types.
type Host interface {
	// Load prepares a plugin from its manifest and returns its type entry.
	Load(ctx context.Context, manifest *Manifest, dir string) (TypeEntry, error)

	// Close releases everything the host holds.
	Close(ctx context.Context) error
}
