// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Descriptor identifies a discovered plugin type. Descriptors are immutable
// and only meaningful for the scan that produced them.
type Descriptor struct {
	TypeName    typecatalog.TypeID
	ID          string
	DisplayName string
	// ConstructorTag is the constructor signature, empty when the type has no
	// supported constructor. Such plugins still appear in discovery results.
	ConstructorTag string
}

// Constructible reports whether the descriptor carries a supported constructor.
func (d Descriptor) Constructible() bool {
	return d.ConstructorTag != ""
}

// Registry discovers plugin descriptors from a Scanner.
type Registry struct {
	scanner Scanner
	logger  *slog.Logger
}

// NewRegistry creates a registry over scanner. A nil logger uses slog.Default().
func NewRegistry(scanner Scanner, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{scanner: scanner, logger: logger}
}

// Discover returns a descriptor for every marked type matching filter,
// ordered by type name.
//
// A filter without glob metacharacters is a package prefix: "org.terasology"
// matches "org.terasology.Foo" and "org.terasology.core.Bar". Otherwise the
// filter is a glob with '.' as separator ('*' one segment, '**' any number).
// An empty filter matches everything.
//
// Constructor shape is not validated here; types marked for registration are
// reported even when they cannot be constructed.
func (r *Registry) Discover(ctx context.Context, filter string) ([]Descriptor, error) {
	match, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	entries, err := r.scanner.Scan(ctx)
	if err != nil {
		return nil, oops.Code("DISCOVERY_SCAN_FAILED").With("filter", filter).Wrap(err)
	}

	var out []Descriptor
	for _, e := range entries {
		if !match(string(e.Name)) || e.Marker == nil {
			continue
		}
		if strings.TrimSpace(e.Marker.ID) == "" {
			r.logger.Warn("skipping plugin with empty marker id", "type", e.Name)
			continue
		}
		_, tag := asConstructor(e.Constructor)
		out = append(out, Descriptor{
			TypeName:       e.Name,
			ID:             e.Marker.ID,
			DisplayName:    displayName(e),
			ConstructorTag: tag,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })

	r.logger.Debug("plugin discovery complete", "filter", filter, "scanned", len(entries), "found", len(out))
	return out, nil
}

// displayName returns the marker's display name, or the bare type name.
func displayName(e TypeEntry) string {
	if e.Marker != nil && strings.TrimSpace(e.Marker.DisplayName) != "" {
		return e.Marker.DisplayName
	}
	return e.Name.SimpleName()
}

func compileFilter(filter string) (func(string) bool, error) {
	if filter == "" {
		return func(string) bool { return true }, nil
	}
	if !strings.ContainsAny(filter, "*?[]{}!\\") {
		prefix := strings.TrimSuffix(filter, ".")
		return func(name string) bool {
			return name == prefix || strings.HasPrefix(name, prefix+".")
		}, nil
	}
	g, err := glob.Compile(filter, '.')
	if err != nil {
		return nil, oops.Code("DISCOVERY_FILTER_INVALID").With("filter", filter).Wrap(err)
	}
	return g.Match, nil
}
