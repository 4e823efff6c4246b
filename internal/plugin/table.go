// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Marker is the registration tag that makes a type a discoverable plugin.
type Marker struct {
	// ID is the short machine id; it becomes the URI id of instances.
	ID string
	// DisplayName is the human-readable name; empty means the bare type name.
	DisplayName string
}

// TypeEntry describes one type visible to plugin discovery.
//
// Marker and Constructor are optional: unmarked types are ignored by
// discovery, and types with an unsupported constructor are reported by
// discovery but fail at instantiation.
type TypeEntry struct {
	Name        typecatalog.TypeID
	Implements  []typecatalog.TypeID
	Marker      *Marker
	Constructor any
}

// Scanner enumerates the types visible to plugin discovery.
type Scanner interface {
	Scan(ctx context.Context) ([]TypeEntry, error)
}

// TypeResolver resolves qualified type names for instantiation.
type TypeResolver interface {
	Lookup(name typecatalog.TypeID) (TypeEntry, bool)
	Subsumes(capability, concrete typecatalog.TypeID) bool
}

// Compile-time interface checks.
var (
	_ Scanner      = (*TypeTable)(nil)
	_ TypeResolver = (*TypeTable)(nil)
)

// TypeTable is a runtime type registry. Builtin generators register into it
// at start-up, and the manifest loader adds scripted generator types.
//
// TypeTable is safe for concurrent use.
type TypeTable struct {
	catalog *typecatalog.Catalog
	entries map[typecatalog.TypeID]TypeEntry
	mu      sync.RWMutex
}

// NewTypeTable creates a table whose type hierarchy is recorded in catalog.
// A nil catalog gets a fresh private one.
func NewTypeTable(catalog *typecatalog.Catalog) *TypeTable {
	if catalog == nil {
		catalog = typecatalog.New()
	}
	return &TypeTable{
		catalog: catalog,
		entries: make(map[typecatalog.TypeID]TypeEntry),
	}
}

// Register adds a type. Registering the same name twice is an error.
func (t *TypeTable) Register(entry TypeEntry) error {
	if entry.Name == "" {
		return oops.Code("PLUGIN_TYPE_INVALID").Errorf("type name cannot be empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[entry.Name]; exists {
		return oops.Code("PLUGIN_TYPE_DUPLICATE").With("type", entry.Name).Errorf("type %s already registered", entry.Name)
	}
	if err := t.catalog.Declare(entry.Name, entry.Implements...); err != nil {
		return oops.With("type", entry.Name).Wrap(err)
	}

	entry.Implements = append([]typecatalog.TypeID(nil), entry.Implements...)
	if entry.Marker != nil {
		m := *entry.Marker
		entry.Marker = &m
	}
	t.entries[entry.Name] = entry
	return nil
}

// MustRegister is Register for compile-time tables; it panics on error.
func (t *TypeTable) MustRegister(entry TypeEntry) {
	if err := t.Register(entry); err != nil {
		panic(err)
	}
}

// Scan returns every registered type ordered by name.
func (t *TypeTable) Scan(_ context.Context) ([]TypeEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]TypeEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Lookup returns the entry registered under name.
func (t *TypeTable) Lookup(name typecatalog.TypeID) (TypeEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[name]
	return e, ok
}

// Subsumes delegates to the table's catalog.
func (t *TypeTable) Subsumes(capability, concrete typecatalog.TypeID) bool {
	return t.catalog.Subsumes(capability, concrete)
}

// Catalog returns the catalog holding the registered type hierarchy.
func (t *TypeTable) Catalog() *typecatalog.Catalog {
	return t.catalog
}
