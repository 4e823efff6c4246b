// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Manager discovers manifest-described plugins on disk and registers them
// into a TypeTable.
type Manager struct {
	pluginsDir string
	table      *TypeTable
	luaHost    Host
	loaded     map[typecatalog.TypeID]*DiscoveredPlugin
	mu         sync.RWMutex
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLuaHost sets the Lua host for the manager.
func WithLuaHost(h Host) ManagerOption {
	return func(m *Manager) {
		m.luaHost = h
	}
}

// NewManager creates a plugin manager registering into table.
func NewManager(pluginsDir string, table *TypeTable, opts ...ManagerOption) *Manager {
	m := &Manager{
		pluginsDir: pluginsDir,
		table:      table,
		loaded:     make(map[typecatalog.TypeID]*DiscoveredPlugin),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DiscoveredPlugin contains a manifest and its directory.
type DiscoveredPlugin struct {
	Manifest *Manifest
	Dir      string
}

// Discover finds all valid manifests in the plugins directory.
// Invalid plugins are logged and skipped.
func (m *Manager) Discover(_ context.Context) ([]*DiscoveredPlugin, error) {
	if m.pluginsDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No plugins directory
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	var plugins []*DiscoveredPlugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(m.pluginsDir, entry.Name())
		manifestPath := filepath.Join(pluginDir, ManifestFile)

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			slog.Warn("skipping plugin without manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		if err := ValidateSchema(data); err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"dir", entry.Name(),
				"error", FormatSchemaError(err))
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		plugins = append(plugins, &DiscoveredPlugin{
			Manifest: manifest,
			Dir:      pluginDir,
		})
	}

	return plugins, nil
}

// LoadAll discovers all manifests and registers their types.
// Invalid plugins are logged and skipped.
//
// A broken plugin directory never prevents the remaining plugins from
// loading; callers that need strict loading can use Discover and Load.
func (m *Manager) LoadAll(ctx context.Context) error {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	for _, dp := range discovered {
		if err := m.Load(ctx, dp); err != nil {
			slog.Error("failed to load plugin",
				"plugin", dp.Manifest.TypeName,
				"error", err)
			continue
		}
	}

	return nil
}

// Load registers a single discovered plugin.
func (m *Manager) Load(ctx context.Context, dp *DiscoveredPlugin) error {
	var host Host
	switch dp.Manifest.Runtime {
	case RuntimeLua:
		host = m.luaHost
	default:
		return fmt.Errorf("load plugin %s: unknown runtime %q", dp.Manifest.TypeName, dp.Manifest.Runtime)
	}
	if host == nil {
		slog.Warn("no host configured for plugin runtime, skipping",
			"plugin", dp.Manifest.TypeName,
			"runtime", dp.Manifest.Runtime)
		return nil
	}

	entry, err := host.Load(ctx, dp.Manifest, dp.Dir)
	if err != nil {
		return fmt.Errorf("load plugin %s: %w", dp.Manifest.TypeName, err)
	}
	if err := m.table.Register(entry); err != nil {
		return fmt.Errorf("register plugin %s: %w", dp.Manifest.TypeName, err)
	}

	m.mu.Lock()
	m.loaded[entry.Name] = dp
	m.mu.Unlock()

	slog.Info("loaded plugin",
		"plugin", dp.Manifest.TypeName,
		"runtime", dp.Manifest.Runtime,
		"version", dp.Manifest.Version)

	return nil
}

// ListPlugins returns the type names of all loaded plugins.
func (m *Manager) ListPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, string(name))
	}

	// Sort for deterministic output
	sort.Strings(names)
	return names
}

// Close shuts down the manager and its hosts.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loaded = make(map[typecatalog.TypeID]*DiscoveredPlugin)

	if m.luaHost != nil {
		if err := m.luaHost.Close(ctx); err != nil {
			return fmt.Errorf("close lua host: %w", err)
		}
	}

	return nil
}
