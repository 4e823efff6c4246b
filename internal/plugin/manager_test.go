// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/worldviewer/internal/plugin"
	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Helper functions for creating test fixtures with secure permissions.
func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func writePlugin(t *testing.T, root, dir, manifest string) string {
	t.Helper()
	pluginDir := filepath.Join(root, dir)
	mkdirAll(t, pluginDir)
	writeFile(t, filepath.Join(pluginDir, plugin.ManifestFile), []byte(manifest))
	writeFile(t, filepath.Join(pluginDir, "main.lua"), []byte("function facets(uri) return {} end"))
	return pluginDir
}

// mockHost is a mock for plugin.Host.
type mockHost struct {
	mock.Mock
}

func (m *mockHost) Load(ctx context.Context, manifest *plugin.Manifest, dir string) (plugin.TypeEntry, error) {
	args := m.Called(ctx, manifest, dir)
	return args.Get(0).(plugin.TypeEntry), args.Error(1)
}

func (m *mockHost) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	islandDir := writePlugin(t, root, "island", islandManifestYAML)

	mgr := plugin.NewManager(root, plugin.NewTypeTable(nil))
	discovered, err := mgr.Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, discovered, 1)
	assert.Equal(t, "scripts.island.IslandGenerator", discovered[0].Manifest.TypeName)
	assert.Equal(t, islandDir, discovered[0].Dir)
}

func TestManager_Discover_Skips(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "island", islandManifestYAML)
	writePlugin(t, root, "broken", "type-name: [")
	writePlugin(t, root, "no-version", "type-name: a.B\nruntime: lua\nlua-plugin:\n  entry: main.lua\n")
	mkdirAll(t, filepath.Join(root, "empty"))
	writeFile(t, filepath.Join(root, "README.md"), []byte("not a plugin"))

	discovered, err := plugin.NewManager(root, plugin.NewTypeTable(nil)).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, discovered, 1)
	assert.Equal(t, "scripts.island.IslandGenerator", discovered[0].Manifest.TypeName)
}

func TestManager_Discover_SkipsManifestFailingSchema(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "island", islandManifestYAML)
	writePlugin(t, root, "typo", "type-name: scripts.Typo\nversion: 1.0.0\nruntime: lua\nlua-plugn:\n  entry: main.lua\nlua-plugin:\n  entry: main.lua\n")
	writePlugin(t, root, "wrong-type", "type-name: scripts.Wrong\nversion: 1.0.0\nruntime: lua\nimplements: world.generator.WorldGenerator\nlua-plugin:\n  entry: main.lua\n")

	discovered, err := plugin.NewManager(root, plugin.NewTypeTable(nil)).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, discovered, 1)
	assert.Equal(t, "scripts.island.IslandGenerator", discovered[0].Manifest.TypeName)
}

func TestManager_Discover_MissingOrUnsetDirectory(t *testing.T) {
	tests := []struct {
		name string
		dir  string
	}{
		{"unset", ""},
		{"nonexistent", filepath.Join(t.TempDir(), "nope")},
		{"empty", t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discovered, err := plugin.NewManager(tt.dir, plugin.NewTypeTable(nil)).Discover(context.Background())
			require.NoError(t, err)
			assert.Empty(t, discovered)
		})
	}
}

func TestManager_LoadAll_RegistersTypes(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "island", islandManifestYAML)

	table := plugin.NewTypeTable(nil)
	host := new(mockHost)
	host.On("Load", mock.Anything, mock.AnythingOfType("*plugin.Manifest"), filepath.Join(root, "island")).
		Return(plugin.TypeEntry{
			Name:        "scripts.island.IslandGenerator",
			Implements:  []typecatalog.TypeID{plugin.GeneratorCapability},
			Marker:      &plugin.Marker{ID: "island"},
			Constructor: stubConstructor(),
		}, nil)

	mgr := plugin.NewManager(root, table, plugin.WithLuaHost(host))
	require.NoError(t, mgr.LoadAll(context.Background()))

	assert.Equal(t, []string{"scripts.island.IslandGenerator"}, mgr.ListPlugins())
	_, ok := table.Lookup("scripts.island.IslandGenerator")
	assert.True(t, ok)
	host.AssertExpectations(t)
}

func TestManager_LoadAll_ContinuesAfterHostFailure(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "a-bad", "type-name: scripts.Bad\nversion: 1.0.0\nruntime: lua\nlua-plugin:\n  entry: main.lua\n")
	writePlugin(t, root, "b-good", "type-name: scripts.Good\nversion: 1.0.0\nruntime: lua\nlua-plugin:\n  entry: main.lua\n")

	host := new(mockHost)
	host.On("Load", mock.Anything, mock.Anything, filepath.Join(root, "a-bad")).
		Return(plugin.TypeEntry{}, errors.New("syntax error"))
	host.On("Load", mock.Anything, mock.Anything, filepath.Join(root, "b-good")).
		Return(plugin.TypeEntry{Name: "scripts.Good"}, nil)

	mgr := plugin.NewManager(root, plugin.NewTypeTable(nil), plugin.WithLuaHost(host))
	require.NoError(t, mgr.LoadAll(context.Background()))
	assert.Equal(t, []string{"scripts.Good"}, mgr.ListPlugins())
}

func TestManager_Load_DuplicateTypeFails(t *testing.T) {
	table := plugin.NewTypeTable(nil)
	table.MustRegister(plugin.TypeEntry{Name: "scripts.Taken"})

	host := new(mockHost)
	host.On("Load", mock.Anything, mock.Anything, "dir").Return(plugin.TypeEntry{Name: "scripts.Taken"}, nil)

	manifest := &plugin.Manifest{TypeName: "scripts.Taken", Version: "1.0.0", Runtime: plugin.RuntimeLua}
	err := plugin.NewManager("", table, plugin.WithLuaHost(host)).
		Load(context.Background(), &plugin.DiscoveredPlugin{Manifest: manifest, Dir: "dir"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestManager_Load_WithoutHostSkips(t *testing.T) {
	manifest := &plugin.Manifest{TypeName: "scripts.Skipped", Version: "1.0.0", Runtime: plugin.RuntimeLua}
	mgr := plugin.NewManager("", plugin.NewTypeTable(nil))

	require.NoError(t, mgr.Load(context.Background(), &plugin.DiscoveredPlugin{Manifest: manifest}))
	assert.Empty(t, mgr.ListPlugins())
}

func TestManager_Load_UnknownRuntime(t *testing.T) {
	manifest := &plugin.Manifest{TypeName: "scripts.Wasm", Version: "1.0.0", Runtime: "wasm"}
	err := plugin.NewManager("", plugin.NewTypeTable(nil)).
		Load(context.Background(), &plugin.DiscoveredPlugin{Manifest: manifest})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown runtime")
}

func TestManager_Close(t *testing.T) {
	t.Run("without host", func(t *testing.T) {
		assert.NoError(t, plugin.NewManager("", plugin.NewTypeTable(nil)).Close(context.Background()))
	})

	t.Run("closes host and forgets plugins", func(t *testing.T) {
		host := new(mockHost)
		host.On("Load", mock.Anything, mock.Anything, "dir").Return(plugin.TypeEntry{Name: "scripts.Gen"}, nil)
		host.On("Close", mock.Anything).Return(nil)

		mgr := plugin.NewManager("", plugin.NewTypeTable(nil), plugin.WithLuaHost(host))
		manifest := &plugin.Manifest{TypeName: "scripts.Gen", Version: "1.0.0", Runtime: plugin.RuntimeLua}
		require.NoError(t, mgr.Load(context.Background(), &plugin.DiscoveredPlugin{Manifest: manifest, Dir: "dir"}))
		require.NotEmpty(t, mgr.ListPlugins())

		require.NoError(t, mgr.Close(context.Background()))
		assert.Empty(t, mgr.ListPlugins())
		host.AssertExpectations(t)
	})

	t.Run("propagates host error", func(t *testing.T) {
		host := new(mockHost)
		host.On("Close", mock.Anything).Return(errors.New("close failed"))

		err := plugin.NewManager("", plugin.NewTypeTable(nil), plugin.WithLuaHost(host)).Close(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "close failed")
	})
}
