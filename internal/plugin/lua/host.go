// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	plugins "github.com/holomush/worldviewer/internal/plugin"
	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Compile-time interface check.
var _ plugins.Host = (*Host)(nil)

// facetsFunc is the global function a generator script must define.
const facetsFunc = "facets"

// defaultRunTimeout bounds a single script evaluation.
const defaultRunTimeout = 2 * time.Second

// script holds the source of a loaded generator script.
type script struct {
	manifest *plugins.Manifest
	code     string
}

// Host loads Lua generator scripts and builds generators from them.
type Host struct {
	factory *StateFactory
	scripts map[string]*script
	timeout time.Duration
	mu      sync.RWMutex
	closed  bool
}

// NewHost creates a new Lua generator host.
func NewHost() *Host {
	return &Host{
		factory: NewStateFactory(),
		scripts: make(map[string]*script),
		timeout: defaultRunTimeout,
	}
}

// Load reads and syntax-checks a generator script, returning a type entry
// whose constructor evaluates the script.
func (h *Host) Load(ctx context.Context, manifest *plugins.Manifest, dir string) (plugins.TypeEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	errb := oops.In("lua").With("plugin", manifest.TypeName).With("operation", "load")

	if h.closed {
		return plugins.TypeEntry{}, errb.New("host is closed")
	}

	entryPath := filepath.Join(dir, manifest.LuaPlugin.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return plugins.TypeEntry{}, errb.With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	// Validate syntax by compiling in a throwaway state
	L, err := h.factory.NewState(ctx)
	if err != nil {
		return plugins.TypeEntry{}, errb.Hint("failed to create validation state").Wrap(err)
	}
	defer L.Close()

	if _, err := L.LoadString(string(code)); err != nil {
		return plugins.TypeEntry{}, errb.With("entry", manifest.LuaPlugin.Entry).Hint("syntax error").Wrap(err)
	}

	name := manifest.TypeName
	h.scripts[name] = &script{manifest: manifest, code: string(code)}

	return manifest.TypeEntry(func(uri plugins.URI) (plugins.Generator, error) {
		return h.newGenerator(name, uri)
	}), nil
}

// Scripts returns the type names of loaded scripts.
func (h *Host) Scripts() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.scripts))
	for name := range h.scripts {
		names = append(names, name)
	}
	return names
}

// Close shuts down the host. Generators already built stay valid.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.scripts = make(map[string]*script)
	return nil
}

// newGenerator evaluates the script in a fresh sandbox and reads its facets.
func (h *Host) newGenerator(name string, uri plugins.URI) (plugins.Generator, error) {
	h.mu.RLock()
	s, ok := h.scripts[name]
	closed := h.closed
	h.mu.RUnlock()

	errb := oops.In("lua").With("plugin", name).With("operation", "construct")
	if closed || !ok {
		return nil, errb.New("script not loaded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	L, err := h.factory.NewState(ctx)
	if err != nil {
		return nil, errb.Hint("failed to create state").Wrap(err)
	}
	defer L.Close()
	L.SetContext(ctx)

	if err := L.DoString(s.code); err != nil {
		return nil, errb.Hint("failed to load code").Wrap(err)
	}

	fn := L.GetGlobal(facetsFunc)
	if fn.Type() != lua.LTFunction {
		return nil, errb.Errorf("script does not define %s()", facetsFunc)
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(uri.String())); err != nil {
		return nil, errb.Wrap(err)
	}

	ret := L.Get(-1)
	L.Pop(1)

	facets, err := parseFacets(ret)
	if err != nil {
		return nil, errb.Wrap(err)
	}

	return &Generator{uri: uri, facets: facets}, nil
}

// parseFacets reads a Lua array of facet type names.
func parseFacets(v lua.LValue) ([]typecatalog.TypeID, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, oops.Errorf("%s() must return a table, got %s", facetsFunc, v.Type())
	}

	n := tbl.Len()
	out := make([]typecatalog.TypeID, 0, n)
	for i := 1; i <= n; i++ {
		item := tbl.RawGetInt(i)
		str, ok := item.(lua.LString)
		if !ok || str == "" {
			return nil, oops.Errorf("%s()[%d] must be a non-empty string, got %s", facetsFunc, i, item.Type())
		}
		out = append(out, typecatalog.TypeID(str))
	}
	return out, nil
}

// Generator is a generator whose facets were declared by a Lua script.
type Generator struct {
	uri    plugins.URI
	facets []typecatalog.TypeID
}

// URI implements plugins.Generator.
func (g *Generator) URI() plugins.URI {
	return g.uri
}

// Facets implements plugins.Generator.
func (g *Generator) Facets() []typecatalog.TypeID {
	return append([]typecatalog.TypeID(nil), g.facets...)
}
