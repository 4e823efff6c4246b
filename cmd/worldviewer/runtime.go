// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holomush/worldviewer/internal/config"
	"github.com/holomush/worldviewer/internal/layer"
	"github.com/holomush/worldviewer/internal/layer/renderers"
	"github.com/holomush/worldviewer/internal/layerstore"
	"github.com/holomush/worldviewer/internal/plugin"
	pluginlua "github.com/holomush/worldviewer/internal/plugin/lua"
	"github.com/holomush/worldviewer/internal/typecatalog"
	"github.com/holomush/worldviewer/internal/worldgen"
)

// recorder receives every diagnostic counter the runtime emits.
type recorder interface {
	plugin.FailureRecorder
	layer.Recorder
}

// runtime wires the plugin registry, instantiator, layer resolver and
// store for one command invocation.
type runtime struct {
	cfg          *config.Config
	logger       *slog.Logger
	table        *plugin.TypeTable
	manager      *plugin.Manager
	registry     *plugin.Registry
	instantiator *plugin.Instantiator
	resolver     *layer.Resolver
	store        *layerstore.FileStore
	recorder     layer.Recorder
}

// newRuntime registers the builtin generators, loads scripted generators
// from the plugins directory and builds the layer resolver. rec may be nil.
func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, rec recorder) (*runtime, error) {
	table := plugin.NewTypeTable(typecatalog.New())
	if err := worldgen.Register(table); err != nil {
		return nil, fmt.Errorf("failed to register builtin generators: %w", err)
	}

	manager := plugin.NewManager(cfg.Plugins.Dir, table, plugin.WithLuaHost(pluginlua.NewHost()))
	if err := manager.LoadAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to load generator plugins: %w", err)
	}

	instOpts := []plugin.InstantiatorOption{
		plugin.WithNamespace(cfg.Plugins.Namespace),
		plugin.WithLogger(logger),
	}
	resOpts := []layer.ResolverOption{layer.WithResolverLogger(logger)}
	var layerRec layer.Recorder
	if rec != nil {
		instOpts = append(instOpts, plugin.WithFailureRecorder(rec))
		resOpts = append(resOpts, layer.WithResolverRecorder(rec))
		layerRec = rec
	}

	resolver, err := renderers.NewResolver(table.Catalog(), resOpts...)
	if err != nil {
		_ = manager.Close(ctx)
		return nil, fmt.Errorf("failed to build layer resolver: %w", err)
	}

	return &runtime{
		cfg:          cfg,
		logger:       logger,
		table:        table,
		manager:      manager,
		registry:     plugin.NewRegistry(table, logger),
		instantiator: plugin.NewInstantiator(table, instOpts...),
		resolver:     resolver,
		store:        layerstore.NewFileStore(cfg.Store.Path, layerstore.WithStoreLogger(logger)),
		recorder:     layerRec,
	}, nil
}

// discover lists plugin descriptors matching the configured filter.
func (r *runtime) discover(ctx context.Context) ([]plugin.Descriptor, error) {
	descriptors, err := r.registry.Discover(ctx, r.cfg.Plugins.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to discover generators: %w", err)
	}
	return descriptors, nil
}

// instantiate builds the generator named by arg, which may be a qualified
// type name or a marker id.
func (r *runtime) instantiate(ctx context.Context, arg string) (plugin.Generator, error) {
	name := typecatalog.TypeID(arg)

	descriptors, err := r.registry.Discover(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to discover generators: %w", err)
	}
	exact := false
	var byID []typecatalog.TypeID
	for _, d := range descriptors {
		if d.TypeName == name {
			exact = true
			break
		}
		if d.ID == arg {
			byID = append(byID, d.TypeName)
		}
	}
	if !exact && len(byID) > 1 {
		return nil, fmt.Errorf("generator id %q is ambiguous: %v", arg, byID)
	}
	if !exact && len(byID) == 1 {
		name = byID[0]
	}

	gen, err := r.instantiator.Instantiate(name)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate generator: %w", err)
	}
	return gen, nil
}

func (r *runtime) close(ctx context.Context) error {
	if err := r.manager.Close(ctx); err != nil {
		return fmt.Errorf("failed to close plugin hosts: %w", err)
	}
	return nil
}
