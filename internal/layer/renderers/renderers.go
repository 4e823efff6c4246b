// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package renderers holds the default facet-to-renderer binding table.
package renderers

import (
	"github.com/holomush/worldviewer/internal/facet"
	"github.com/holomush/worldviewer/internal/layer"
)

// Renderer kinds.
const (
	KindField          layer.Kind = "field"
	KindWhittakerBiome layer.Kind = "whittaker-biome"
	KindCoreBiome      layer.Kind = "core-biome"
	KindMoisture       layer.Kind = "moisture"
	KindRivers         layer.Kind = "rivers"
	KindGraph          layer.Kind = "voronoi-graph"
	KindFlora          layer.Kind = "flora"
	KindTrees          layer.Kind = "trees"
)

// Field layer parameters.
const (
	ParamOffset = "offset"
	ParamScale  = "scale"
)

// Default returns the binding table in priority order. Scalar fields come
// first, so a facet that is both a field and a biome shows the field layer
// underneath.
func Default() []layer.Binding {
	visible := layer.Settings{Visible: true}
	return []layer.Binding{
		{
			Capability: facet.FieldFacet2D,
			Kind:       KindField,
			Factory: layer.Static(KindField, layer.Settings{
				Visible: true,
				Params:  map[string]float64{ParamOffset: 0, ParamScale: 5},
			}),
		},
		{Capability: facet.WhittakerBiome, Kind: KindWhittakerBiome, Factory: layer.Static(KindWhittakerBiome, visible)},
		{Capability: facet.Biome, Kind: KindCoreBiome, Factory: layer.Static(KindCoreBiome, visible)},
		{Capability: facet.MoistureModel, Kind: KindMoisture, Factory: layer.Static(KindMoisture, visible)},
		{Capability: facet.RiverModel, Kind: KindRivers, Factory: layer.Static(KindRivers, visible)},
		{Capability: facet.Graph, Kind: KindGraph, Factory: layer.Static(KindGraph, visible)},
		{Capability: facet.Flora, Kind: KindFlora, Factory: layer.Static(KindFlora, visible)},
		{Capability: facet.Tree, Kind: KindTrees, Factory: layer.Static(KindTrees, visible)},
	}
}

// NewResolver builds a resolver over the default table.
func NewResolver(catalog layer.Subsumer, opts ...layer.ResolverOption) (*layer.Resolver, error) {
	return layer.NewResolver(catalog, Default(), opts...)
}
