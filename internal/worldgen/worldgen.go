// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package worldgen provides the generators compiled into the viewer.
package worldgen

import (
	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/facet"
	"github.com/holomush/worldviewer/internal/plugin"
	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Builtin generator type names.
const (
	PerlinType    typecatalog.TypeID = "worldgen.core.PerlinGenerator"
	FlatType      typecatalog.TypeID = "worldgen.core.FlatGenerator"
	PolyWorldType typecatalog.TypeID = "worldgen.polyworld.PolyWorldGenerator"
)

// Generator is a builtin generator with a fixed facet list.
type Generator struct {
	uri    plugin.URI
	facets []typecatalog.TypeID
}

// URI returns the generator's identifier.
func (g *Generator) URI() plugin.URI {
	return g.uri
}

// Facets returns a copy of the produced facet types.
func (g *Generator) Facets() []typecatalog.TypeID {
	return append([]typecatalog.TypeID(nil), g.facets...)
}

type builtin struct {
	name    typecatalog.TypeID
	id      string
	display string
	facets  []typecatalog.TypeID
}

var builtins = []builtin{
	{
		name:    PerlinType,
		id:      "perlin",
		display: "Perlin",
		facets: []typecatalog.TypeID{
			facet.SeaLevel,
			facet.SurfaceHeight,
			facet.SurfaceTemperature,
			facet.SurfaceHumidity,
			facet.Biome,
			facet.Flora,
			facet.Tree,
		},
	},
	{
		name:    FlatType,
		id:      "flat",
		display: "Flat",
		facets:  []typecatalog.TypeID{facet.SeaLevel, facet.SurfaceHeight},
	},
	{
		name:    PolyWorldType,
		id:      "polyworld",
		display: "Poly World",
		facets: []typecatalog.TypeID{
			facet.Graph,
			facet.ElevationModel,
			facet.SurfaceHeight,
			facet.WhittakerBiome,
			facet.MoistureModel,
			facet.RiverModel,
		},
	},
}

// Register declares the facet hierarchy in the table's catalog and registers
// every builtin generator.
func Register(table *plugin.TypeTable) error {
	if err := facet.Declare(table.Catalog()); err != nil {
		return oops.Code("WORLDGEN_REGISTER_FAILED").Wrap(err)
	}
	for _, b := range builtins {
		facets := b.facets
		err := table.Register(plugin.TypeEntry{
			Name:       b.name,
			Implements: []typecatalog.TypeID{plugin.GeneratorCapability},
			Marker:     &plugin.Marker{ID: b.id, DisplayName: b.display},
			Constructor: func(uri plugin.URI) plugin.Generator {
				return &Generator{uri: uri, facets: facets}
			},
		})
		if err != nil {
			return oops.Code("WORLDGEN_REGISTER_FAILED").With("type", b.name).Wrap(err)
		}
	}
	return nil
}
