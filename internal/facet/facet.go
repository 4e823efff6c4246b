// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package facet names the well-known facet types and declares their
// capability hierarchy.
package facet

import (
	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Root and base capabilities.
const (
	WorldFacet          typecatalog.TypeID = "world.generation.WorldFacet"
	FieldFacet2D        typecatalog.TypeID = "world.generation.facets.base.FieldFacet2D"
	ObjectFacet2D       typecatalog.TypeID = "world.generation.facets.base.ObjectFacet2D"
	SparseObjectFacet3D typecatalog.TypeID = "world.generation.facets.base.SparseObjectFacet3D"
)

// Surface facets produced by most generators.
const (
	SeaLevel           typecatalog.TypeID = "world.generation.facets.SeaLevelFacet"
	SurfaceHeight      typecatalog.TypeID = "world.generation.facets.SurfaceHeightFacet"
	SurfaceTemperature typecatalog.TypeID = "world.generation.facets.SurfaceTemperatureFacet"
	SurfaceHumidity    typecatalog.TypeID = "world.generation.facets.SurfaceHumidityFacet"
)

// Core gameplay facets.
const (
	Biome typecatalog.TypeID = "core.world.generator.facets.BiomeFacet"
	Flora typecatalog.TypeID = "core.world.generator.facets.FloraFacet"
	Tree  typecatalog.TypeID = "core.world.generator.facets.TreeFacet"
)

// Polygon world facets.
const (
	Graph          typecatalog.TypeID = "polyworld.voronoi.GraphFacet"
	ElevationModel typecatalog.TypeID = "polyworld.elevation.ElevationModelFacet"
	WhittakerBiome typecatalog.TypeID = "polyworld.biome.WhittakerBiomeFacet"
	MoistureModel  typecatalog.TypeID = "polyworld.moisture.MoistureModelFacet"
	RiverModel     typecatalog.TypeID = "polyworld.rivers.RiverModelFacet"
)

// hierarchy maps each facet type to its direct supertypes.
var hierarchy = []struct {
	id     typecatalog.TypeID
	supers []typecatalog.TypeID
}{
	{WorldFacet, nil},
	{FieldFacet2D, []typecatalog.TypeID{WorldFacet}},
	{ObjectFacet2D, []typecatalog.TypeID{WorldFacet}},
	{SparseObjectFacet3D, []typecatalog.TypeID{WorldFacet}},

	{SeaLevel, []typecatalog.TypeID{WorldFacet}},
	{SurfaceHeight, []typecatalog.TypeID{FieldFacet2D}},
	{SurfaceTemperature, []typecatalog.TypeID{FieldFacet2D}},
	{SurfaceHumidity, []typecatalog.TypeID{FieldFacet2D}},

	{Biome, []typecatalog.TypeID{ObjectFacet2D}},
	{Flora, []typecatalog.TypeID{SparseObjectFacet3D}},
	{Tree, []typecatalog.TypeID{SparseObjectFacet3D}},

	{Graph, []typecatalog.TypeID{WorldFacet}},
	{ElevationModel, []typecatalog.TypeID{WorldFacet}},
	{WhittakerBiome, []typecatalog.TypeID{WorldFacet}},
	{MoistureModel, []typecatalog.TypeID{WorldFacet}},
	{RiverModel, []typecatalog.TypeID{WorldFacet}},
}

// Declare records the facet hierarchy in c. It is safe to call more than once.
func Declare(c *typecatalog.Catalog) error {
	for _, h := range hierarchy {
		if err := c.Declare(h.id, h.supers...); err != nil {
			return err
		}
	}
	return nil
}

// Known returns every well-known facet type in declaration order.
func Known() []typecatalog.TypeID {
	out := make([]typecatalog.TypeID, 0, len(hierarchy))
	for _, h := range hierarchy {
		out = append(out, h.id)
	}
	return out
}
