// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// GeneratorCapability is the capability every instantiable plugin type must declare.
const GeneratorCapability typecatalog.TypeID = "world.generator.WorldGenerator"

// DefaultNamespace is the URI namespace given to generators built by the viewer.
const DefaultNamespace = "unknown"

// URI identifies a generator instance. Its string form is the persistence key
// for the generator's layer configuration.
type URI struct {
	Namespace string
	ID        string
}

// String renders the URI as "namespace:id".
func (u URI) String() string {
	return u.Namespace + ":" + u.ID
}

// ParseURI parses the "namespace:id" form produced by URI.String.
func ParseURI(s string) (URI, error) {
	ns, id, ok := strings.Cut(s, ":")
	if !ok || ns == "" || id == "" {
		return URI{}, oops.Code("URI_INVALID").With("uri", s).Errorf("uri %q must have the form namespace:id", s)
	}
	return URI{Namespace: ns, ID: id}, nil
}

// Generator is a live world generator plugin.
//
// The viewer only consumes the generator's identity and the ordered facet
// types it produces; it never drives generation itself.
type Generator interface {
	// URI returns the generator's stable identifier.
	URI() URI

	// Facets returns the facet types the generator produces, in declaration order.
	Facets() []typecatalog.TypeID
}

// Constructor is the required constructor shape for generator plugin types.
type Constructor func(uri URI) (Generator, error)

// Constructor signature tags reported in descriptors.
const (
	tagFallible   = "func(plugin.URI) (plugin.Generator, error)"
	tagInfallible = "func(plugin.URI) plugin.Generator"
)

// asConstructor normalizes the supported constructor shapes.
// The second return value is the signature tag, empty when unsupported.
func asConstructor(fn any) (Constructor, string) {
	switch c := fn.(type) {
	case Constructor:
		if c == nil {
			return nil, ""
		}
		return c, tagFallible
	case func(URI) (Generator, error):
		if c == nil {
			return nil, ""
		}
		return c, tagFallible
	case func(URI) Generator:
		if c == nil {
			return nil, ""
		}
		return func(uri URI) (Generator, error) { return c(uri), nil }, tagInfallible
	default:
		return nil, ""
	}
}
