// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package layer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Factory creates a layer for a facet type matched by a binding.
type Factory func(facet typecatalog.TypeID) (*Layer, error)

// Binding maps a facet capability to the renderer that can draw it.
type Binding struct {
	Capability typecatalog.TypeID
	Kind       Kind
	Factory    Factory
}

// Static returns a factory producing kind layers with a copy of defaults.
func Static(kind Kind, defaults Settings) Factory {
	return func(facet typecatalog.TypeID) (*Layer, error) {
		return New(kind, facet, defaults), nil
	}
}

// Subsumer answers capability queries. *typecatalog.Catalog implements it.
type Subsumer interface {
	Subsumes(capability, concrete typecatalog.TypeID) bool
}

// CoverageGap records a facet type that no binding can render.
type CoverageGap struct {
	Facet typecatalog.TypeID
}

func (g CoverageGap) String() string {
	return "no layers found for facet " + string(g.Facet)
}

// Resolution holds the default layers for a list of facet types.
type Resolution struct {
	facets  []typecatalog.TypeID
	byFacet map[typecatalog.TypeID][]*Layer
	// Gaps lists facet types with no matching binding, in declaration order.
	Gaps []CoverageGap
}

// Facets returns the resolved facet types in declaration order, without duplicates.
func (r Resolution) Facets() []typecatalog.TypeID {
	return append([]typecatalog.TypeID(nil), r.facets...)
}

// For returns the layers for facet in binding order. It is empty for gaps.
func (r Resolution) For(facet typecatalog.TypeID) []*Layer {
	return append([]*Layer(nil), r.byFacet[facet]...)
}

// Layers flattens the resolution in facet declaration order.
func (r Resolution) Layers() []*Layer {
	var out []*Layer
	for _, f := range r.facets {
		out = append(out, r.byFacet[f]...)
	}
	return out
}

// Resolver computes default layers from an ordered binding table.
// It is read-only after construction and may be shared between sessions.
type Resolver struct {
	catalog  Subsumer
	bindings []Binding
	logger   *slog.Logger
	recorder Recorder
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for coverage and factory diagnostics.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithResolverRecorder sets the metrics recorder.
func WithResolverRecorder(rec Recorder) ResolverOption {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewResolver creates a resolver. Bindings are matched in the given order,
// which is a priority list and not derived from type specificity.
func NewResolver(catalog Subsumer, bindings []Binding, opts ...ResolverOption) (*Resolver, error) {
	if catalog == nil {
		return nil, oops.Code("BINDING_INVALID").Errorf("catalog is required")
	}
	seenCap := make(map[typecatalog.TypeID]bool, len(bindings))
	seenKind := make(map[Kind]bool, len(bindings))
	for i, b := range bindings {
		if b.Capability == "" || b.Kind == "" || b.Factory == nil {
			return nil, oops.Code("BINDING_INVALID").With("index", i).With("kind", b.Kind).
				Errorf("binding %d needs a capability, a kind and a factory", i)
		}
		if seenCap[b.Capability] {
			return nil, oops.Code("BINDING_DUPLICATE").With("capability", b.Capability).
				Errorf("capability %s is bound twice", b.Capability)
		}
		// Layer keys are kind@facet, so one kind per binding keeps them unique.
		if seenKind[b.Kind] {
			return nil, oops.Code("BINDING_DUPLICATE").With("kind", b.Kind).
				Errorf("kind %s is bound twice", b.Kind)
		}
		seenCap[b.Capability] = true
		seenKind[b.Kind] = true
	}

	r := &Resolver{
		catalog:  catalog,
		bindings: append([]Binding(nil), bindings...),
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Bindings returns the binding table in priority order.
func (r *Resolver) Bindings() []Binding {
	return append([]Binding(nil), r.bindings...)
}

// ResolveDefaults returns, for each facet type, a layer from every binding
// whose capability subsumes it, in binding order. A facet type matching
// nothing is reported once as a coverage gap. Repeated facet types are
// resolved once.
func (r *Resolver) ResolveDefaults(facets []typecatalog.TypeID) Resolution {
	res := Resolution{byFacet: make(map[typecatalog.TypeID][]*Layer, len(facets))}

	total := 0
	for _, f := range facets {
		if _, done := res.byFacet[f]; done {
			continue
		}
		res.facets = append(res.facets, f)

		layers := []*Layer{}
		for _, b := range r.bindings {
			if !r.catalog.Subsumes(b.Capability, f) {
				continue
			}
			l, err := safeFactory(b.Factory, f)
			if err == nil && l.Kind() != b.Kind {
				err = fmt.Errorf("factory built a %s layer", l.Kind())
			}
			if err != nil {
				r.logger.Warn("layer factory failed",
					"facet", f,
					"capability", b.Capability,
					"kind", b.Kind,
					"error", err)
				continue
			}
			layers = append(layers, l)
		}
		res.byFacet[f] = layers
		total += len(layers)

		if len(layers) == 0 {
			gap := CoverageGap{Facet: f}
			res.Gaps = append(res.Gaps, gap)
			r.logger.Warn("no layers found for facet", "facet", f)
			r.recorder.RecordCoverageGap()
		}
	}

	r.recorder.RecordLayersResolved(total)
	return res
}

func safeFactory(fn Factory, facet typecatalog.TypeID) (l *Layer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			l = nil
			err = fmt.Errorf("factory panicked: %v", rec)
		}
	}()
	l, err = fn(facet)
	if err == nil && l == nil {
		err = errors.New("factory returned no layer")
	}
	return l, err
}
