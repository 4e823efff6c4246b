// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package layer binds facet types to renderer layers and reconciles them with
// persisted user settings.
package layer

import (
	"maps"
	"math"
	"sort"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// Kind identifies the renderer behind a layer, such as "field" or "flora".
type Kind string

// Settings is the user-adjustable state of a layer. A Settings value held by
// a Layer is never modified; updates publish a new value.
type Settings struct {
	Visible bool
	Params  map[string]float64
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := Settings{Visible: s.Visible}
	if s.Params != nil {
		out.Params = maps.Clone(s.Params)
	}
	return out
}

// Equal reports whether s and o hold the same visibility and parameters.
// A nil and an empty parameter map are equal.
func (s Settings) Equal(o Settings) bool {
	if s.Visible != o.Visible || len(s.Params) != len(o.Params) {
		return false
	}
	for k, v := range s.Params {
		ov, ok := o.Params[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// ParamNames returns the parameter names in sorted order.
func (s Settings) ParamNames() []string {
	names := make([]string, 0, len(s.Params))
	for k := range s.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Layer is one renderer attached to one facet type.
//
// Kind and facet never change. Settings are published atomically as a whole,
// so concurrent readers see either the old or the new value.
type Layer struct {
	kind     Kind
	facet    typecatalog.TypeID
	settings atomic.Pointer[Settings]
}

// New creates a layer with the given initial settings.
func New(kind Kind, facet typecatalog.TypeID, s Settings) *Layer {
	l := &Layer{kind: kind, facet: facet}
	c := s.Clone()
	l.settings.Store(&c)
	return l
}

// Kind returns the renderer kind.
func (l *Layer) Kind() Kind {
	return l.kind
}

// Facet returns the facet type the layer renders.
func (l *Layer) Facet() typecatalog.TypeID {
	return l.facet
}

// Key returns the stable identity used to align persisted settings.
func (l *Layer) Key() string {
	return Key(l.kind, l.facet)
}

// Key builds the "kind@facet" layer identity.
func Key(kind Kind, facet typecatalog.TypeID) string {
	return string(kind) + "@" + string(facet)
}

// Settings returns a copy of the current settings.
func (l *Layer) Settings() Settings {
	return l.settings.Load().Clone()
}

// Visible reports whether the layer is drawn.
func (l *Layer) Visible() bool {
	return l.settings.Load().Visible
}

// SetSettings replaces all settings at once.
func (l *Layer) SetSettings(s Settings) {
	c := s.Clone()
	l.settings.Store(&c)
}

// SetVisible toggles visibility, keeping the parameters.
func (l *Layer) SetVisible(visible bool) {
	l.update(func(s *Settings) { s.Visible = visible })
}

// SetParam sets a single renderer parameter. NaN and infinities are rejected
// because they cannot be persisted.
func (l *Layer) SetParam(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return oops.Code("LAYER_PARAM_INVALID").With("layer", l.Key()).With("param", name).
			Errorf("param %s must be finite, got %v", name, value)
	}
	l.update(func(s *Settings) {
		if s.Params == nil {
			s.Params = make(map[string]float64, 1)
		}
		s.Params[name] = value
	})
	return nil
}

func (l *Layer) update(fn func(*Settings)) {
	for {
		old := l.settings.Load()
		next := old.Clone()
		fn(&next)
		if l.settings.CompareAndSwap(old, &next) {
			return
		}
	}
}

// View is a read-only rendering of a layer for the renderer side.
type View struct {
	Key     string             `json:"key"`
	Kind    Kind               `json:"kind"`
	Facet   string             `json:"facet"`
	Visible bool               `json:"visible"`
	Params  map[string]float64 `json:"params,omitempty"`
}

// View captures the layer's current state.
func (l *Layer) View() View {
	s := l.Settings()
	return View{
		Key:     l.Key(),
		Kind:    l.kind,
		Facet:   string(l.facet),
		Visible: s.Visible,
		Params:  s.Params,
	}
}
