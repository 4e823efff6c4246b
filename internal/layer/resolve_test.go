// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package layer_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/holomush/worldviewer/internal/layer"
	"github.com/holomush/worldviewer/internal/typecatalog"
	"github.com/holomush/worldviewer/pkg/errutil"
)

// mockRecorder is a mock for layer.Recorder.
type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordCoverageGap() {
	m.Called()
}

func (m *mockRecorder) RecordLayersResolved(n int) {
	m.Called(n)
}

func (m *mockRecorder) RecordMergeAbandoned() {
	m.Called()
}

func bind(capability typecatalog.TypeID, kind layer.Kind) layer.Binding {
	return layer.Binding{Capability: capability, Kind: kind, Factory: layer.Static(kind, layer.Settings{Visible: true})}
}

func kinds(layers []*layer.Layer) []layer.Kind {
	out := make([]layer.Kind, 0, len(layers))
	for _, l := range layers {
		out = append(out, l.Kind())
	}
	return out
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func biomeCatalog() *typecatalog.Catalog {
	c := typecatalog.New()
	c.MustDeclare("ScalarField")
	c.MustDeclare("BiomeKind")
	c.MustDeclare("WhittakerBiome", "ScalarField", "BiomeKind")
	c.MustDeclare("Height", "ScalarField")
	c.MustDeclare("Unrendered")
	return c
}

func TestResolveDefaults_MultipleMatchesInRegistryOrder(t *testing.T) {
	r, err := layer.NewResolver(biomeCatalog(), []layer.Binding{
		bind("ScalarField", "scalar"),
		bind("BiomeKind", "biome"),
	})
	require.NoError(t, err)

	res := r.ResolveDefaults([]typecatalog.TypeID{"WhittakerBiome"})

	assert.Equal(t, []layer.Kind{"scalar", "biome"}, kinds(res.For("WhittakerBiome")))
	assert.Empty(t, res.Gaps)
	for _, l := range res.For("WhittakerBiome") {
		assert.Equal(t, typecatalog.TypeID("WhittakerBiome"), l.Facet())
	}
}

func TestResolveDefaults_OrderIsPriorityNotSpecificity(t *testing.T) {
	r, err := layer.NewResolver(biomeCatalog(), []layer.Binding{
		bind("BiomeKind", "biome"),
		bind("ScalarField", "scalar"),
	})
	require.NoError(t, err)

	res := r.ResolveDefaults([]typecatalog.TypeID{"WhittakerBiome"})
	assert.Equal(t, []layer.Kind{"biome", "scalar"}, kinds(res.For("WhittakerBiome")))
}

func TestResolveDefaults_CoverageGap(t *testing.T) {
	var buf bytes.Buffer
	rec := new(mockRecorder)
	rec.On("RecordCoverageGap").Once()
	rec.On("RecordLayersResolved", 1).Once()

	r, err := layer.NewResolver(biomeCatalog(), []layer.Binding{bind("ScalarField", "scalar")},
		layer.WithResolverLogger(newLogger(&buf)),
		layer.WithResolverRecorder(rec))
	require.NoError(t, err)

	res := r.ResolveDefaults([]typecatalog.TypeID{"Unrendered", "Height", "Unrendered"})

	assert.Empty(t, res.For("Unrendered"))
	assert.Equal(t, []layer.CoverageGap{{Facet: "Unrendered"}}, res.Gaps)
	assert.Equal(t, 1, strings.Count(buf.String(), "no layers found for facet"))
	assert.Equal(t, []typecatalog.TypeID{"Unrendered", "Height"}, res.Facets())
	assert.Equal(t, []layer.Kind{"scalar"}, kinds(res.Layers()))
	rec.AssertExpectations(t)
}

func TestResolveDefaults_FailingFactoryIsIsolated(t *testing.T) {
	var buf bytes.Buffer
	broken := layer.Binding{
		Capability: "ScalarField",
		Kind:       "broken",
		Factory: func(typecatalog.TypeID) (*layer.Layer, error) {
			return nil, errors.New("palette missing")
		},
	}
	panicky := layer.Binding{
		Capability: "BiomeKind",
		Kind:       "panicky",
		Factory: func(typecatalog.TypeID) (*layer.Layer, error) {
			panic("boom")
		},
	}
	mislabeled := layer.Binding{
		Capability: "WhittakerBiome",
		Kind:       "whittaker",
		Factory:    layer.Static("other", layer.Settings{}),
	}

	c := biomeCatalog()
	c.MustDeclare("Tagged")
	r, err := layer.NewResolver(c, []layer.Binding{broken, panicky, mislabeled, bind("Tagged", "tagged")},
		layer.WithResolverLogger(newLogger(&buf)))
	require.NoError(t, err)

	res := r.ResolveDefaults([]typecatalog.TypeID{"WhittakerBiome", "Tagged"})

	assert.Empty(t, res.For("WhittakerBiome"))
	assert.Equal(t, []layer.Kind{"tagged"}, kinds(res.For("Tagged")))
	assert.Contains(t, buf.String(), "palette missing")
	assert.Contains(t, buf.String(), "factory panicked: boom")
	assert.Contains(t, buf.String(), "factory built a other layer")
	assert.Len(t, res.Gaps, 1)
}

func TestNewResolver_Invalid(t *testing.T) {
	static := layer.Static("x", layer.Settings{})

	tests := []struct {
		name     string
		catalog  layer.Subsumer
		bindings []layer.Binding
		wantCode string
	}{
		{"nil catalog", nil, nil, "BINDING_INVALID"},
		{"empty capability", typecatalog.New(), []layer.Binding{{Kind: "x", Factory: static}}, "BINDING_INVALID"},
		{"empty kind", typecatalog.New(), []layer.Binding{{Capability: "A", Factory: static}}, "BINDING_INVALID"},
		{"nil factory", typecatalog.New(), []layer.Binding{{Capability: "A", Kind: "x"}}, "BINDING_INVALID"},
		{"duplicate capability", typecatalog.New(), []layer.Binding{bind("A", "a"), bind("A", "b")}, "BINDING_DUPLICATE"},
		{"duplicate kind", typecatalog.New(), []layer.Binding{bind("A", "a"), bind("B", "a")}, "BINDING_DUPLICATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := layer.NewResolver(tt.catalog, tt.bindings)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

// A facet matched by k bindings gets exactly k layers, in binding order, and
// resolving again yields the same sequence.
func TestResolveDefaults_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nCaps := rapid.IntRange(0, 8).Draw(t, "caps")
		caps := make([]typecatalog.TypeID, nCaps)
		c := typecatalog.New()
		for i := range caps {
			caps[i] = typecatalog.TypeID(fmt.Sprintf("cap.C%d", i))
			c.MustDeclare(caps[i])
		}

		order := rapid.Permutation(caps).Draw(t, "order")
		bindings := make([]layer.Binding, 0, len(order))
		for i, cp := range order {
			bindings = append(bindings, bind(cp, layer.Kind(fmt.Sprintf("k%d", i))))
		}

		var supers []typecatalog.TypeID
		for _, cp := range caps {
			if rapid.Bool().Draw(t, "has "+string(cp)) {
				supers = append(supers, cp)
			}
		}
		c.MustDeclare("facet.F", supers...)

		r, err := layer.NewResolver(c, bindings, layer.WithResolverLogger(slog.New(slog.DiscardHandler)))
		if err != nil {
			t.Fatalf("NewResolver: %v", err)
		}

		var want []layer.Kind
		for _, b := range bindings {
			if c.Subsumes(b.Capability, "facet.F") {
				want = append(want, b.Kind)
			}
		}

		first := r.ResolveDefaults([]typecatalog.TypeID{"facet.F"})
		second := r.ResolveDefaults([]typecatalog.TypeID{"facet.F"})

		got := kinds(first.For("facet.F"))
		if len(got) != len(want) {
			t.Fatalf("got %d layers, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("layer %d: got %s, want %s", i, got[i], want[i])
			}
		}
		again := kinds(second.For("facet.F"))
		for i := range got {
			if got[i] != again[i] {
				t.Fatalf("resolution not deterministic at %d: %s vs %s", i, got[i], again[i])
			}
		}
		if (len(want) == 0) != (len(first.Gaps) == 1) {
			t.Fatalf("gap reporting mismatch: %d layers, %d gaps", len(want), len(first.Gaps))
		}
	})
}
