// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/worldviewer/internal/facet"
	"github.com/holomush/worldviewer/internal/layer"
	"github.com/holomush/worldviewer/internal/layer/renderers"
	"github.com/holomush/worldviewer/internal/layerstore"
	"github.com/holomush/worldviewer/internal/plugin"
	"github.com/holomush/worldviewer/internal/session"
	"github.com/holomush/worldviewer/internal/typecatalog"
)

type testGenerator struct {
	uri      plugin.URI
	facets   []typecatalog.TypeID
	closed   int
	closeErr error
}

func (g *testGenerator) URI() plugin.URI              { return g.uri }
func (g *testGenerator) Facets() []typecatalog.TypeID { return g.facets }

func (g *testGenerator) Close() error {
	g.closed++
	return g.closeErr
}

type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (s *failingStore) Load(context.Context, string) ([]layer.Record, bool, error) {
	return nil, false, s.loadErr
}

func (s *failingStore) Save(context.Context, string, []layer.Record) error {
	s.saves++
	return s.saveErr
}

func keysOf(c *layer.Collection) []string {
	var out []string
	for _, l := range c.Snapshot() {
		out = append(out, l.Key())
	}
	return out
}

var _ = Describe("Session", func() {
	var (
		ctx      context.Context
		resolver *layer.Resolver
		gen      *testGenerator
		logs     *bytes.Buffer
		logger   *slog.Logger
	)

	fieldKey := layer.Key(renderers.KindField, facet.SurfaceHeight)
	floraKey := layer.Key(renderers.KindFlora, facet.Flora)

	BeforeEach(func() {
		ctx = context.Background()
		logs = &bytes.Buffer{}
		logger = slog.New(slog.NewTextHandler(logs, nil))

		catalog := typecatalog.New()
		Expect(facet.Declare(catalog)).To(Succeed())

		var err error
		resolver, err = renderers.NewResolver(catalog, layer.WithResolverLogger(logger))
		Expect(err).NotTo(HaveOccurred())

		gen = &testGenerator{
			uri:    plugin.URI{Namespace: "core", ID: "perlin"},
			facets: []typecatalog.TypeID{facet.SeaLevel, facet.SurfaceHeight, facet.Flora},
		}
	})

	Describe("opening", func() {
		It("publishes the default layers when nothing is stored", func() {
			s, err := session.Open(ctx, gen, session.Options{
				Resolver: resolver,
				Store:    layerstore.NewMemoryStore(),
				Logger:   logger,
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(keysOf(s.Layers())).To(Equal([]string{fieldKey, floraKey}))
			Expect(s.Resolution().Gaps).To(ConsistOf(layer.CoverageGap{Facet: facet.SeaLevel}))
			Expect(s.MergeReport().Abandoned).To(BeFalse())
			Expect(s.ID().String()).NotTo(BeEmpty())
			Expect(logs.String()).To(ContainSubstring("session opened"))
		})

		It("applies stored settings", func() {
			store := layerstore.NewMemoryStore()
			Expect(store.Save(ctx, "core:perlin", []layer.Record{{
				Kind:     string(renderers.KindFlora),
				Facet:    string(facet.Flora),
				Settings: map[string]any{"visible": false},
			}})).To(Succeed())

			s, err := session.Open(ctx, gen, session.Options{Resolver: resolver, Store: store, Logger: logger})
			Expect(err).NotTo(HaveOccurred())

			Expect(keysOf(s.Layers())).To(Equal([]string{floraKey, fieldKey}))
			flora, ok := s.Layers().Get(floraKey)
			Expect(ok).To(BeTrue())
			Expect(flora.Visible()).To(BeFalse())
		})

		It("uses defaults when stored settings are malformed", func() {
			store := layerstore.NewMemoryStore()
			Expect(store.Save(ctx, "core:perlin", []layer.Record{{
				Kind:     string(renderers.KindFlora),
				Facet:    string(facet.Flora),
				Settings: map[string]any{"visible": "nope"},
			}})).To(Succeed())

			s, err := session.Open(ctx, gen, session.Options{Resolver: resolver, Store: store, Logger: logger})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.MergeReport().Abandoned).To(BeTrue())
			Expect(keysOf(s.Layers())).To(Equal([]string{fieldKey, floraKey}))
			Expect(logs.String()).To(ContainSubstring("using defaults"))
		})

		It("treats a failing load as no stored settings", func() {
			store := &failingStore{loadErr: errors.New("disk on fire")}

			s, err := session.Open(ctx, gen, session.Options{Resolver: resolver, Store: store, Logger: logger})
			Expect(err).NotTo(HaveOccurred())

			Expect(keysOf(s.Layers())).To(Equal([]string{fieldKey, floraKey}))
			Expect(logs.String()).To(ContainSubstring("disk on fire"))
		})

		It("rejects missing collaborators", func() {
			_, err := session.Open(ctx, nil, session.Options{Resolver: resolver})
			Expect(err).To(HaveOccurred())

			_, err = session.Open(ctx, gen, session.Options{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("closing", func() {
		It("stores the current settings and closes the generator once", func() {
			store := layerstore.NewMemoryStore()
			s, err := session.Open(ctx, gen, session.Options{Resolver: resolver, Store: store, Logger: logger})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Layers().SetVisible(fieldKey, false)).To(Succeed())
			Expect(s.Layers().Move(floraKey, 0)).To(Succeed())

			Expect(s.Close(ctx)).To(Succeed())
			Expect(s.Close(ctx)).To(Succeed())
			Expect(gen.closed).To(Equal(1))

			recs, ok, err := store.Load(ctx, "core:perlin")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].Key()).To(Equal(floraKey))
			Expect(recs[1].Settings).To(HaveKeyWithValue("visible", false))
		})

		It("restores the stored settings in the next session", func() {
			store := layerstore.NewMemoryStore()
			first, err := session.Open(ctx, gen, session.Options{Resolver: resolver, Store: store, Logger: logger})
			Expect(err).NotTo(HaveOccurred())
			field, _ := first.Layers().Get(fieldKey)
			Expect(field.SetParam(renderers.ParamScale, 12)).To(Succeed())
			Expect(first.Close(ctx)).To(Succeed())

			second, err := session.Open(ctx, gen, session.Options{Resolver: resolver, Store: store, Logger: logger})
			Expect(err).NotTo(HaveOccurred())
			restored, ok := second.Layers().Get(fieldKey)
			Expect(ok).To(BeTrue())
			Expect(restored.Settings().Params).To(HaveKeyWithValue(renderers.ParamScale, 12.0))
			Expect(second.ID()).NotTo(Equal(first.ID()))
		})

		It("reports store and generator failures together", func() {
			store := &failingStore{saveErr: errors.New("read-only")}
			gen.closeErr = errors.New("leaked handle")

			s, err := session.Open(ctx, gen, session.Options{Resolver: resolver, Store: store, Logger: logger})
			Expect(err).NotTo(HaveOccurred())

			err = s.Close(ctx)
			Expect(err).To(MatchError(ContainSubstring("read-only")))
			Expect(err).To(MatchError(ContainSubstring("leaked handle")))
			Expect(s.Close(ctx)).To(Equal(err))
			Expect(store.saves).To(Equal(1))
		})

		It("skips persistence without a store", func() {
			s, err := session.Open(ctx, gen, session.Options{Resolver: resolver, Logger: logger})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Close(ctx)).To(Succeed())
			Expect(gen.closed).To(Equal(1))
		})
	})
})
