// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package session runs the viewer's startup and teardown sequence for one
// generator.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/layer"
	"github.com/holomush/worldviewer/internal/layerstore"
	"github.com/holomush/worldviewer/internal/plugin"
	"github.com/holomush/worldviewer/pkg/errutil"
)

// Options configures a session.
type Options struct {
	// Resolver computes default layers. Required.
	Resolver *layer.Resolver
	// Store persists layer settings. Nil disables persistence.
	Store layerstore.Store
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Recorder receives merge diagnostics.
	Recorder layer.Recorder
}

// Session owns the layer collection built for one generator.
type Session struct {
	id         ulid.ULID
	gen        plugin.Generator
	resolution layer.Resolution
	report     layer.MergeReport
	collection *layer.Collection
	store      layerstore.Store
	logger     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open resolves the generator's default layers, applies stored settings and
// publishes the resulting collection. Failing to load stored settings is
// logged and the defaults are used.
func Open(ctx context.Context, gen plugin.Generator, opts Options) (*Session, error) {
	if gen == nil {
		return nil, oops.Code("SESSION_INVALID").Errorf("generator is required")
	}
	if opts.Resolver == nil {
		return nil, oops.Code("SESSION_INVALID").Errorf("resolver is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := NewID()
	uri := gen.URI().String()
	logger = logger.With("session", id.String(), "generator", uri)

	res := opts.Resolver.ResolveDefaults(gen.Facets())

	var persisted []layer.Record
	if opts.Store != nil {
		recs, ok, err := opts.Store.Load(ctx, uri)
		switch {
		case err != nil:
			errutil.LogWarn(logger, "could not load layer settings, using defaults", err)
		case ok:
			persisted = recs
		}
	}

	merger := layer.NewMerger(layer.WithMergeLogger(logger), layer.WithMergeRecorder(opts.Recorder))
	merged, report := merger.Merge(uri, res.Layers(), persisted)

	s := &Session{
		id:         id,
		gen:        gen,
		resolution: res,
		report:     report,
		collection: layer.NewCollection(merged),
		store:      opts.Store,
		logger:     logger,
	}

	logger.Info("session opened",
		"layers", len(merged),
		"coverage_gaps", len(res.Gaps),
		"restored", len(report.Restored),
		"merge_abandoned", report.Abandoned)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() ulid.ULID {
	return s.id
}

// Generator returns the session's generator.
func (s *Session) Generator() plugin.Generator {
	return s.gen
}

// Layers returns the collection shared with the renderer and configuration surface.
func (s *Session) Layers() *layer.Collection {
	return s.collection
}

// Resolution returns the default layer resolution.
func (s *Session) Resolution() layer.Resolution {
	return s.resolution
}

// MergeReport returns the outcome of applying stored settings.
func (s *Session) MergeReport() layer.MergeReport {
	return s.report
}

// Close stores the current layer settings and closes the generator if it
// holds resources. Later calls return the first call's result.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.store != nil {
			records := layer.Snapshot(s.collection.Snapshot())
			if err := s.store.Save(ctx, s.gen.URI().String(), records); err != nil {
				errutil.LogError(s.logger, "could not store layer settings", err)
				errs = append(errs, fmt.Errorf("store layer settings: %w", err))
			}
		}
		if c, ok := s.gen.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close generator: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
		s.logger.Info("session closed")
	})
	return s.closeErr
}
