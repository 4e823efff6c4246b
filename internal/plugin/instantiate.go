// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// FailureRecorder counts instantiation failures by kind.
type FailureRecorder interface {
	RecordInstantiationFailure(kind string)
}

// Instantiator builds live generators from registered plugin types.
type Instantiator struct {
	resolver  TypeResolver
	namespace string
	logger    *slog.Logger
	recorder  FailureRecorder
}

// InstantiatorOption configures the Instantiator.
type InstantiatorOption func(*Instantiator)

// WithNamespace sets the URI namespace passed to constructors.
func WithNamespace(ns string) InstantiatorOption {
	return func(i *Instantiator) {
		if ns != "" {
			i.namespace = ns
		}
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *slog.Logger) InstantiatorOption {
	return func(i *Instantiator) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithFailureRecorder sets a metrics sink for failures.
func WithFailureRecorder(r FailureRecorder) InstantiatorOption {
	return func(i *Instantiator) {
		i.recorder = r
	}
}

// NewInstantiator creates an instantiator resolving types through resolver.
func NewInstantiator(resolver TypeResolver, opts ...InstantiatorOption) *Instantiator {
	i := &Instantiator{
		resolver:  resolver,
		namespace: DefaultNamespace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Instantiate constructs the plugin registered under name.
//
// Every failure is returned as an *InstantiationError; no generator is
// returned alongside an error.
func (i *Instantiator) Instantiate(name typecatalog.TypeID) (Generator, error) {
	entry, ok := i.resolver.Lookup(name)
	if !ok {
		return nil, i.fail(KindTypeNotFound, name, nil)
	}
	if !i.resolver.Subsumes(GeneratorCapability, name) {
		return nil, i.fail(KindWrongCapability, name, nil)
	}
	if entry.Marker == nil || strings.TrimSpace(entry.Marker.ID) == "" {
		return nil, i.fail(KindMissingMarker, name, nil)
	}
	construct, _ := asConstructor(entry.Constructor)
	if construct == nil {
		var err error
		if entry.Constructor != nil {
			err = fmt.Errorf("unsupported constructor type %T", entry.Constructor)
		}
		return nil, i.fail(KindNoMatchingConstructor, name, err)
	}

	uri := URI{Namespace: i.namespace, ID: entry.Marker.ID}
	gen, err := safeConstruct(construct, uri)
	if err != nil {
		return nil, i.fail(KindConstructionFailed, name, err)
	}
	if gen == nil {
		return nil, i.fail(KindConstructionFailed, name, errors.New("constructor returned no generator"))
	}

	i.logger.Info("instantiated plugin", "plugin", name, "uri", gen.URI().String())
	return gen, nil
}

// InstantiateAll instantiates every descriptor. Failures are logged and
// collected; the remaining plugins are still instantiated.
func (i *Instantiator) InstantiateAll(_ context.Context, descriptors []Descriptor) ([]Generator, []error) {
	var (
		gens []Generator
		errs []error
	)
	for _, d := range descriptors {
		gen, err := i.Instantiate(d.TypeName)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		gens = append(gens, gen)
	}
	return gens, errs
}

func (i *Instantiator) fail(kind ErrorKind, name typecatalog.TypeID, cause error) error {
	err := oops.Code(string(kind)).
		With("plugin", string(name)).
		Wrap(&InstantiationError{Kind: kind, TypeName: name, Err: cause})

	// An unknown type name is routine (stale config, typo); the other kinds mean a broken plugin.
	level := slog.LevelWarn
	if kind == KindTypeNotFound {
		level = slog.LevelInfo
	}
	i.logger.Log(context.Background(), level, "plugin unavailable",
		"plugin", name,
		"kind", string(kind),
		"error", err)

	if i.recorder != nil {
		i.recorder.RecordInstantiationFailure(string(kind))
	}
	return err
}

func safeConstruct(construct Constructor, uri URI) (gen Generator, err error) {
	defer func() {
		if r := recover(); r != nil {
			gen = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	return construct(uri)
}
