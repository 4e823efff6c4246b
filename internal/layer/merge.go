// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package layer

import (
	"fmt"
	"log/slog"
)

// MergeReport describes the outcome of a merge.
type MergeReport struct {
	// Abandoned is set when the persisted records could not be interpreted
	// and the defaults were returned untouched.
	Abandoned bool
	// Err explains an abandoned merge.
	Err error
	// Restored holds the keys of layers that received persisted settings.
	Restored []string
	// Stale holds the keys of persisted records with no matching layer.
	Stale []string
	// Fresh holds the keys of layers with no persisted record.
	Fresh []string
}

// Merger overlays persisted records onto default layers.
type Merger struct {
	logger   *slog.Logger
	recorder Recorder
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithMergeLogger sets the logger for abandoned merges.
func WithMergeLogger(l *slog.Logger) MergerOption {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMergeRecorder sets the metrics recorder.
func WithMergeRecorder(rec Recorder) MergerOption {
	return func(m *Merger) {
		if rec != nil {
			m.recorder = rec
		}
	}
}

// NewMerger creates a merger.
func NewMerger(opts ...MergerOption) *Merger {
	m := &Merger{logger: slog.Default(), recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge applies persisted settings for generator id to defaults.
//
// A nil persisted slice returns defaults unchanged. Otherwise every record is
// interpreted before anything is applied; one bad record abandons the whole
// merge. Matched layers come first in persisted order, followed by layers
// without a record in default order. Records without a layer are dropped.
func (m *Merger) Merge(id string, defaults []*Layer, persisted []Record) ([]*Layer, MergeReport) {
	if persisted == nil {
		return defaults, MergeReport{}
	}

	settings, err := interpretAll(persisted)
	if err != nil {
		m.logger.Warn("could not apply stored layer settings, using defaults",
			"generator", id,
			"error", err)
		m.recorder.RecordMergeAbandoned()
		return defaults, MergeReport{Abandoned: true, Err: err}
	}

	byKey := make(map[string]*Layer, len(defaults))
	for _, l := range defaults {
		if _, dup := byKey[l.Key()]; !dup {
			byKey[l.Key()] = l
		}
	}

	var report MergeReport
	out := make([]*Layer, 0, len(defaults))
	used := make(map[*Layer]bool, len(defaults))
	for i, rec := range persisted {
		l, ok := byKey[rec.Key()]
		if !ok {
			report.Stale = append(report.Stale, rec.Key())
			continue
		}
		l.SetSettings(settings[i])
		used[l] = true
		out = append(out, l)
		report.Restored = append(report.Restored, rec.Key())
	}
	for _, l := range defaults {
		if used[l] {
			continue
		}
		out = append(out, l)
		report.Fresh = append(report.Fresh, l.Key())
	}

	if len(report.Stale) > 0 {
		m.logger.Debug("dropped stale layer settings", "generator", id, "layers", report.Stale)
	}
	return out, report
}

func interpretAll(records []Record) ([]Settings, error) {
	out := make([]Settings, len(records))
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		s, err := rec.interpret()
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, rec.Key(), err)
		}
		if prev, dup := seen[rec.Key()]; dup {
			return nil, fmt.Errorf("record %d duplicates record %d (%s)", i, prev, rec.Key())
		}
		seen[rec.Key()] = i
		out[i] = s
	}
	return out, nil
}

// Merge uses a default Merger.
func Merge(id string, defaults []*Layer, persisted []Record) ([]*Layer, MergeReport) {
	return NewMerger().Merge(id, defaults, persisted)
}

// Snapshot converts layers to persisted records, preserving order.
func Snapshot(layers []*Layer) []Record {
	out := make([]Record, 0, len(layers))
	for _, l := range layers {
		out = append(out, recordFor(l))
	}
	return out
}
