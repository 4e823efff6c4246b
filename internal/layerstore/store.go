// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package layerstore persists layer settings per generator.
package layerstore

import (
	"context"
	"maps"
	"sync"

	"github.com/holomush/worldviewer/internal/layer"
)

// Store loads and saves layer records keyed by generator URI.
type Store interface {
	// Load returns the records stored for id. The bool is false when nothing
	// has been stored for id.
	Load(ctx context.Context, id string) ([]layer.Record, bool, error)
	// Save replaces the records stored for id.
	Save(ctx context.Context, id string, records []layer.Record) error
}

// Compile-time interface checks.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]layer.Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]layer.Record)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, id string) ([]layer.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	return cloneRecords(recs), true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, id string, records []layer.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = cloneRecords(records)
	return nil
}

// IDs returns the generator ids with stored records.
func (s *MemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.records)
}

func cloneRecords(in []layer.Record) []layer.Record {
	out := make([]layer.Record, len(in))
	for i, r := range in {
		r.Settings = maps.Clone(r.Settings)
		out[i] = r
	}
	return out
}
