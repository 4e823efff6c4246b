// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package typecatalog answers "is-a" questions about declared types without
// runtime type inspection.
//
// Types are identified by dotted names (e.g. "polyworld.biome.WhittakerBiomeFacet").
// Each type declares its direct supertypes: parent types or implemented
// capabilities. A type's capability set is itself plus every transitive
// supertype, and a capability subsumes a type when it is in that set.
package typecatalog

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// TypeID names a type in the catalog.
type TypeID string

// String implements fmt.Stringer.
func (t TypeID) String() string {
	return string(t)
}

// SimpleName returns the last dotted segment of the type name.
func (t TypeID) SimpleName() string {
	s := string(t)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Set is an unordered set of type ids.
type Set map[TypeID]struct{}

// Contains reports whether t is in the set.
func (s Set) Contains(t TypeID) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []TypeID {
	out := make([]TypeID, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Catalog records declared supertypes and answers capability queries.
//
// Catalog is safe for concurrent use. The zero value is ready to use.
type Catalog struct {
	supers map[TypeID][]TypeID
	mu     sync.RWMutex
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{supers: make(map[TypeID][]TypeID)}
}

// Declare registers t with its direct supertypes. Declaring a type again adds
// any supertypes not already present.
func (c *Catalog) Declare(t TypeID, supertypes ...TypeID) error {
	if t == "" {
		return oops.Code("TYPE_INVALID").Errorf("type id cannot be empty")
	}
	for i, s := range supertypes {
		if s == "" {
			return oops.Code("TYPE_INVALID").With("type", t).Errorf("supertype %d of %s is empty", i, t)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.supers == nil {
		c.supers = make(map[TypeID][]TypeID)
	}

	existing := c.supers[t]
	for _, s := range supertypes {
		if s == t || containsID(existing, s) {
			continue
		}
		existing = append(existing, s)
	}
	if existing == nil {
		existing = []TypeID{}
	}
	c.supers[t] = existing
	return nil
}

// MustDeclare is Declare for static tables; it panics on invalid ids.
func (c *Catalog) MustDeclare(t TypeID, supertypes ...TypeID) {
	if err := c.Declare(t, supertypes...); err != nil {
		panic(err)
	}
}

// Known reports whether t has been declared.
func (c *Catalog) Known(t TypeID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.supers[t]
	return ok
}

// Types returns all declared types in lexical order.
func (c *Catalog) Types() []TypeID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]TypeID, 0, len(c.supers))
	for t := range c.supers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Capabilities returns t and every transitive supertype of t.
// An undeclared type has only itself as capability.
func (c *Catalog) Capabilities(t TypeID) Set {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := Set{t: {}}
	queue := []TypeID{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range c.supers[cur] {
			if set.Contains(s) {
				continue
			}
			set[s] = struct{}{}
			queue = append(queue, s)
		}
	}
	return set
}

// Subsumes reports whether capability is in the capability set of concrete.
// It is reflexive and returns false for unrelated or unknown types.
func (c *Catalog) Subsumes(capability, concrete TypeID) bool {
	if capability == "" || concrete == "" {
		return false
	}
	if capability == concrete {
		return true
	}
	return c.Capabilities(concrete).Contains(capability)
}

func containsID(ids []TypeID, t TypeID) bool {
	for _, id := range ids {
		if id == t {
			return true
		}
	}
	return false
}
