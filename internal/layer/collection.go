// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package layer

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
)

// Collection is the ordered layer list shared by the renderer and the
// configuration surface.
//
// Readers take a Snapshot and may iterate it while writers change the
// collection; writers never modify a published slice.
type Collection struct {
	mu     sync.Mutex
	layers atomic.Pointer[[]*Layer]
}

// NewCollection publishes layers as the initial collection.
func NewCollection(layers []*Layer) *Collection {
	c := &Collection{}
	c.publish(append([]*Layer(nil), layers...))
	return c
}

func (c *Collection) publish(layers []*Layer) {
	c.layers.Store(&layers)
}

func (c *Collection) current() []*Layer {
	if p := c.layers.Load(); p != nil {
		return *p
	}
	return nil
}

// Snapshot returns the current layers. The slice must not be modified.
func (c *Collection) Snapshot() []*Layer {
	return c.current()
}

// Len returns the number of layers.
func (c *Collection) Len() int {
	return len(c.current())
}

// Get returns the layer with the given key.
func (c *Collection) Get(key string) (*Layer, bool) {
	for _, l := range c.current() {
		if l.Key() == key {
			return l, true
		}
	}
	return nil, false
}

// Views captures every layer's current state in order.
func (c *Collection) Views() []View {
	layers := c.current()
	out := make([]View, 0, len(layers))
	for _, l := range layers {
		out = append(out, l.View())
	}
	return out
}

// Append adds l at the end. Keys must be unique.
func (c *Collection) Append(l *Layer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.current()
	if indexOf(cur, l.Key()) >= 0 {
		return oops.Code("LAYER_DUPLICATE").With("layer", l.Key()).Errorf("layer %s already present", l.Key())
	}
	next := make([]*Layer, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, l)
	c.publish(next)
	return nil
}

// Remove deletes the layer with key and reports whether it was present.
func (c *Collection) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.current()
	i := indexOf(cur, key)
	if i < 0 {
		return false
	}
	next := make([]*Layer, 0, len(cur)-1)
	next = append(next, cur[:i]...)
	next = append(next, cur[i+1:]...)
	c.publish(next)
	return true
}

// Move places the layer with key at index, shifting the others.
func (c *Collection) Move(key string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.current()
	from := indexOf(cur, key)
	if from < 0 {
		return oops.Code("LAYER_NOT_FOUND").With("layer", key).Errorf("layer %s not found", key)
	}
	if index < 0 || index >= len(cur) {
		return oops.Code("LAYER_INDEX_OUT_OF_RANGE").With("layer", key).With("index", index).
			Errorf("index %d out of range [0,%d)", index, len(cur))
	}

	next := make([]*Layer, 0, len(cur))
	next = append(next, cur[:from]...)
	next = append(next, cur[from+1:]...)
	next = slices.Insert(next, index, cur[from])
	c.publish(next)
	return nil
}

// Replace publishes a new layer list.
func (c *Collection) Replace(layers []*Layer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publish(append([]*Layer(nil), layers...))
}

// SetVisible toggles the visibility of the layer with key.
func (c *Collection) SetVisible(key string, visible bool) error {
	l, ok := c.Get(key)
	if !ok {
		return oops.Code("LAYER_NOT_FOUND").With("layer", key).Errorf("layer %s not found", key)
	}
	l.SetVisible(visible)
	return nil
}

func indexOf(layers []*Layer, key string) int {
	for i, l := range layers {
		if l.Key() == key {
			return i
		}
	}
	return -1
}
