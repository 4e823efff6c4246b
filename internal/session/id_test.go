// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id1 := NewID()
	id2 := NewID()

	assert.NotEqual(t, id1.String(), id2.String(), "Two ids should be different")
	assert.Less(t, id1.String(), id2.String(), "Later id should sort after earlier id")
}

func TestParseID(t *testing.T) {
	original := NewID()
	parsed, err := ParseID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	_, err = ParseID("invalid")
	assert.Error(t, err)
}
