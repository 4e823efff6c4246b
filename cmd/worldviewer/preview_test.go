// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPreviewCommand_PersistsOnShutdown(t *testing.T) {
	root := env(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, _, err := execute(t, ctx, "preview", "--listen", "127.0.0.1:0", "flat")
	require.NoError(t, err)
	assert.Contains(t, out, "Serving 1 layers for unknown:flat")

	data, err := os.ReadFile(layersFile(root))
	require.NoError(t, err)

	var doc struct {
		Format     string                      `yaml:"format"`
		Generators map[string][]map[string]any `yaml:"generators"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "1.0.0", doc.Format)
	require.Len(t, doc.Generators["unknown:flat"], 1)
	assert.Equal(t, "field", doc.Generators["unknown:flat"][0]["kind"])
}

func TestPreviewCommand_WithoutServer(t *testing.T) {
	root := env(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, _, err := execute(t, ctx, "preview", "--listen", "", "perlin")
	require.NoError(t, err)
	assert.NotContains(t, out, "Serving")

	_, err = os.Stat(layersFile(root))
	require.NoError(t, err)
}

func TestPreviewCommand_UnknownGenerator(t *testing.T) {
	root := env(t)

	_, _, err := execute(t, context.Background(), "preview", "--listen", "", "nope")
	require.Error(t, err)

	_, statErr := os.Stat(layersFile(root))
	assert.True(t, os.IsNotExist(statErr))
}
