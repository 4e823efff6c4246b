// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/worldviewer/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "Failed to parse JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("worldviewer", "1.0.0", FormatJSON, &buf)

	logger.Info("session opened")

	entry := decode(t, &buf)
	assert.Equal(t, "session opened", entry["msg"])
	assert.Equal(t, "worldviewer", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Contains(t, entry, "time", "time field missing")
	assert.Contains(t, entry, "level", "level field missing")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("worldviewer", "1.0.0", FormatText, &buf)

	logger.Info("session opened")

	output := buf.String()
	assert.Contains(t, output, "session opened")
	assert.Contains(t, output, "service=worldviewer")
}

func TestSetup_DefaultFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("worldviewer", "1.0.0", "", &buf)

	logger.Info("session opened")

	decode(t, &buf)
}

func TestSetup_WithLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("worldviewer", "1.0.0", FormatJSON, &buf, WithLevel(slog.LevelWarn))

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("no layers found for facet")
	assert.Equal(t, "WARN", decode(t, &buf)["level"])
}

func TestSetup_KeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("worldviewer", "1.0.0", FormatJSON, &buf).
		With("session", "01J").
		WithGroup("layer")

	logger.Info("layer visibility changed", "key", "field@surface.Height")

	entry := decode(t, &buf)
	assert.Equal(t, "01J", entry["session"])
	require.IsType(t, map[string]any{}, entry["layer"])
	group := entry["layer"].(map[string]any)
	assert.Equal(t, "field@surface.Height", group["key"])
	assert.Equal(t, "worldviewer", group["service"])
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("worldviewer", "1.0.0", FormatJSON, &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced message")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("worldviewer", "1.0.0", FormatJSON, &buf)

	logger.Info("no trace message")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	errutil.AssertErrorCode(t, err, "LOG_LEVEL_INVALID")
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	logger := SetDefault("worldviewer", "2.0.0", FormatJSON, &buf)

	assert.Same(t, logger, slog.Default())
	slog.Info("via default")
	assert.Equal(t, "2.0.0", decode(t, &buf)["version"])
}
