// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil logs and inspects oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level with its code and context.
func LogError(logger *slog.Logger, msg string, err error) {
	Log(logger, slog.LevelError, msg, err)
}

// LogWarn logs err at warn level with its code and context. Use it for
// failures the caller recovers from.
func LogWarn(logger *slog.Logger, msg string, err error) {
	Log(logger, slog.LevelWarn, msg, err)
}

// Log logs err at the given level. For oops errors it adds the code and the
// context map; other errors are logged by their string.
func Log(logger *slog.Logger, level slog.Level, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil && code != "" {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Log(context.Background(), level, msg, attrs...)
		return
	}
	logger.Log(context.Background(), level, msg, "error", err)
}

// Code returns the oops code carried by err, or "" when there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
