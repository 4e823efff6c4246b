// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/worldviewer/internal/observability"
	"github.com/holomush/worldviewer/internal/session"
)

const shutdownTimeout = 5 * time.Second

// newPreviewCmd creates the preview subcommand.
func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <generator>",
		Short: "Serve a generator's layers until interrupted",
		Long: `Open a viewing session for a generator and serve its layers over HTTP
at the --listen address. Layer changes made through the HTTP endpoint are
saved when the session ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, a, args[0])
		},
	}
}

func runPreview(cmd *cobra.Command, a *app, name string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The server exists before the session so that startup failures are counted.
	var server *observability.Server
	var rec recorder
	if a.cfg.Server.Listen != "" {
		server = observability.NewServer(a.cfg.Server.Listen, nil)
		rec = server.Metrics()
	}

	rt, err := newRuntime(ctx, a.cfg, a.logger, rec)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.close(context.Background()); err != nil {
			slog.Warn("error closing plugin hosts", "error", err)
		}
	}()

	gen, err := rt.instantiate(ctx, name)
	if err != nil {
		return err
	}

	s, err := session.Open(ctx, gen, session.Options{
		Resolver: rt.resolver,
		Store:    rt.store,
		Logger:   a.logger,
		Recorder: rt.recorder,
	})
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	if server != nil {
		errCh, err := server.Start()
		if err != nil {
			_ = closeSession(s)
			return fmt.Errorf("failed to start layer server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, errCh, "layers")
		server.SetLayers(s.Layers())
		cmd.Printf("Serving %d layers for %s at http://%s/layers\n", s.Layers().Len(), gen.URI(), server.Addr())
	}

	<-ctx.Done()
	slog.Info("shutting down...")

	if server != nil {
		server.SetLayers(nil)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping layer server", "error", err)
		}
	}

	if err := closeSession(s); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// closeSession persists the session's layers under a fresh deadline; the
// command context is already cancelled at this point.
func closeSession(s *session.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Close(ctx)
}

// monitorServerErrors cancels ctx when the server reports a serve error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
