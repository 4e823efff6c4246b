// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holomush/worldviewer/internal/layer"
	"github.com/holomush/worldviewer/internal/layerstore"
	"github.com/holomush/worldviewer/internal/session"
)

// readOnlyStore loads stored settings but never writes them back.
type readOnlyStore struct {
	layerstore.Store
}

func (readOnlyStore) Save(context.Context, string, []layer.Record) error {
	return nil
}

// newLayersCmd creates the layers subcommand.
func newLayersCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "layers <generator>",
		Short: "Show the layers a generator would be displayed with",
		Long: `Instantiate a generator by type name or id, resolve a layer for each
facet it produces and apply the saved layer settings. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(ctx) }()

			gen, err := rt.instantiate(ctx, args[0])
			if err != nil {
				return err
			}

			s, err := session.Open(ctx, gen, session.Options{
				Resolver: rt.resolver,
				Store:    readOnlyStore{rt.store},
				Logger:   a.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			defer func() { _ = s.Close(ctx) }()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s.Layers().Views())
			}
			return printLayers(cmd.OutOrStdout(), s)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print layers as JSON")

	return cmd
}

func printLayers(out io.Writer, s *session.Session) error {
	_, _ = fmt.Fprintf(out, "generator %s\n\n", s.Generator().URI())

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tFACET\tVISIBLE\tPARAMS")
	for _, v := range s.Layers().Views() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", v.Kind, v.Facet, v.Visible, formatParams(v.Params))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, gap := range s.Resolution().Gaps {
		_, _ = fmt.Fprintf(out, "\nwarning: %s\n", gap)
	}

	report := s.MergeReport()
	if report.Abandoned {
		_, _ = fmt.Fprintf(out, "\nwarning: saved settings ignored: %v\n", report.Err)
	}
	if len(report.Stale) > 0 {
		_, _ = fmt.Fprintf(out, "\nsaved settings without a layer: %s\n", strings.Join(report.Stale, ", "))
	}
	return nil
}

func formatParams(params map[string]float64) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(params))
	for _, name := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, fmt.Sprintf("%s=%g", name, params[name]))
	}
	return strings.Join(parts, " ")
}
