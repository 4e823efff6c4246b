// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newPluginsCmd creates the plugins subcommand.
func newPluginsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List discoverable world generators",
		Long: `List every marked generator type visible to discovery, builtin and
scripted. Use --filter to restrict the list to a package prefix or glob.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(ctx) }()

			descriptors, err := rt.discover(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tCONSTRUCTOR")
			for _, d := range descriptors {
				ctor := d.ConstructorTag
				if !d.Constructible() {
					ctor = "-"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.DisplayName, d.TypeName, ctor)
			}
			return w.Flush()
		},
	}
}
