// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holomush/worldviewer/internal/plugin"
)

// newSchemaCmd creates the schema subcommand.
func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the generator manifest JSON Schema",
		Long: `Print the JSON Schema that generator.yaml manifests are validated
against, for editor integration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := plugin.GenerateSchema()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
			return err
		},
	}
}
