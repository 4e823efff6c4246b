// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/worldviewer/internal/config"
	"github.com/holomush/worldviewer/internal/logging"
)

const serviceName = "worldviewer"

// app carries state shared by every subcommand once the root pre-run has
// loaded the configuration.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the worldviewer CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "worldviewer",
		Short: "Inspect world generators and their map layers",
		Long: `worldviewer discovers world generator plugins, resolves a renderer
layer for every facet a generator produces and restores the layer settings
saved for that generator.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newPluginsCmd(a))
	cmd.AddCommand(newLayersCmd(a))
	cmd.AddCommand(newPreviewCmd(a))
	cmd.AddCommand(newSchemaCmd())

	return cmd
}

// setup loads the configuration and installs the default logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = logging.SetDefault(serviceName, version, cfg.Log.Format, cmd.ErrOrStderr(), logging.WithLevel(level))
	return nil
}
