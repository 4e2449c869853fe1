// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/seedcross/internal/api"
)

func RunServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the seedcross server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.scheduler.Start(ctx); err != nil {
				return err
			}

			server := api.NewServer(
				a.cfg.Config,
				a.instanceStore, a.integrationStore,
				a.configStore, a.searcheeStore, a.decisionStore,
				a.pool, a.scheduler, a.cache,
			)

			log.Info().Str("version", version).Msg("Starting seedcross")
			return server.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file or directory")
	return cmd
}
