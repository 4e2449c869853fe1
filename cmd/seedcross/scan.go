// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/autobrr/seedcross/internal/models"
	"github.com/autobrr/seedcross/internal/services/crossseed"
)

// RunScanCommand runs a single scan from the command line and prints the
// result, useful for cron-style setups and debugging.
func RunScanCommand() *cobra.Command {
	var (
		configPath string
		instanceID int
		force      bool
		dryRun     bool
		noDryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one cross-seed scan and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instanceID <= 0 {
				return errors.New("--instance is required")
			}
			if dryRun && noDryRun {
				return errors.New("set at most one of --dry-run or --no-dry-run")
			}

			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := crossseed.ScanOptions{
				InstanceID: instanceID,
				UserID:     models.DefaultUserID,
				Force:      force,
			}
			if dryRun || noDryRun {
				opts.DryRunOverride = &dryRun
			}

			result := a.service.Scan(cmd.Context(), opts)

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))

			if len(result.Errors) > 0 {
				return errors.New("scan completed with errors")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file or directory")
	cmd.Flags().IntVar(&instanceID, "instance", 0, "Instance ID to scan")
	cmd.Flags().BoolVar(&force, "force", false, "Rescan torrents already searched")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stage matches to disk instead of injecting")
	cmd.Flags().BoolVar(&noDryRun, "no-dry-run", false, "Inject matches even if the config says dry run")

	return cmd
}
