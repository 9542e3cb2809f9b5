// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"github.com/spf13/cobra"

	"grimm.is/flowtag/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [file]",
		Short: "Validate a run config and print it with defaults applied",
		Long: `Without arguments, prints the default run config as HCL. With a file,
loads and validates it and prints the effective config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg := config.Default()
			if len(args) == 1 {
				var err error
				if cfg, err = config.LoadFile(args[0]); err != nil {
					return err
				}
			}
			_, err := cmd.OutOrStdout().Write(cfg.MarshalHCL())
			return err
		},
	}
}
