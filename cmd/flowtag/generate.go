// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"time"

	"github.com/spf13/cobra"

	"grimm.is/flowtag/internal/sample"
)

func newGenerateCmd() *cobra.Command {
	var flags struct {
		mapping string
		logs    string
		lines   int
		seed    uint64
		numeric bool
	}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a sample mapping table and flow log",
		Long: `Writes a mapping table with a dstport,protocol,tag header and a flow log of
space-separated version 2 records. The same --seed always produces the
same files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if !cmd.Flags().Changed("seed") {
				flags.seed = uint64(time.Now().UnixNano())
			}
			err := sample.WriteFiles(flags.mapping, flags.logs, sample.Options{
				Lines:           flags.lines,
				Seed:            flags.seed,
				NumericProtocol: flags.numeric,
			})
			if err != nil {
				return err
			}
			Printer.Fprintf(cmd.ErrOrStderr(), "Wrote %s and %s (%d lines, seed %d)\n",
				flags.mapping, flags.logs, flags.lines, flags.seed)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.mapping, "mapping", "mapping.csv", "mapping table path")
	cmd.Flags().StringVar(&flags.logs, "logs", "flow_logs.txt", "flow log path")
	cmd.Flags().IntVarP(&flags.lines, "lines", "n", sample.DefaultLines, "number of flow-log lines")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "random seed; defaults to the current time")
	cmd.Flags().BoolVar(&flags.numeric, "numeric-protocols", false, "write protocol numbers instead of keywords")
	return cmd
}
