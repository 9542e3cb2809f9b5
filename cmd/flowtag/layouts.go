// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"grimm.is/flowtag/internal/flowlog"
	"grimm.is/flowtag/internal/report"
)

func newLayoutsCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "List the built-in record layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := report.NewTable(cmd.OutOrStdout())

			header := []string{"LAYOUT", "DSTPORT", "PROTOCOL", "FIELDS"}
			if verbose {
				header = append(header, "NAMES")
			}
			table.SetHeader(header)
			for _, l := range flowlog.Builtin() {
				row := []string{
					l.Kind().String(),
					strconv.Itoa(l.DstPortIndex() + 1),
					strconv.Itoa(l.ProtocolIndex() + 1),
					strconv.Itoa(len(l.Fields())),
				}
				if verbose {
					row = append(row, strings.Join(l.Fields(), " "))
				}
				table.Append(row)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print every field name")
	return cmd
}
