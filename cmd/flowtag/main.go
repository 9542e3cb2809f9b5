// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command flowtag tags flow-log records by destination port and protocol
// and reports per-tag and per-port/protocol counts.
package main

import (
	"os"

	"grimm.is/flowtag/internal/i18n"
)

var Printer = i18n.NewCLIPrinter()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		Printer.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
