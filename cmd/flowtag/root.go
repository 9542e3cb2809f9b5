// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"grimm.is/flowtag/internal/brand"
	"grimm.is/flowtag/internal/config"
	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/flowlog"
	"grimm.is/flowtag/internal/logging"
	"grimm.is/flowtag/internal/metrics"
	"grimm.is/flowtag/internal/pipeline"
	"grimm.is/flowtag/internal/report"
)

type rootFlags struct {
	config        string
	delimiter     string
	layout        string
	fields        []string
	protocols     string
	commentPrefix string
	format        string
	workers       int
	batchSize     int
	metricsFile   string
	expect        string
	logLevel      string
	logFormat     string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:   brand.LowerName + " [flags] <flow-log> <mapping> <output>",
		Short: brand.Description,
		Long: `Reads a flow log, tags every record by its (destination port, protocol)
pair using a CSV mapping table, and writes per-tag and per-port/protocol
counts.

Use "-" as <flow-log> to read standard input and as <output> to write the
report to standard output. Lines that cannot be parsed are counted and
skipped; they never fail the run.`,
		Args:          cobra.ExactArgs(3),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Do not output help message if we get this far.
			cmd.SilenceUsage = true
			return runProcess(cmd, &flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.config, "config", "c", "", "HCL or JSON run config supplying flag defaults")
	f.StringVarP(&flags.delimiter, "delimiter", "d", " ", `field delimiter; " " splits on runs of whitespace`)
	f.StringVarP(&flags.layout, "layout", "l", config.DefaultLayout, "record layout: positional, v2, v3, v4, v5 or auto")
	f.StringSliceVar(&flags.fields, "fields", nil, "explicit comma-separated field names; overrides --layout")
	f.StringVar(&flags.protocols, "protocols", "", "IANA protocol-numbers CSV (Decimal, Keyword columns)")
	f.StringVar(&flags.commentPrefix, "comment-prefix", "#", "lines starting with this prefix are ignored (\"none\" or empty disables)")
	f.StringVarP(&flags.format, "format", "f", config.DefaultFormat, "report format: "+joinNames(report.Formats))
	f.IntVarP(&flags.workers, "workers", "w", config.DefaultWorkers, "number of classification workers")
	f.IntVar(&flags.batchSize, "batch-size", config.DefaultBatchSize, "lines per worker batch")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	f.StringVar(&flags.expect, "expect", "", "compare the report with this file and fail on any difference")
	f.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	f.StringVar(&flags.logFormat, "log-format", logging.FormatText, "log format: text, json or logfmt")

	cmd.AddCommand(
		newGenerateCmd(),
		newLayoutsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// resolveConfig layers explicitly set flags over the config file, which is
// layered over the defaults.
func resolveConfig(fs *pflag.FlagSet, flags *rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.config != "" {
		var err error
		if cfg, err = config.LoadFile(flags.config); err != nil {
			return nil, err
		}
	}

	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("delimiter", func() { cfg.Delimiter = unescape(flags.delimiter) })
	set("layout", func() { cfg.Layout = flags.layout; cfg.Fields = nil })
	set("fields", func() { cfg.Fields = flags.fields })
	set("protocols", func() { cfg.ProtocolFile = flags.protocols })
	set("comment-prefix", func() {
		cfg.CommentPrefix = flags.commentPrefix
		if cfg.CommentPrefix == "" {
			cfg.CommentPrefix = flowlog.NoCommentPrefix
		}
	})
	set("format", func() { cfg.Format = flags.format })
	set("workers", func() { cfg.Workers = flags.workers })
	set("batch-size", func() { cfg.BatchSize = flags.batchSize })
	set("metrics-file", func() { cfg.MetricsFile = flags.metricsFile })
	set("log-level", func() { cfg.Log.Level = flags.logLevel })
	set("log-format", func() { cfg.Log.Format = flags.logFormat })

	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, errors.Wrap(errs, errors.KindValidation, "invalid options")
	}
	return cfg, nil
}

// unescape lets shells pass a tab as `\t`.
func unescape(s string) string {
	switch s {
	case `\t`, "tab":
		return "\t"
	case "space":
		return " "
	}
	return s
}

func runProcess(cmd *cobra.Command, flags *rootFlags, args []string) error {
	cfg, err := resolveConfig(cmd.Flags(), flags)
	if err != nil {
		return err
	}

	logCfg, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.New(logCfg)
	logging.SetDefault(logger)

	parser, err := cfg.Parser()
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if cfg.MetricsFile != "" {
		reg = metrics.NewRegistry()
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Process(ctx, pipeline.Job{
		FlowLogPath:  args[0],
		MappingPath:  args[1],
		ProtocolPath: cfg.ProtocolFile,
		Parser:       parser,
		Workers:      cfg.Workers,
		BatchSize:    cfg.BatchSize,
		Input:        cmd.InOrStdin(),
		Logger:       logger,
		Metrics:      reg,
	})
	if err != nil {
		return err
	}

	rendered, err := report.Render(res.Report, format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), args[2], rendered); err != nil {
		return err
	}

	if reg != nil {
		if err := reg.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	printSummary(cmd.ErrOrStderr(), res)

	if flags.expect != "" {
		if err := report.Compare(flags.expect, rendered); err != nil {
			if diff, ok := errors.GetAttributes(err)["diff"].(string); ok {
				io.WriteString(cmd.ErrOrStderr(), diff)
			}
			return err
		}
	}
	return nil
}

func writeOutput(stdout io.Writer, path string, rendered []byte) error {
	if path == pipeline.Stdin {
		_, err := stdout.Write(rendered)
		return err
	}
	return report.WriteBytes(path, rendered)
}

func printSummary(w io.Writer, res *pipeline.Result) {
	s := res.Report.Stats
	Printer.Fprintf(w, "%s: %d lines, %d classified, %d skipped, %d headers, %d blank, %d tags in %v\n",
		brand.LowerName, s.Lines, s.Classified, s.Skipped, s.Headers, s.Blank,
		len(res.Report.Tags), res.Duration.Round(time.Millisecond))
}

// contextOrBackground guards commands executed without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func joinNames[T ~string](vals []T) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = string(v)
	}
	return strings.Join(s, ", ")
}
