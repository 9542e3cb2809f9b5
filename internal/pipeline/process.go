// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"grimm.is/flowtag/internal/aggregate"
	"grimm.is/flowtag/internal/classify"
	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/flowlog"
	"grimm.is/flowtag/internal/logging"
	"grimm.is/flowtag/internal/mapping"
	"grimm.is/flowtag/internal/metrics"
	"grimm.is/flowtag/internal/protocol"
)

// Stdin is the flow-log path that reads standard input.
const Stdin = "-"

// Job describes one complete run.
type Job struct {
	FlowLogPath  string // Stdin reads Input, or os.Stdin when Input is nil
	MappingPath  string
	ProtocolPath string // optional; empty uses the built-in protocol numbers
	Parser       flowlog.Parser
	Workers      int
	BatchSize    int
	Input        io.Reader
	Logger       *logging.Logger
	Metrics      *metrics.Registry
}

// Result is the outcome of a successful run.
type Result struct {
	RunID     string
	Report    *aggregate.Report
	Duration  time.Duration
	Protocols protocol.LoadStats
	Mappings  mapping.LoadStats
}

// Process loads the lookup tables, runs the flow log through the pipeline
// and builds the report. Setup failures are returned before any line is read.
func Process(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.New().String()}

	logger := job.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("run_id", res.RunID)

	protocols := protocol.Default()
	if job.ProtocolPath != "" {
		var err error
		protocols, res.Protocols, err = protocol.LoadFile(job.ProtocolPath, logger.WithComponent("protocol"))
		if err != nil {
			return nil, err
		}
		job.Metrics.ObserveTable("protocol", res.Protocols.Loaded, res.Protocols.Invalid, 0)
		logger.Info("Loaded protocol table", "file", job.ProtocolPath,
			"loaded", res.Protocols.Loaded, "invalid", res.Protocols.Invalid)
	}

	mappings, mstats, err := mapping.LoadFile(job.MappingPath, protocols, logger.WithComponent("mapping"))
	if err != nil {
		return nil, err
	}
	res.Mappings = mstats
	job.Metrics.ObserveTable("mapping", mstats.Loaded, mstats.Invalid, mstats.Overridden)
	logger.Info("Loaded mapping table", "file", job.MappingPath,
		"entries", mappings.Len(), "invalid", mstats.Invalid, "overridden", mstats.Overridden)

	input, closeInput, err := openInput(job)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	p := New(Options{
		Parser:     job.Parser,
		Classifier: classify.New(protocols, mappings),
		Workers:    job.Workers,
		BatchSize:  job.BatchSize,
		Logger:     logger.WithComponent("pipeline"),
	})
	agg, err := p.Run(ctx, input)
	if err != nil {
		return nil, errors.Attr(err, "file", job.FlowLogPath)
	}

	res.Report = agg.Report()
	res.Duration = time.Since(start)
	job.Metrics.ObserveReport(res.Report)
	job.Metrics.ObserveDuration(res.Duration, res.Report.Stats.Lines)

	s := res.Report.Stats
	logger.Info("Run complete",
		"lines", s.Lines, "classified", s.Classified, "skipped", s.Skipped,
		"headers", s.Headers, "blank", s.Blank, "tags", len(res.Report.Tags),
		"duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

func openInput(job Job) (io.Reader, func(), error) {
	if job.FlowLogPath == Stdin || job.FlowLogPath == "" {
		if job.Input != nil {
			return job.Input, func() {}, nil
		}
		if job.FlowLogPath == "" {
			return nil, nil, errors.New(errors.KindValidation, "no flow log given")
		}
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(job.FlowLogPath)
	if err != nil {
		kind := errors.KindInternal
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, nil, errors.Attr(errors.Wrap(err, kind, "failed to open flow log"), "file", job.FlowLogPath)
	}
	return f, func() { f.Close() }, nil
}
