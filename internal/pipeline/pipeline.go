// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package pipeline drives flow-log lines through parsing, classification
// and aggregation.
//
// A run is a single pass over its input. Malformed lines are counted and
// skipped; only read failures and cancellation end a run early.
package pipeline

import (
	"bufio"
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"grimm.is/flowtag/internal/aggregate"
	"grimm.is/flowtag/internal/classify"
	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/flowlog"
	"grimm.is/flowtag/internal/logging"
)

const (
	// MaxLineSize bounds a single input line.
	MaxLineSize = 1 << 20

	// DefaultBatchSize is the number of lines handed to a worker at a time.
	DefaultBatchSize = 1024

	// cancelCheckInterval is how often the sequential loop polls ctx.
	cancelCheckInterval = 4096
)

// Classifier tags a parsed record. Errors of a non-fatal kind skip the
// line; any other error aborts the run.
type Classifier interface {
	Classify(rec flowlog.Record) (string, classify.Key, error)
}

// Options configures a Pipeline.
type Options struct {
	Parser     flowlog.Parser
	Classifier Classifier
	Workers    int // <= 1 runs on the calling goroutine
	BatchSize  int
	Logger     *logging.Logger
}

// Pipeline runs flow-log input through a parser and classifier.
type Pipeline struct {
	parser     flowlog.Parser
	classifier Classifier
	workers    int
	batchSize  int
	logger     *logging.Logger
	debug      bool
}

// New returns a pipeline for opts. A nil classifier tags everything untagged
// using the built-in protocol table.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		parser:     opts.Parser,
		classifier: opts.Classifier,
		workers:    opts.Workers,
		batchSize:  opts.BatchSize,
		logger:     opts.Logger,
	}
	if p.classifier == nil {
		p.classifier = classify.New(nil, nil)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.batchSize < 1 {
		p.batchSize = DefaultBatchSize
	}
	if p.logger == nil {
		p.logger = logging.WithComponent("pipeline")
	}
	p.debug = p.logger.Enabled(logging.LevelDebug)
	return p
}

// Run reads r to the end and returns the aggregated counts.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (*aggregate.Aggregator, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err, 0)
	}
	scanner := newScanner(r)
	if p.workers > 1 {
		return p.runWorkers(ctx, scanner)
	}
	return p.runSequential(ctx, scanner)
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return s
}

func (p *Pipeline) runSequential(ctx context.Context, scanner *bufio.Scanner) (*aggregate.Aggregator, error) {
	agg := aggregate.New()
	var lineNo int64
	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, cancelled(err, lineNo)
			}
		}
		if err := p.processLine(agg, scanner.Text(), lineNo); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, readError(err, lineNo+1)
	}
	return agg, nil
}

type batch struct {
	start int64 // line number of lines[0]
	lines []string
}

// runWorkers batches lines in file order and fans the batches out. Each
// worker owns an aggregator; they are merged once every batch is done.
func (p *Pipeline) runWorkers(ctx context.Context, scanner *bufio.Scanner) (*aggregate.Aggregator, error) {
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan batch, p.workers)

	g.Go(func() error {
		defer close(batches)
		var lineNo int64
		cur := batch{start: 1, lines: make([]string, 0, p.batchSize)}
		send := func() error {
			if len(cur.lines) == 0 {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return cancelled(err, lineNo)
			}
			select {
			case batches <- cur:
			case <-gctx.Done():
				return cancelled(gctx.Err(), lineNo)
			}
			cur = batch{start: lineNo + 1, lines: make([]string, 0, p.batchSize)}
			return nil
		}
		for scanner.Scan() {
			lineNo++
			cur.lines = append(cur.lines, scanner.Text())
			if len(cur.lines) == p.batchSize {
				if err := send(); err != nil {
					return err
				}
			}
		}
		if err := scanner.Err(); err != nil {
			return readError(err, lineNo+1)
		}
		return send()
	})

	aggs := make([]*aggregate.Aggregator, p.workers)
	for i := range aggs {
		agg := aggregate.New()
		aggs[i] = agg
		g.Go(func() error {
			for b := range batches {
				for j, line := range b.lines {
					if err := p.processLine(agg, line, b.start+int64(j)); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := aggregate.New()
	for _, agg := range aggs {
		total.Merge(agg)
	}
	return total, nil
}

// processLine records exactly one outcome for line in agg. Only a fatal
// classify error is returned.
func (p *Pipeline) processLine(agg *aggregate.Aggregator, line string, lineNo int64) error {
	rec, verdict := p.parser.Parse(line)
	switch verdict {
	case flowlog.Blank:
		agg.RecordBlank()
	case flowlog.Comment, flowlog.Header:
		agg.RecordHeader()
	case flowlog.Malformed:
		agg.RecordSkipped()
		if p.debug {
			p.logger.Debug("Skipping short line", "line", lineNo)
		}
	case flowlog.Parsed:
		tag, key, err := p.classifier.Classify(rec)
		if err != nil {
			if errors.GetKind(err).Fatal() {
				return errors.Attr(err, "line", lineNo)
			}
			agg.RecordSkipped()
			if p.debug {
				p.logger.WithError(err).Debug("Skipping unclassifiable line", "line", lineNo)
			}
			return nil
		}
		agg.Record(tag, key)
	}
	return nil
}

func readError(err error, lineNo int64) error {
	if errors.Is(err, bufio.ErrTooLong) {
		return errors.Attr(errors.Attr(
			errors.Wrap(err, errors.KindValidation, "flow log line exceeds maximum length"),
			"line", lineNo), "max_bytes", MaxLineSize)
	}
	return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to read flow log"), "line", lineNo)
}

func cancelled(err error, lineNo int64) error {
	return errors.Attr(errors.Wrap(err, errors.KindUnavailable, "run cancelled"), "line", lineNo)
}
