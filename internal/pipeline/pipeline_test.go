// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"grimm.is/flowtag/internal/aggregate"
	"grimm.is/flowtag/internal/classify"
	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/flowlog"
	"grimm.is/flowtag/internal/logging"
	"grimm.is/flowtag/internal/mapping"
	"grimm.is/flowtag/internal/protocol"
	"grimm.is/flowtag/internal/testutil"
)

// flowLine builds a line with dstport at field 6 and protocol at field 8.
func flowLine(port, proto string) string {
	return fmt.Sprintf("2 123456789012 eni-0a1b2c3d 10.0.1.5 10.0.2.9 %s 49153 %s 25 20000 1620140761 1620140821 ACCEPT OK", port, proto)
}

func exampleMappings() *mapping.Table {
	m := mapping.New()
	m.Set(mapping.Key{Port: 443, Protocol: "tcp"}, "web")
	m.Set(mapping.Key{Port: 23, Protocol: "tcp"}, "telnet")
	return m
}

func newTestPipeline(workers, batchSize int) *Pipeline {
	return New(Options{
		Parser:     flowlog.NewParser(flowlog.Positional()),
		Classifier: classify.New(protocol.Default(), exampleMappings()),
		Workers:    workers,
		BatchSize:  batchSize,
		Logger:     logging.Discard(),
	})
}

func exampleInput() string {
	return testutil.Lines(
		flowLine("443", "6"),
		flowLine("443", "6"),
		flowLine("443", "6"),
		flowLine("23", "6"),
		flowLine("999", "6"),
	)
}

func TestRun_Example(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			defer goleak.VerifyNone(t)

			agg, err := newTestPipeline(workers, 2).Run(context.Background(), strings.NewReader(exampleInput()))
			require.NoError(t, err)

			rep := agg.Report()
			assert.Equal(t, []aggregate.TagCount{
				{Tag: "web", Count: 3},
				{Tag: "telnet", Count: 1},
				{Tag: classify.Untagged, Count: 1},
			}, rep.Tags)
			assert.Equal(t, []aggregate.PortCount{
				{Port: 443, Protocol: "tcp", Count: 3},
				{Port: 23, Protocol: "tcp", Count: 1},
				{Port: 999, Protocol: "tcp", Count: 1},
			}, rep.Ports)
			assert.Equal(t, aggregate.Stats{Lines: 5, Classified: 5}, rep.Stats)
		})
	}
}

func TestRun_LineOutcomes(t *testing.T) {
	tests := []struct {
		name string
		line string
		want aggregate.Stats
	}{
		{"short line", "2 123456789012 eni-0a1b2c3d 10.0.1.5 10.0.2.9 443", aggregate.Stats{Lines: 1, Skipped: 1}},
		{"header line", "version account-id interface-id srcaddr dstaddr srcport dstport protocol", aggregate.Stats{Lines: 1, Headers: 1}},
		{"comment", "# exported 2024-05-01", aggregate.Stats{Lines: 1, Headers: 1}},
		{"blank", "   ", aggregate.Stats{Lines: 1, Blank: 1}},
		{"bad protocol", flowLine("443", "t*p"), aggregate.Stats{Lines: 1, Skipped: 1}},
		{"port out of range", flowLine("70000", "6"), aggregate.Stats{Lines: 1, Skipped: 1}},
		{"keyword protocol", flowLine("443", "TCP"), aggregate.Stats{Lines: 1, Classified: 1}},
		{"crlf", flowLine("443", "6") + "\r", aggregate.Stats{Lines: 1, Classified: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := newTestPipeline(1, 0).Run(context.Background(), strings.NewReader(tt.line+"\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, agg.Stats())
			assert.True(t, agg.Stats().Balanced())
		})
	}
}

func TestRun_SkippedLineDoesNotTouchCounts(t *testing.T) {
	input := exampleInput() + "2 123456789012 eni-0a1b2c3d\n"
	agg, err := newTestPipeline(1, 0).Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, int64(1), agg.Stats().Skipped)
	assert.Equal(t, int64(3), agg.TagCount("web"))
	assert.Equal(t, int64(5), agg.Stats().Classified)
}

func TestRun_NoTrailingNewline(t *testing.T) {
	agg, err := newTestPipeline(1, 0).Run(context.Background(), strings.NewReader(flowLine("23", "6")))
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.TagCount("telnet"))
}

func TestRun_WorkersMatchSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	var sb strings.Builder
	protos := []string{"6", "17", "1", "tcp", "58"}
	for i := 0; i < 5000; i++ {
		switch {
		case i%97 == 0:
			sb.WriteString("too short\n")
		case i%101 == 0:
			sb.WriteString("\n")
		default:
			sb.WriteString(flowLine(fmt.Sprint(i%50), protos[i%len(protos)]))
			sb.WriteString("\n")
		}
	}
	input := sb.String()

	seq, err := newTestPipeline(1, 0).Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 8} {
		par, err := newTestPipeline(workers, 13).Run(context.Background(), strings.NewReader(input))
		require.NoError(t, err)
		if diff := cmp.Diff(seq.Report(), par.Report()); diff != "" {
			t.Errorf("workers=%d report mismatch (-sequential +parallel):\n%s", workers, diff)
		}
	}
	assert.Equal(t, int64(5000), seq.Stats().Lines)
	assert.True(t, seq.Stats().Balanced())
}

func TestRun_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := newTestPipeline(workers, 1).Run(ctx, strings.NewReader(exampleInput()))
		require.Error(t, err)
		assert.Equal(t, errors.KindUnavailable, errors.GetKind(err))
		assert.True(t, errors.Is(err, context.Canceled))
	}
}

func TestRun_LineTooLong(t *testing.T) {
	defer goleak.VerifyNone(t)

	input := exampleInput() + strings.Repeat("x", MaxLineSize+1) + "\n"
	for _, workers := range []int{1, 2} {
		_, err := newTestPipeline(workers, 2).Run(context.Background(), strings.NewReader(input))
		require.Error(t, err)
		assert.Equal(t, errors.KindValidation, errors.GetKind(err))
		assert.Equal(t, int64(6), errors.GetAttributes(err)["line"])
	}
}

// failingClassifier fails on one destination port with a fixed error.
type failingClassifier struct {
	port string
	err  error
}

func (f failingClassifier) Classify(rec flowlog.Record) (string, classify.Key, error) {
	if rec.DstPort() == f.port {
		return "", classify.Key{}, f.err
	}
	return classify.New(nil, nil).Classify(rec)
}

func TestRun_ClassifyErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"malformed skips line", errors.New(errors.KindMalformed, "bad record"), false},
		{"internal aborts run", errors.New(errors.KindInternal, "lookup failed"), true},
		{"unknown aborts run", fmt.Errorf("plain failure"), true},
	}
	for _, tt := range tests {
		for _, workers := range []int{1, 3} {
			t.Run(fmt.Sprintf("%s/workers=%d", tt.name, workers), func(t *testing.T) {
				defer goleak.VerifyNone(t)

				p := New(Options{
					Parser:     flowlog.NewParser(flowlog.Positional()),
					Classifier: failingClassifier{port: "23", err: tt.err},
					Workers:    workers,
					BatchSize:  1,
					Logger:     logging.Discard(),
				})
				agg, err := p.Run(context.Background(), strings.NewReader(exampleInput()))
				if !tt.wantErr {
					require.NoError(t, err)
					assert.Equal(t, aggregate.Stats{Lines: 5, Classified: 4, Skipped: 1}, agg.Stats())
					return
				}
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.err))
				assert.Equal(t, int64(4), errors.GetAttributes(err)["line"])
			})
		}
	}
}
