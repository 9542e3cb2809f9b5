// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/flowtag/internal/errors"
	"grimm.is/flowtag/internal/flowlog"
	"grimm.is/flowtag/internal/logging"
	"grimm.is/flowtag/internal/metrics"
	"grimm.is/flowtag/internal/testutil"
)

const exampleMapping = `dstport,protocol,tag
443,tcp,web
23,tcp,telnet
25,tcp,sv_P1
not-a-port,tcp,broken
`

func TestProcess(t *testing.T) {
	logPath := testutil.WriteFile(t, "flow_logs.txt", exampleInput())
	mapPath := testutil.WriteFile(t, "mapping.csv", exampleMapping)
	reg := metrics.NewRegistry()

	res, err := Process(context.Background(), Job{
		FlowLogPath: logPath,
		MappingPath: mapPath,
		Parser:      flowlog.NewParser(flowlog.Positional()),
		Logger:      logging.Discard(),
		Metrics:     reg,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 3, res.Mappings.Loaded)
	assert.Equal(t, 1, res.Mappings.Invalid)
	assert.Equal(t, int64(5), res.Report.Stats.Lines)
	assert.Equal(t, "web", res.Report.Tags[0].Tag)
	assert.Positive(t, res.Duration)

	assert.Equal(t, 3.0, promtest.ToFloat64(reg.Tagged.WithLabelValues("web")))
	assert.Equal(t, 1.0, promtest.ToFloat64(reg.TableRows.WithLabelValues("mapping", metrics.RowInvalid)))
}

func TestProcess_ProtocolTable(t *testing.T) {
	logPath := testutil.WriteFile(t, "flow_logs.txt", testutil.Lines(
		flowLine("443", "6"),
		flowLine("8080", "253"),
	))
	mapPath := testutil.WriteFile(t, "mapping.csv", "8080,exp1,lab\n443,6,web\n")
	protoPath := testutil.WriteFile(t, "protocol-numbers.csv", testutil.Lines(
		"Decimal,Keyword,Protocol",
		"253,EXP1,Experimentation",
		"148-252,,Unassigned",
	))

	res, err := Process(context.Background(), Job{
		FlowLogPath:  logPath,
		MappingPath:  mapPath,
		ProtocolPath: protoPath,
		Parser:       flowlog.NewParser(flowlog.Positional()),
		Logger:       logging.Discard(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Protocols.Loaded)
	assert.Equal(t, 1, res.Protocols.Invalid)
	tags := map[string]int64{}
	for _, tc := range res.Report.Tags {
		tags[tc.Tag] = tc.Count
	}
	assert.Equal(t, map[string]int64{"web": 1, "lab": 1}, tags)
}

func TestProcess_Stdin(t *testing.T) {
	mapPath := testutil.WriteFile(t, "mapping.csv", exampleMapping)
	res, err := Process(context.Background(), Job{
		FlowLogPath: Stdin,
		Input:       strings.NewReader(exampleInput()),
		MappingPath: mapPath,
		Parser:      flowlog.NewParser(flowlog.Positional()),
		Workers:     2,
		Logger:      logging.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Report.Stats.Classified)
}

func TestProcess_SetupErrors(t *testing.T) {
	logPath := testutil.WriteFile(t, "flow_logs.txt", exampleInput())
	mapPath := testutil.WriteFile(t, "mapping.csv", exampleMapping)

	tests := []struct {
		name string
		job  Job
		kind errors.Kind
	}{
		{"missing mapping", Job{FlowLogPath: logPath, MappingPath: mapPath + ".missing"}, errors.KindNotFound},
		{"missing flow log", Job{FlowLogPath: logPath + ".missing", MappingPath: mapPath}, errors.KindNotFound},
		{"missing protocol table", Job{FlowLogPath: logPath, MappingPath: mapPath, ProtocolPath: mapPath + ".nope"}, errors.KindNotFound},
		{"no flow log", Job{MappingPath: mapPath}, errors.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.job.Logger = logging.Discard()
			_, err := Process(context.Background(), tt.job)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.GetKind(err))
			assert.True(t, tt.kind.Fatal())
		})
	}
}
