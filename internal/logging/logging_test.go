// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/flowtag/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected info level, got %v", cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("Expected text format, got %s", cfg.Format)
	}
	if cfg.Output == nil {
		t.Error("Default output should be set")
	}
}

func TestLogger_ComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: LevelInfo, Format: FormatLogfmt}).WithComponent("mapping")

	logger.Debug("hidden")
	logger.Info("loaded", "rows", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=loaded")
	assert.Contains(t, out, "component=mapping")
	assert.Contains(t, out, "rows=3")
	assert.False(t, logger.Enabled(LevelDebug))
	assert.True(t, logger.Enabled(LevelWarn))
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: LevelDebug, Format: FormatLogfmt})

	logger.WithError(errors.New(errors.KindNotFound, "missing")).Error("setup failed")

	out := buf.String()
	assert.Contains(t, out, "error=missing")
	assert.Contains(t, out, "kind=not_found")

	assert.Same(t, logger, logger.WithError(nil))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" WARN ", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.KindValidation, errors.GetKind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(Config{Output: &buf, Level: LevelInfo, Format: FormatLogfmt}))
	SetDefault(nil) // ignored

	WithComponent("pipeline").Info("run complete")
	if !strings.Contains(buf.String(), "component=pipeline") {
		t.Errorf("default logger not replaced: %q", buf.String())
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{"", "text", "JSON", "logfmt"} {
		assert.True(t, ValidFormat(f), f)
	}
	assert.False(t, ValidFormat("xml"))
}
