// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config holds the run configuration for flowtag.
//
// A run config is an optional HCL (or JSON) file supplying defaults for the
// command-line flags:
//
//	delimiter      = " "
//	layout         = "v2"
//	protocol_file  = "protocol-numbers.csv"
//	workers        = 4
//
//	log {
//	  level = "debug"
//	}
package config

import (
	"grimm.is/flowtag/internal/flowlog"
	"grimm.is/flowtag/internal/logging"
)

// Defaults applied to any setting a config file leaves empty.
const (
	DefaultLayout    = "positional"
	DefaultFormat    = "text"
	DefaultWorkers   = 1
	DefaultBatchSize = 1024
	MaxWorkers       = 256
)

// Config is a flowtag run configuration.
type Config struct {
	Delimiter     string     `hcl:"delimiter,optional" json:"delimiter,omitempty"`
	Layout        string     `hcl:"layout,optional" json:"layout,omitempty"`
	Fields        []string   `hcl:"fields,optional" json:"fields,omitempty"`
	CommentPrefix string     `hcl:"comment_prefix,optional" json:"comment_prefix,omitempty"`
	ProtocolFile  string     `hcl:"protocol_file,optional" json:"protocol_file,omitempty"`
	Format        string     `hcl:"format,optional" json:"format,omitempty"`
	Workers       int        `hcl:"workers,optional" json:"workers,omitempty"`
	BatchSize     int        `hcl:"batch_size,optional" json:"batch_size,omitempty"`
	MetricsFile   string     `hcl:"metrics_file,optional" json:"metrics_file,omitempty"`
	Log           *LogConfig `hcl:"log,block" json:"log,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `hcl:"level,optional" json:"level,omitempty"`
	Format string `hcl:"format,optional" json:"format,omitempty"`
}

// Default returns a config with every setting at its default.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Delimiter == "" {
		c.Delimiter = flowlog.DefaultDelimiter
	}
	if c.Layout == "" {
		c.Layout = DefaultLayout
	}
	if c.CommentPrefix == "" {
		c.CommentPrefix = flowlog.DefaultCommentPrefix
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = logging.FormatText
	}
}

// RecordLayout resolves the configured record layout. An explicit field
// list takes precedence over a layout name.
func (c *Config) RecordLayout() (flowlog.Layout, error) {
	if len(c.Fields) > 0 {
		return flowlog.Custom(c.Fields)
	}
	return flowlog.ParseLayout(c.Layout)
}

// Parser builds the record parser described by the config.
func (c *Config) Parser() (flowlog.Parser, error) {
	layout, err := c.RecordLayout()
	if err != nil {
		return flowlog.Parser{}, err
	}
	p := flowlog.NewParser(layout)
	if c.Delimiter != "" {
		p.Delimiter = c.Delimiter
	}
	if c.CommentPrefix != "" {
		p.CommentPrefix = c.CommentPrefix
	}
	return p, nil
}

// LoggingConfig converts the log block into a logging.Config writing to
// the default output.
func (c *Config) LoggingConfig() (logging.Config, error) {
	cfg := logging.DefaultConfig()
	if c.Log == nil {
		return cfg, nil
	}
	if c.Log.Level != "" {
		lvl, err := logging.ParseLevel(c.Log.Level)
		if err != nil {
			return cfg, err
		}
		cfg.Level = lvl
	}
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	return cfg, nil
}
