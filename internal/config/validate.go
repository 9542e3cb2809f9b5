// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"
	"strings"

	"grimm.is/flowtag/internal/logging"
	"grimm.is/flowtag/internal/report"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate validates the entire configuration.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Delimiter == "" {
		errs = append(errs, ValidationError{Field: "delimiter", Message: "must not be empty"})
	}
	if _, err := c.RecordLayout(); err != nil {
		field := "layout"
		if len(c.Fields) > 0 {
			field = "fields"
		}
		errs = append(errs, ValidationError{Field: field, Message: err.Error()})
	}
	if strings.TrimSpace(c.CommentPrefix) != c.CommentPrefix {
		errs = append(errs, ValidationError{Field: "comment_prefix", Message: "must not start or end with whitespace"})
	}
	if _, err := report.ParseFormat(c.Format); err != nil {
		errs = append(errs, ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", c.Format)})
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		errs = append(errs, ValidationError{Field: "workers", Message: fmt.Sprintf("must be between 1 and %d", MaxWorkers)})
	}
	if c.BatchSize < 1 {
		errs = append(errs, ValidationError{Field: "batch_size", Message: "must be positive"})
	}
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateLog() ValidationErrors {
	var errs ValidationErrors
	if c.Log == nil {
		return errs
	}
	if c.Log.Level != "" {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)})
		}
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)})
	}
	return errs
}
