// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"grimm.is/flowtag/internal/errors"
)

// LoadFile loads a config file (HCL or JSON), applies defaults and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := errors.KindInternal
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, errors.Attr(errors.Wrap(err, kind, "failed to read config file"), "file", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(data, path)
	default:
		return LoadHCL(data, path)
	}
}

// LoadHCL loads config from HCL bytes. filename is used in diagnostics only
// and must end in .hcl for the HCL native syntax to be selected.
func LoadHCL(data []byte, filename string) (*Config, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".hcl") {
		filename += ".hcl"
	}
	var cfg Config
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindValidation, "failed to decode config"), "file", filename)
	}
	return finish(&cfg, filename)
}

// LoadJSON loads config from JSON bytes. Unknown keys are rejected, as they
// are for HCL.
func LoadJSON(data []byte, filename string) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindValidation, "failed to decode config"), "file", filename)
	}
	return finish(&cfg, filename)
}

func finish(cfg *Config, filename string) (*Config, error) {
	cfg.applyDefaults()
	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, errors.Attr(errors.Wrap(errs, errors.KindValidation, "invalid config"), "file", filename)
	}
	return cfg, nil
}
