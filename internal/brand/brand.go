// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package brand provides centralized naming for the flowtag binary.
//
// The identity is loaded from brand.json at compile time via go:embed so
// the CLI help, metric names and version output all agree.
package brand

import (
	_ "embed"
	"encoding/json"
)

//go:embed brand.json
var brandJSON []byte

// Brand holds all branding information
type Brand struct {
	Name             string `json:"name"`
	LowerName        string `json:"lowerName"`
	Vendor           string `json:"vendor"`
	Repository       string `json:"repository"`
	Description      string `json:"description"`
	ConfigFileName   string `json:"configFileName"`
	MetricsNamespace string `json:"metricsNamespace"`
	License          string `json:"license"`
}

var b Brand

func init() {
	if err := json.Unmarshal(brandJSON, &b); err != nil {
		panic("failed to parse brand.json: " + err.Error())
	}

	Name = b.Name
	LowerName = b.LowerName
	Description = b.Description
	ConfigFileName = b.ConfigFileName
	MetricsNamespace = b.MetricsNamespace
}

var (
	Name             string
	LowerName        string
	Description      string
	ConfigFileName   string
	MetricsNamespace string

	// Version is set at build time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
)

// Get returns the full Brand struct
func Get() Brand {
	return b
}

// VersionString renders the one-line version banner.
func VersionString() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	s := LowerName + " " + v
	if GitCommit != "" && GitCommit != "unknown" {
		s += " (" + GitCommit + ")"
	}
	return s
}
