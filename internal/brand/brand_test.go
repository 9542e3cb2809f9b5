// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package brand

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	b := Get()
	if b.Name == "" {
		t.Error("Brand name should not be empty")
	}
	if Version == "" {
		t.Error("Global Version should be initialized (to dev default)")
	}
	if MetricsNamespace == "" {
		t.Error("Global MetricsNamespace should be initialized")
	}
}

func TestVersionString(t *testing.T) {
	prevV, prevC := Version, GitCommit
	defer func() { Version, GitCommit = prevV, prevC }()

	Version, GitCommit = "", "unknown"
	if got := VersionString(); got != LowerName+" dev" {
		t.Errorf("unexpected default banner %q", got)
	}

	Version, GitCommit = "1.2.0", "abc123"
	if got := VersionString(); !strings.HasSuffix(got, "1.2.0 (abc123)") {
		t.Errorf("unexpected banner %q", got)
	}
}
