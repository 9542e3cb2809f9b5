// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package report

import (
	"bytes"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/flowtag/internal/errors"
)

// Diff returns a unified diff between two rendered reports, or "" when
// they are identical.
func Diff(expected, actual []byte, expectedName, actualName string) string {
	if bytes.Equal(expected, actual) {
		return ""
	}
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(expected)),
		B:        difflib.SplitLines(string(actual)),
		FromFile: expectedName,
		ToFile:   actualName,
		Context:  3,
	})
	if err != nil || out == "" {
		// Only trailing-newline differences produce an empty hunk list.
		return "--- " + expectedName + "\n+++ " + actualName + "\n(reports differ in trailing whitespace)\n"
	}
	return out
}

// Compare checks a rendered report against a golden file and returns a
// KindConflict error carrying the diff when they differ.
func Compare(goldenPath string, actual []byte) error {
	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		kind := errors.KindInternal
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return errors.Attr(errors.Wrap(err, kind, "failed to read expected report"), "file", goldenPath)
	}
	if d := Diff(expected, actual, goldenPath, "actual"); d != "" {
		return errors.Attr(errors.Attr(errors.New(errors.KindConflict, "report differs from expected"), "file", goldenPath), "diff", d)
	}
	return nil
}
