// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	err := New(KindValidation, "invalid layout")
	if err.Error() != "invalid layout" {
		t.Errorf("expected 'invalid layout', got '%s'", err.Error())
	}

	wrapped := Wrap(err, KindInternal, "failed to configure parser")
	if wrapped.Error() != "failed to configure parser: invalid layout" {
		t.Errorf("unexpected message '%s'", wrapped.Error())
	}

	if Wrap(nil, KindInternal, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestGetKind(t *testing.T) {
	err := New(KindNotFound, "mapping file not found")
	if GetKind(err) != KindNotFound {
		t.Errorf("expected KindNotFound, got %v", GetKind(err))
	}

	wrapped := Wrap(err, KindInternal, "failed")
	if GetKind(wrapped) != KindInternal {
		t.Errorf("expected KindInternal, got %v", GetKind(wrapped))
	}

	if GetKind(errors.New("std error")) != KindUnknown {
		t.Errorf("expected KindUnknown, got %v", GetKind(errors.New("std error")))
	}
}

func TestKindFatal(t *testing.T) {
	if KindMalformed.Fatal() {
		t.Error("malformed input should be recoverable")
	}
	for _, k := range []Kind{KindInternal, KindValidation, KindNotFound, KindConflict} {
		if !k.Fatal() {
			t.Errorf("%s should be fatal", k)
		}
	}
}

func TestAttributes(t *testing.T) {
	err := New(KindMalformed, "bad row")
	err = Attr(err, "line", 7)
	err = Attr(err, "value", "http")

	attrs := GetAttributes(err)
	if attrs["line"] != 7 {
		t.Errorf("expected 7, got %v", attrs["line"])
	}
	if attrs["value"] != "http" {
		t.Errorf("expected http, got %v", attrs["value"])
	}

	wrapped := Wrap(err, KindValidation, "mapping table")
	wrapped = Attr(wrapped, "file", "mapping.csv")

	allAttrs := GetAttributes(wrapped)
	if allAttrs["line"] != 7 || allAttrs["file"] != "mapping.csv" {
		t.Errorf("missing attributes: %v", allAttrs)
	}
}

func TestAttrDoesNotMutateSentinel(t *testing.T) {
	sentinel := New(KindMalformed, "malformed record")

	decorated := Attr(sentinel, "field", "dstport")
	if !Is(decorated, sentinel) {
		t.Error("decorated error should still match the sentinel")
	}
	if len(GetAttributes(sentinel)) != 0 {
		t.Errorf("sentinel was mutated: %v", GetAttributes(sentinel))
	}

	stdWrapped := Attr(fmt.Errorf("context: %w", sentinel), "line", 3)
	if GetKind(stdWrapped) != KindMalformed {
		t.Errorf("expected kind to carry through, got %v", GetKind(stdWrapped))
	}
}
