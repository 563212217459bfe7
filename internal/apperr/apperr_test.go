package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(New(Validation, "bad input")); got != Validation {
		t.Errorf("expected Validation, got %v", got)
	}
	if got := KindOf(errors.New("plain")); got != Internal {
		t.Errorf("expected Internal for untyped error, got %v", got)
	}
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := New(NotFound, "file not found")
	outer := fmt.Errorf("serving request: %w", inner)
	if got := KindOf(outer); got != NotFound {
		t.Errorf("expected NotFound through wrap chain, got %v", got)
	}
}

func TestMessage(t *testing.T) {
	err := Wrap(Transport, "email failed", errors.New("dial tcp: refused"))
	if got := Message(err); got != "email failed" {
		t.Errorf("expected public message only, got %q", got)
	}
	if got := Message(errors.New("raw")); got != "raw" {
		t.Errorf("expected raw text for untyped error, got %q", got)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(Transport, "email failed", cause)
	if err.Error() != "email failed: dial tcp: refused" {
		t.Errorf("unexpected error string %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause reachable through Unwrap")
	}
}
