package pacmerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(NotFound, "pkg-a", "no such package")
	if !Is(err, NotFound) {
		t.Fatalf("expected Is to match NotFound")
	}
	if Is(err, Busy) {
		t.Fatalf("expected Is to not match Busy")
	}
}

func TestIsMatchesWrappedError(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(DownloadFailed, "pkg-a", "fetch failed", cause)
	wrapped := fmt.Errorf("install pkg-a: %w", err)
	if !Is(wrapped, DownloadFailed) {
		t.Fatalf("expected Is to unwrap to find DownloadFailed")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected Unwrap to expose cause")
	}
}

func TestIsFalseForPlainError(t *testing.T) {
	if Is(errors.New("plain"), NotFound) {
		t.Fatalf("expected Is to be false for a non-pacmerr error")
	}
	if Is(nil, NotFound) {
		t.Fatalf("expected Is to be false for nil")
	}
}
