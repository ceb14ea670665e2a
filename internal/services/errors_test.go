package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"mangadrop/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConversion, "packager", "kindlegen", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConversion) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"packager", "kindlegen", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "", "", "", nil)
	if err.Error() != "not found: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrFetch, "fetch", "get", "", nil), "fetch"},
		{fmt.Errorf("outer: %w", services.ErrStoreCorrupt), "store_corrupt"},
		{services.ErrInsufficientSpace, "insufficient_space"},
		{errors.New("other"), "unknown"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestExpected(t *testing.T) {
	if !services.Expected(services.Wrap(services.ErrDeviceNotConnected, "delivery", "", "", nil)) {
		t.Fatal("device absence should be expected")
	}
	if services.Expected(services.ErrStoreCorrupt) {
		t.Fatal("corrupt store must not be expected")
	}
}
