package services_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"truthx/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ffprobe", "inspect", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{services.Wrap(services.ErrValidation, "analyzer", "request", "no input", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrNotFound, "audit", "get", "missing", nil), http.StatusNotFound},
		{services.Wrap(services.ErrTimeout, "ffprobe", "inspect", "slow", nil), http.StatusGatewayTimeout},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "req-1")
	ctx = services.WithComponent(ctx, "extractor")
	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "req-1" {
		t.Fatalf("unexpected request id %q (%v)", id, ok)
	}
	if c, ok := services.ComponentFromContext(ctx); !ok || c != "extractor" {
		t.Fatalf("unexpected component %q (%v)", c, ok)
	}
	if services.WithRequestID(ctx, "") != ctx {
		t.Fatal("expected empty id to leave context untouched")
	}
}
