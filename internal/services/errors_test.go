package services_test

import (
	"context"
	"errors"
	"testing"

	"loom/internal/services"
)

func TestWrapTagsAndChains(t *testing.T) {
	underlying := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "publish", "upload", "uploader crashed", underlying)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected marker in chain")
	}
	if !errors.Is(err, underlying) {
		t.Fatal("expected underlying error in chain")
	}
	want := "external tool error: publish: upload: uploader crashed: exit status 1"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("nil marker should default to transient")
	}
	if err.Error() != "transient failure: service failure" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestIsPermanent(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrValidation, "s", "op", "bad input", nil), true},
		{services.Wrap(services.ErrConfiguration, "s", "op", "missing key", nil), true},
		{services.Wrap(services.ErrNotFound, "s", "op", "gone", nil), true},
		{services.Wrap(services.ErrTransient, "s", "op", "blip", nil), false},
		{services.Wrap(services.ErrTimeout, "s", "op", "slow", nil), false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.IsPermanent(tc.err); got != tc.want {
			t.Errorf("IsPermanent(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestContextCarriers(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("empty context must not carry a job id")
	}

	ctx = services.WithJobID(ctx, 42)
	ctx = services.WithStage(ctx, "publish")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected job id %d (%v)", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "publish" {
		t.Fatalf("unexpected stage %q (%v)", stage, ok)
	}
	if req, ok := services.RequestIDFromContext(ctx); !ok || req != "req-1" {
		t.Fatalf("unexpected request id %q (%v)", req, ok)
	}
}
