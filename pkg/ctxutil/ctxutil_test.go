package ctxutil

import (
	"context"
	"testing"
)

func TestWithSubject_And_SubjectFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithSubject(context.Background(), "user-123")

	got, ok := SubjectFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true for stored subject")
	}
	if got != "user-123" {
		t.Fatalf("expected user-123, got %q", got)
	}
}

func TestSubjectFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	if _, ok := SubjectFromCtx(context.Background()); ok {
		t.Fatal("expected ok=false for empty context")
	}
}

func TestSubjectFromCtx_EmptySubject(t *testing.T) {
	t.Parallel()

	if _, ok := SubjectFromCtx(WithSubject(context.Background(), "")); ok {
		t.Fatal("expected ok=false for empty subject")
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	if got := RequestIDFromCtx(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromCtx(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
}
