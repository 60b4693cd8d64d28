package logger

import (
	"context"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l, _ := newBuffered(t, "info", "json")

	ctx := WithLogger(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Error("FromContext() should return the stored logger")
	}
}

func TestFromContext_Default(t *testing.T) {
	if got := FromContext(context.Background()); got != Default() {
		t.Error("FromContext() without a logger should return Default()")
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "01J9Z6R4M3")
	if got := RequestIDFromContext(ctx); got != "01J9Z6R4M3" {
		t.Errorf("RequestIDFromContext() = %q, want %q", got, "01J9Z6R4M3")
	}
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", got)
	}
}

func TestL_WithRequestID(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	ctx := WithLogger(context.Background(), l)
	ctx = WithRequestID(ctx, "req-1")
	L(ctx).Info("handled")

	entry := decode(t, buf)
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
}

func TestL_NoIDs(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	L(WithLogger(context.Background(), l)).Info("handled")

	entry := decode(t, buf)
	if _, ok := entry["request_id"]; ok {
		t.Error("request_id must be absent when the context carries none")
	}
}

func TestContextKeyCollision(t *testing.T) {
	ctx := context.WithValue(context.Background(), "meshview.request_id", "plain-string-key")
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("untyped key must not collide, got %q", got)
	}
}
