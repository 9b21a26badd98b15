package ctxutil

import (
	"context"
	"testing"
)

func TestUserID(t *testing.T) {
	ctx := context.Background()

	if got := GetUserID(ctx); got != "" {
		t.Errorf("expected empty user ID, got %q", got)
	}

	ctx = WithUserID(ctx, "user-123")
	if got := GetUserID(ctx); got != "user-123" {
		t.Errorf("expected 'user-123', got %q", got)
	}
}

func TestSessionID(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-abc")

	if got := GetSessionID(ctx); got != "sess-abc" {
		t.Errorf("expected 'sess-abc', got %q", got)
	}

	if got := GetSessionID(context.Background()); got != "" {
		t.Errorf("expected empty session ID, got %q", got)
	}
}

func TestRequestID(t *testing.T) {
	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("expected no request ID in empty context")
	}

	ctx := WithRequestID(context.Background(), "req-1")
	requestID, ok := GetRequestID(ctx)
	if !ok || requestID != "req-1" {
		t.Errorf("expected 'req-1', got %q (ok=%v)", requestID, ok)
	}
}
