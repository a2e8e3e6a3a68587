package tools

import (
	"context"
	"testing"
)

func TestToolContextKeys_SessionID(t *testing.T) {
	ctx := context.Background()
	if v := ToolSessionIDFromCtx(ctx); v != "" {
		t.Errorf("expected empty, got %q", v)
	}

	ctx = WithToolSessionID(ctx, "strand-1700000000-abcd1234")
	if v := ToolSessionIDFromCtx(ctx); v != "strand-1700000000-abcd1234" {
		t.Errorf("expected session id, got %q", v)
	}
}

func TestToolContextKeys_KnowledgeBase(t *testing.T) {
	ctx := context.Background()
	if v := ToolKnowledgeBaseFromCtx(ctx); v != "" {
		t.Errorf("expected empty, got %q", v)
	}

	ctx = WithToolKnowledgeBase(ctx, "KB12345678")
	if v := ToolKnowledgeBaseFromCtx(ctx); v != "KB12345678" {
		t.Errorf("expected KB12345678, got %q", v)
	}
}

func TestToolContextKeys_AsyncCB(t *testing.T) {
	ctx := context.Background()
	if v := ToolAsyncCBFromCtx(ctx); v != nil {
		t.Error("expected nil callback")
	}

	called := false
	cb := AsyncCallback(func(ctx context.Context, result *Result) {
		called = true
	})

	ctx = WithToolAsyncCB(ctx, cb)
	got := ToolAsyncCBFromCtx(ctx)
	if got == nil {
		t.Fatal("expected non-nil callback")
	}
	got(ctx, nil)
	if !called {
		t.Error("callback was not invoked")
	}
}

func TestToolContextKeys_MultipleValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithToolSessionID(ctx, "s1")
	ctx = WithToolKnowledgeBase(ctx, "kb1")

	if v := ToolSessionIDFromCtx(ctx); v != "s1" {
		t.Errorf("session: expected s1, got %q", v)
	}
	if v := ToolKnowledgeBaseFromCtx(ctx); v != "kb1" {
		t.Errorf("kb: expected kb1, got %q", v)
	}
}
