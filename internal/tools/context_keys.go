package tools

import "context"

// Per-call values are injected into ctx so tool instances stay free of
// mutable fields and are safe for concurrent execution.

type ctxKey int

const (
	ctxKeySessionID ctxKey = iota
	ctxKeyKnowledgeBase
	ctxKeyAsyncCB
)

// WithToolSessionID attaches the active session ID for the call.
func WithToolSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

// ToolSessionIDFromCtx returns the session ID, or "" when none is set.
func ToolSessionIDFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySessionID).(string)
	return v
}

// WithToolKnowledgeBase attaches the active knowledge base ID for the call.
func WithToolKnowledgeBase(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyKnowledgeBase, id)
}

// ToolKnowledgeBaseFromCtx returns the knowledge base ID, or "" when none.
func ToolKnowledgeBaseFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyKnowledgeBase).(string)
	return v
}

// WithToolAsyncCB attaches the completion callback for async tools.
func WithToolAsyncCB(ctx context.Context, cb AsyncCallback) context.Context {
	return context.WithValue(ctx, ctxKeyAsyncCB, cb)
}

// ToolAsyncCBFromCtx returns the async callback, or nil when none is set.
func ToolAsyncCBFromCtx(ctx context.Context) AsyncCallback {
	v, _ := ctx.Value(ctxKeyAsyncCB).(AsyncCallback)
	return v
}
