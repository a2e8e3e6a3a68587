package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strandcli/strand/internal/kb"
)

const storeTimeout = 60 * time.Second

// StoreInKBTool saves content into the knowledge base. Ingestion runs in the
// background so the conversation is not blocked on indexing; the async
// callback (when set) reports completion or failure.
type StoreInKBTool struct {
	store kb.Store
}

func NewStoreInKBTool(store kb.Store) *StoreInKBTool {
	return &StoreInKBTool{store: store}
}

func (t *StoreInKBTool) Name() string { return "store_in_kb" }

func (t *StoreInKBTool) Description() string {
	return "Store content in the knowledge base for later retrieval. Storage happens in the background."
}

func (t *StoreInKBTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "The content to store.",
			},
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Optional document title.",
			},
		},
		"required": []string{"content"},
	}
}

func (t *StoreInKBTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	content, _ := args["content"].(string)
	if content == "" {
		return ErrorResult("content is required")
	}
	title, _ := args["title"].(string)
	if title == "" {
		title = kb.ConversationTitle(content)
	}

	doc := kb.Document{
		ID:      kb.GenerateDocID(),
		Title:   title,
		Content: content,
	}
	asyncCB := ToolAsyncCBFromCtx(ctx)

	go func() {
		// Detached from the call context: storage outlives the tool call.
		storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		err := t.store.StoreDocument(storeCtx, doc)
		if err != nil {
			slog.Warn("background knowledge base storage failed", "doc_id", doc.ID, "error", err)
		} else {
			slog.Debug("stored document in knowledge base", "doc_id", doc.ID, "kb", t.store.ID())
		}

		if asyncCB != nil {
			result := SilentResult(fmt.Sprintf("Stored document %s", doc.ID))
			if err != nil {
				result = ErrorResult(fmt.Sprintf("storage of %s failed: %v", doc.ID, err))
			}
			asyncCB(storeCtx, result)
		}
	}()

	return AsyncResult(fmt.Sprintf("Storing document %s in knowledge base %s in the background.", doc.ID, t.store.ID()))
}
