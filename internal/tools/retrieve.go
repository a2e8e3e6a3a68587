package tools

import (
	"context"
	"fmt"

	"github.com/strandcli/strand/internal/kb"
)

// RetrieveTool performs semantic retrieval against the configured knowledge
// base, filtering hits below the relevance threshold.
type RetrieveTool struct {
	store kb.Store
}

func NewRetrieveTool(store kb.Store) *RetrieveTool {
	return &RetrieveTool{store: store}
}

func (t *RetrieveTool) Name() string { return "retrieve" }

func (t *RetrieveTool) Description() string {
	return "Retrieve relevant documents from the knowledge base. Results below the score threshold are filtered out."
}

func (t *RetrieveTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "The query to search for.",
			},
			"numberOfResults": map[string]interface{}{
				"type":        "number",
				"description": fmt.Sprintf("Maximum results to return. Default: %d.", kb.DefaultNumResults),
			},
			"score": map[string]interface{}{
				"type":        "number",
				"description": fmt.Sprintf("Minimum relevance score (0-1). Default: %.1f.", kb.DefaultMinScore),
			},
		},
		"required": []string{"text"},
	}
}

func (t *RetrieveTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query, _ := args["text"].(string)
	if query == "" {
		return ErrorResult("text is required")
	}

	opts := kb.RetrieveOptions{}
	if n, ok := args["numberOfResults"].(float64); ok && n > 0 {
		opts.NumResults = int(n)
	}
	if sc, ok := args["score"].(float64); ok && sc > 0 {
		opts.MinScore = sc
	}

	results, err := t.store.Retrieve(ctx, query, opts)
	if err != nil {
		return ErrorResult(fmt.Sprintf("retrieval failed: %v", err))
	}
	if len(results) == 0 {
		return NewResult("No relevant documents found.")
	}
	return NewResult(kb.FormatResults(results))
}
