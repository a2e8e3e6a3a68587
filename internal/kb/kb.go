// Package kb provides knowledge-base retrieval and storage. Two backends
// exist: Amazon Bedrock knowledge bases and a local SQLite database selected
// with the special ID "local".
package kb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalID is the knowledge base ID that selects the SQLite backend.
const LocalID = "local"

const (
	DefaultNumResults = 9
	DefaultMinScore   = 0.4
)

// Document is a unit of stored knowledge.
type Document struct {
	ID      string
	Title   string
	Content string
}

// Result is one retrieval hit.
type Result struct {
	Content    string
	Score      float64
	DocumentID string
}

// RetrieveOptions tune a retrieval call.
type RetrieveOptions struct {
	NumResults int
	MinScore   float64
}

func (o RetrieveOptions) withDefaults() RetrieveOptions {
	if o.NumResults <= 0 {
		o.NumResults = DefaultNumResults
	}
	if o.MinScore <= 0 {
		o.MinScore = DefaultMinScore
	}
	return o
}

// Store is a knowledge base backend.
type Store interface {
	// Retrieve returns documents relevant to the query, best first.
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]Result, error)
	// StoreDocument ingests a document.
	StoreDocument(ctx context.Context, doc Document) error
	// ID returns the knowledge base identifier.
	ID() string
}

// GenerateDocID produces a unique document ID for a stored conversation.
func GenerateDocID() string {
	return fmt.Sprintf("memory_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}

// ConversationTitle derives a document title from the user query.
func ConversationTitle(query string) string {
	title := strings.TrimSpace(query)
	if len(title) > 80 {
		title = title[:80]
	}
	return "Conversation: " + title
}

// FormatConversation renders one agent turn as a knowledge document body.
// The reasoning section only appears when the model produced any.
func FormatConversation(query, reasoning, response string) string {
	if strings.TrimSpace(reasoning) == "" {
		return fmt.Sprintf("User: %s\n\nAssistant: %s", query, response)
	}
	return fmt.Sprintf("User: %s\n\nAssistant Reasoning: %s\n\nAssistant Response: %s",
		query, reasoning, response)
}

// FormatResults renders retrieval hits for injection into the system prompt.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Relevant context from previous conversations:\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] (score %.2f)\n%s\n\n", i+1, r.Score, r.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}
