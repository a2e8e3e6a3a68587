package kb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLocalStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "d1", Title: "Conversation: deploy", Content: "User: how do I deploy the service\n\nAssistant Response: use the deploy script"},
		{ID: "d2", Title: "Conversation: pets", Content: "User: my cat is named Whiskers\n\nAssistant Response: noted"},
	}
	for _, d := range docs {
		if err := s.StoreDocument(ctx, d); err != nil {
			t.Fatalf("store %s: %v", d.ID, err)
		}
	}
	if s.Count() != 2 {
		t.Errorf("count: %d", s.Count())
	}

	results, err := s.Retrieve(ctx, "deploy the service", RetrieveOptions{MinScore: 0.01})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one hit")
	}
	if results[0].DocumentID != "d1" {
		t.Errorf("best hit: %q", results[0].DocumentID)
	}
	if !strings.Contains(results[0].Content, "deploy script") {
		t.Errorf("content: %q", results[0].Content)
	}
}

func TestLocalStore_ReplaceDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.StoreDocument(ctx, Document{ID: "d1", Content: "original zebra text"}); err != nil {
		t.Fatal(err)
	}
	if err := s.StoreDocument(ctx, Document{ID: "d1", Content: "replacement giraffe text"}); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 1 {
		t.Errorf("expected 1 document after replace, got %d", s.Count())
	}

	results, err := s.Retrieve(ctx, "zebra", RetrieveOptions{MinScore: 0.01})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("stale FTS entry survived replace: %+v", results)
	}
}

func TestLocalStore_QueryWithSpecialChars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.StoreDocument(ctx, Document{ID: "d1", Content: "configuring the http server"}); err != nil {
		t.Fatal(err)
	}
	// Raw hyphens and quotes are FTS5 syntax; must not error
	if _, err := s.Retrieve(ctx, `http-server "quoted" -flag`, RetrieveOptions{}); err != nil {
		t.Fatalf("special chars broke the query: %v", err)
	}
}

func TestFormatConversation(t *testing.T) {
	got := FormatConversation("what is 2+2", "simple arithmetic", "4")
	want := "User: what is 2+2\n\nAssistant Reasoning: simple arithmetic\n\nAssistant Response: 4"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatConversation_NoReasoning(t *testing.T) {
	got := FormatConversation("Test query", "", "Test response")
	want := "User: Test query\n\nAssistant: Test response"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConversationTitle(t *testing.T) {
	if got := ConversationTitle("  hello  "); got != "Conversation: hello" {
		t.Errorf("title: %q", got)
	}
	long := strings.Repeat("x", 200)
	got := ConversationTitle(long)
	if len(got) != len("Conversation: ")+80 {
		t.Errorf("long title not truncated: %d chars", len(got))
	}
}

func TestGenerateDocID(t *testing.T) {
	a, b := GenerateDocID(), GenerateDocID()
	if !strings.HasPrefix(a, "memory_") {
		t.Errorf("prefix: %q", a)
	}
	if a == b {
		t.Error("doc IDs should be unique")
	}
}

func TestFormatResults(t *testing.T) {
	if got := FormatResults(nil); got != "" {
		t.Errorf("empty results should format to empty string, got %q", got)
	}
	got := FormatResults([]Result{{Content: "ctx one", Score: 0.9}})
	if !strings.Contains(got, "ctx one") || !strings.Contains(got, "0.90") {
		t.Errorf("formatted: %q", got)
	}
}
