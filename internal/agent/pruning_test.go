package agent

import (
	"strings"
	"testing"

	"github.com/strandcli/strand/internal/providers"
)

func toolMsg(id string, size int) providers.Message {
	return providers.Message{Role: "tool", ToolCallID: id, Content: strings.Repeat("x", size)}
}

func TestPrune_NoWindowNoChange(t *testing.T) {
	msgs := []providers.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	out := pruneContextMessages(msgs, 0)
	if len(out) != 2 || out[0].Content != "hi" {
		t.Errorf("messages should be untouched without a context window")
	}
}

func TestPrune_UnderThresholdNoChange(t *testing.T) {
	msgs := []providers.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "a"},
		toolMsg("c1", 100),
		{Role: "assistant", Content: "b"},
		{Role: "assistant", Content: "c"},
		{Role: "assistant", Content: "d"},
	}
	out := pruneContextMessages(msgs, 100000)
	if &out[0] != &msgs[0] {
		t.Error("under threshold the original slice should be returned")
	}
}

func TestPrune_SoftTrimLongToolResult(t *testing.T) {
	msgs := []providers.Message{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "calling tool"},
		toolMsg("c1", 10000),
		{Role: "assistant", Content: "a1"},
		{Role: "assistant", Content: "a2"},
		{Role: "assistant", Content: "a3"},
	}

	out := pruneContextMessages(msgs, 5000)
	if len(out) != len(msgs) {
		t.Fatalf("message count changed: %d", len(out))
	}
	trimmed := out[2].Content
	if !strings.Contains(trimmed, "[Tool result trimmed") {
		t.Fatalf("expected soft trim marker, got %d chars", len(trimmed))
	}
	if len(trimmed) >= 10000 {
		t.Error("trimmed content should be shorter than original")
	}
	if out[2].ToolCallID != "c1" {
		t.Error("tool call ID must survive trimming")
	}
	if len(msgs[2].Content) != 10000 {
		t.Error("original slice must not be mutated")
	}
}

func TestPrune_HardClearUnderPressure(t *testing.T) {
	msgs := []providers.Message{{Role: "user", Content: "q"}}
	for i := 0; i < 20; i++ {
		msgs = append(msgs,
			providers.Message{Role: "assistant", Content: "calling"},
			toolMsg("c", 4000),
		)
	}
	msgs = append(msgs,
		providers.Message{Role: "assistant", Content: "a1"},
		providers.Message{Role: "assistant", Content: "a2"},
		providers.Message{Role: "assistant", Content: "final"},
	)

	out := pruneContextMessages(msgs, 30000)

	cleared := 0
	for _, m := range out {
		if m.Role == "tool" && m.Content == hardClearPlaceholder {
			cleared++
		}
	}
	if cleared == 0 {
		t.Fatal("expected some tool results to be cleared")
	}
	if cleared == 20 {
		t.Error("clearing should stop once under the pressure threshold")
	}
	// Oldest results go first.
	if out[2].Content != hardClearPlaceholder {
		t.Error("oldest tool result should be cleared first")
	}
}

func TestPrune_ProtectsRecentAssistantTurns(t *testing.T) {
	msgs := []providers.Message{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a1"},
		{Role: "assistant", Content: "a2"},
		toolMsg("recent", 100000),
		{Role: "assistant", Content: "a3"},
	}
	// Heavy pressure, but the tool result sits after the cutoff.
	out := pruneContextMessages(msgs, 1000)
	if len(out[3].Content) != 100000 {
		t.Error("tool results inside the protected tail must not be pruned")
	}
}

func TestFindAssistantCutoff(t *testing.T) {
	msgs := []providers.Message{
		{Role: "user"},
		{Role: "assistant"},
		{Role: "tool"},
		{Role: "assistant"},
		{Role: "assistant"},
	}
	if got := findAssistantCutoff(msgs, 3); got != 1 {
		t.Errorf("expected cutoff 1, got %d", got)
	}
	if got := findAssistantCutoff(msgs, 5); got != -1 {
		t.Errorf("expected -1 with too few assistants, got %d", got)
	}
	if got := findAssistantCutoff(msgs, 0); got != len(msgs) {
		t.Errorf("expected len(msgs) for keepLast=0, got %d", got)
	}
}

func TestTakeHeadTail(t *testing.T) {
	s := "héllo wörld"
	if takeHead(s, 4) != "héll" {
		t.Errorf("takeHead: %q", takeHead(s, 4))
	}
	if takeTail(s, 4) != "örld" {
		t.Errorf("takeTail: %q", takeTail(s, 4))
	}
	if takeHead(s, 100) != s || takeTail(s, 100) != s {
		t.Error("oversized n should return the whole string")
	}
}

func TestEstimateTokens(t *testing.T) {
	if estimateTokens("") != 0 {
		t.Error("empty string should estimate zero tokens")
	}
	n := estimateTokens("the quick brown fox jumps over the lazy dog")
	if n <= 0 || n > 44 {
		t.Errorf("implausible token estimate %d", n)
	}

	msgs := []providers.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", ToolCalls: []providers.ToolCall{{Name: "shell"}}},
	}
	if estimateConversationTokens(msgs) <= estimateTokens("hello") {
		t.Error("tool calls should add to the conversation estimate")
	}
}
