package agent

import "time"

// EventType identifies a loop lifecycle event.
type EventType string

const (
	EventModelChunk EventType = "model_chunk"
	EventReasoning  EventType = "reasoning"
	EventToolStart  EventType = "tool_start"
	EventToolResult EventType = "tool_result"
	EventRetrieve   EventType = "retrieve"
	EventError      EventType = "error"
	EventDone       EventType = "done"
)

// Event is emitted by the loop as a run progresses. Text carries streamed
// model output or tool output depending on the type.
type Event struct {
	Type     EventType
	Text     string
	ToolName string
	Duration time.Duration
	IsError  bool
}

// RunResult is the outcome of one agent run.
type RunResult struct {
	Response   string
	Reasoning  string
	Iterations int
}
