package agent

import (
	"fmt"
	"unicode/utf8"

	"github.com/strandcli/strand/internal/providers"
)

// Context pruning thresholds. Tool results dominate context growth, so old
// ones are trimmed first and cleared entirely only under pressure.
const (
	keepLastAssistants   = 3
	softTrimRatio        = 0.3
	hardClearRatio       = 0.5
	minPrunableToolChars = 50000
	softTrimMaxChars     = 4000
	softTrimHeadChars    = 1500
	softTrimTailChars    = 1500
	hardClearPlaceholder = "[Old tool result content cleared]"
)

// pruneContextMessages trims old tool results to reduce context window usage.
//
// Two-pass approach:
//  1. Soft trim: keep head + tail of long tool results, drop the middle.
//  2. Hard clear: replace entire tool results with a placeholder.
//
// Only tool results older than keepLastAssistants are eligible. Returns a new
// slice if any changes were made, otherwise the original.
func pruneContextMessages(msgs []providers.Message, contextWindowTokens int) []providers.Message {
	if contextWindowTokens <= 0 || len(msgs) == 0 {
		return msgs
	}

	charWindow := contextWindowTokens * charsPerTokenEstimate

	// Protect the last N assistant messages and everything after them.
	cutoffIndex := findAssistantCutoff(msgs, keepLastAssistants)
	if cutoffIndex < 0 {
		return msgs
	}

	// Never prune before the first user message.
	pruneStart := len(msgs)
	for i, m := range msgs {
		if m.Role == "user" {
			pruneStart = i
			break
		}
	}

	totalChars := 0
	for _, m := range msgs {
		totalChars += estimateMessageChars(m)
	}

	ratio := float64(totalChars) / float64(charWindow)
	if ratio < softTrimRatio {
		return msgs
	}

	var prunableIndexes []int
	for i := pruneStart; i < cutoffIndex; i++ {
		if msgs[i].Role == "tool" && msgs[i].Content != "" {
			prunableIndexes = append(prunableIndexes, i)
		}
	}
	if len(prunableIndexes) == 0 {
		return msgs
	}

	// Pass 1: soft trim long tool results.
	var result []providers.Message
	for _, idx := range prunableIndexes {
		msg := msgs[idx]
		msgChars := estimateMessageChars(msg)
		if msgChars <= softTrimMaxChars {
			continue
		}

		// Lazy copy
		if result == nil {
			result = make([]providers.Message, len(msgs))
			copy(result, msgs)
		}

		head := takeHead(msg.Content, softTrimHeadChars)
		tail := takeTail(msg.Content, softTrimTailChars)
		trimmed := fmt.Sprintf("%s\n...\n%s\n\n[Tool result trimmed: kept first %d chars and last %d chars of %d chars.]",
			head, tail, softTrimHeadChars, softTrimTailChars, msgChars)

		result[idx] = providers.Message{
			Role:       msg.Role,
			Content:    trimmed,
			ToolCallID: msg.ToolCallID,
		}
		totalChars += len(trimmed) - msgChars
	}

	output := msgs
	if result != nil {
		output = result
	}

	ratio = float64(totalChars) / float64(charWindow)
	if ratio < hardClearRatio {
		return output
	}

	prunableChars := 0
	for _, idx := range prunableIndexes {
		prunableChars += estimateMessageChars(output[idx])
	}
	if prunableChars < minPrunableToolChars {
		return output
	}

	// Pass 2: hard clear.
	if result == nil {
		result = make([]providers.Message, len(msgs))
		copy(result, msgs)
		output = result
	}

	for _, idx := range prunableIndexes {
		if ratio < hardClearRatio {
			break
		}
		msg := output[idx]
		beforeChars := estimateMessageChars(msg)

		output[idx] = providers.Message{
			Role:       msg.Role,
			Content:    hardClearPlaceholder,
			ToolCallID: msg.ToolCallID,
		}
		totalChars += len(hardClearPlaceholder) - beforeChars
		ratio = float64(totalChars) / float64(charWindow)
	}

	return output
}

// findAssistantCutoff returns the index of the Nth-from-last assistant
// message. Messages at or after this index are protected from pruning.
// Returns -1 if not enough assistant messages exist.
func findAssistantCutoff(msgs []providers.Message, keepLast int) int {
	if keepLast <= 0 {
		return len(msgs)
	}

	remaining := keepLast
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" {
			remaining--
			if remaining == 0 {
				return i
			}
		}
	}
	return -1
}

func estimateMessageChars(m providers.Message) int {
	return utf8.RuneCountInString(m.Content)
}

// takeHead returns the first n runes of s.
func takeHead(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// takeTail returns the last n runes of s.
func takeTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
