package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/strandcli/strand/internal/providers"
)

const charsPerTokenEstimate = 4

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// estimateTokens counts tokens with the cl100k_base encoding, falling back
// to a chars/4 estimate when the encoding is unavailable (offline first run).
func estimateTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return len(text) / charsPerTokenEstimate
	}
	return len(encoding.Encode(text, nil, nil))
}

// estimateConversationTokens sums token estimates over all message content.
func estimateConversationTokens(msgs []providers.Message) int {
	total := 0
	for _, m := range msgs {
		total += estimateTokens(m.Content)
		for _, tc := range m.ToolCalls {
			total += estimateTokens(tc.Name) + 20
		}
	}
	return total
}
