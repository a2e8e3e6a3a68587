package tools

import "regexp"

const redactedPlaceholder = "[REDACTED]"

// Token shapes worth catching before tool output reaches the model or the
// terminal. The shell and http_request tools routinely dump environment
// blocks, config files and response headers, which is where keys leak from.
var secretPatterns = []*regexp.Regexp{
	// Anthropic keys also start with sk- but carry hyphens, so they get
	// their own pattern ahead of the OpenAI shape.
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	// GitHub tokens: personal, oauth, user-to-server, server, refresh.
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36}`),
	// AWS access key IDs.
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	// Catch-all for credential assignments in config or env dumps.
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|bearer|authorization)\s*[:=]\s*["']?\S{8,}["']?`),
}

// ScrubCredentials masks anything in text that looks like a credential.
func ScrubCredentials(text string) string {
	for _, pat := range secretPatterns {
		text = pat.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
