package sessions

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	sessionPrefix = "session_"
	agentPrefix   = "agent_"
	messagePrefix = "message_"

	// DefaultAgentName is the agent directory used for the interactive agent.
	DefaultAgentName = "default"

	// DisplayLimit is how many messages are replayed when resuming.
	DisplayLimit = 10

	maxSessionIDLen = 255
	maxPathLen      = 4096
)

// GenerateSessionID returns a unique session ID built from the current
// timestamp and a short random suffix.
func GenerateSessionID() string {
	return fmt.Sprintf("strand-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}

// ValidateSessionID reports whether an ID is safe to use as a directory name.
func ValidateSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLen {
		return false
	}
	if strings.ContainsAny(id, "/\\\x00") || strings.Contains(id, "..") {
		return false
	}
	if strings.HasPrefix(id, ".") {
		return false
	}
	return true
}

// ValidateSessionPath reports whether a base path is usable.
func ValidateSessionPath(path string) bool {
	return path != "" && len(path) < maxPathLen
}
