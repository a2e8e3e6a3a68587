package sessions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/strandcli/strand/internal/providers"
)

// sessionRecord is the on-disk shape of session.json.
type sessionRecord struct {
	SessionID   string `json:"session_id"`
	SessionType string `json:"session_type"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// agentRecord is the on-disk shape of agent.json.
type agentRecord struct {
	AgentID   string `json:"agent_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// contentBlock mirrors the stored message content structure: plain text,
// a tool invocation or a tool result.
type contentBlock struct {
	Text       string           `json:"text,omitempty"`
	ToolUse    *toolUseBlock    `json:"toolUse,omitempty"`
	ToolResult *toolResultBlock `json:"toolResult,omitempty"`
}

type toolUseBlock struct {
	ToolUseID string                 `json:"toolUseId"`
	Name      string                 `json:"name"`
	Input     map[string]interface{} `json:"input"`
}

type toolResultBlock struct {
	ToolUseID string         `json:"toolUseId"`
	Content   []contentBlock `json:"content"`
	Status    string         `json:"status,omitempty"`
}

// messageRecord is the on-disk shape of message_<N>.json.
type messageRecord struct {
	MessageID int            `json:"message_id"`
	Role      string         `json:"role"`
	Content   []contentBlock `json:"content"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// Info summarizes a stored session.
type Info struct {
	SessionID     string
	CreatedAt     time.Time
	TotalMessages int
	Path          string
}

// Manager persists conversation history under
// <base>/session_<id>/agents/agent_<name>/messages/message_<N>.json.
type Manager struct {
	baseDir   string
	sessionID string
	agentName string
	nextID    int
}

// Open creates or resumes a session. A missing session directory is created;
// an existing one is resumed with message numbering continuing where it
// stopped.
func Open(baseDir, sessionID string) (*Manager, error) {
	if !ValidateSessionPath(baseDir) {
		return nil, fmt.Errorf("invalid session path %q", baseDir)
	}
	if sessionID == "" {
		sessionID = GenerateSessionID()
	} else if !ValidateSessionID(sessionID) {
		return nil, fmt.Errorf("invalid session ID %q", sessionID)
	}

	m := &Manager{baseDir: baseDir, sessionID: sessionID, agentName: DefaultAgentName}
	if err := m.ensureLayout(); err != nil {
		return nil, err
	}

	ids, err := m.messageIDs()
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		m.nextID = ids[len(ids)-1] + 1
	}
	return m, nil
}

func (m *Manager) SessionID() string { return m.sessionID }

func (m *Manager) sessionDir() string {
	return filepath.Join(m.baseDir, sessionPrefix+m.sessionID)
}

func (m *Manager) messagesDir() string {
	return filepath.Join(m.sessionDir(), "agents", agentPrefix+m.agentName, "messages")
}

func (m *Manager) ensureLayout() error {
	if err := os.MkdirAll(m.messagesDir(), 0o755); err != nil {
		return fmt.Errorf("create session directories: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	sessionFile := filepath.Join(m.sessionDir(), "session.json")
	if _, err := os.Stat(sessionFile); os.IsNotExist(err) {
		rec := sessionRecord{
			SessionID:   m.sessionID,
			SessionType: "AGENT",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := writeJSON(sessionFile, rec); err != nil {
			return err
		}
	}

	agentFile := filepath.Join(m.sessionDir(), "agents", agentPrefix+m.agentName, "agent.json")
	if _, err := os.Stat(agentFile); os.IsNotExist(err) {
		rec := agentRecord{AgentID: m.agentName, CreatedAt: now, UpdatedAt: now}
		if err := writeJSON(agentFile, rec); err != nil {
			return err
		}
	}
	return nil
}

// Append persists a message at the next sequence number.
func (m *Manager) Append(msg providers.Message) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rec := messageRecord{
		MessageID: m.nextID,
		Role:      msg.Role,
		Content:   toContentBlocks(msg),
		CreatedAt: now,
		UpdatedAt: now,
	}

	path := filepath.Join(m.messagesDir(), fmt.Sprintf("%s%d.json", messagePrefix, rec.MessageID))
	if err := writeJSON(path, rec); err != nil {
		return err
	}
	m.nextID++
	return nil
}

// Messages loads the full history in sequence order.
func (m *Manager) Messages() ([]providers.Message, error) {
	ids, err := m.messageIDs()
	if err != nil {
		return nil, err
	}

	msgs := make([]providers.Message, 0, len(ids))
	for _, id := range ids {
		path := filepath.Join(m.messagesDir(), fmt.Sprintf("%s%d.json", messagePrefix, id))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read message %d: %w", id, err)
		}
		var rec messageRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Warn("skipping corrupt session message", "path", path, "error", err)
			continue
		}
		msgs = append(msgs, fromRecord(rec))
	}
	return msgs, nil
}

// Recent returns the last n messages of the history.
func (m *Manager) Recent(n int) ([]providers.Message, error) {
	msgs, err := m.Messages()
	if err != nil {
		return nil, err
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs, nil
}

func (m *Manager) messageIDs() ([]int, error) {
	entries, err := os.ReadDir(m.messagesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read messages dir: %w", err)
	}

	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, messagePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, messagePrefix), ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Exists reports whether a session with a session.json is present.
func Exists(baseDir, sessionID string) bool {
	if !ValidateSessionPath(baseDir) || !ValidateSessionID(sessionID) {
		return false
	}
	_, err := os.Stat(filepath.Join(baseDir, sessionPrefix+sessionID, "session.json"))
	return err == nil
}

// List returns the IDs of all sessions under baseDir, sorted.
func List(baseDir string) []string {
	if !ValidateSessionPath(baseDir) {
		return nil
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), sessionPrefix) {
			continue
		}
		id := strings.TrimPrefix(e.Name(), sessionPrefix)
		if ValidateSessionID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Delete removes a stored session and all its messages.
func Delete(baseDir, sessionID string) error {
	if !Exists(baseDir, sessionID) {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return os.RemoveAll(filepath.Join(baseDir, sessionPrefix+sessionID))
}

// GetInfo returns creation time, message count and path for a session.
func GetInfo(baseDir, sessionID string) (*Info, error) {
	if !Exists(baseDir, sessionID) {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	dir := filepath.Join(baseDir, sessionPrefix+sessionID)

	createdAt := time.Now()
	data, err := os.ReadFile(filepath.Join(dir, "session.json"))
	if err == nil {
		var rec sessionRecord
		if json.Unmarshal(data, &rec) == nil {
			if t, err := time.Parse(time.RFC3339Nano, rec.CreatedAt); err == nil {
				createdAt = t
			}
		}
	}

	total := 0
	agentsDir := filepath.Join(dir, "agents")
	agents, _ := os.ReadDir(agentsDir)
	for _, a := range agents {
		if !a.IsDir() {
			continue
		}
		msgs, _ := os.ReadDir(filepath.Join(agentsDir, a.Name(), "messages"))
		for _, f := range msgs {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
				total++
			}
		}
	}

	return &Info{
		SessionID:     sessionID,
		CreatedAt:     createdAt,
		TotalMessages: total,
		Path:          dir,
	}, nil
}

func toContentBlocks(msg providers.Message) []contentBlock {
	var blocks []contentBlock
	if msg.Role == "tool" {
		status := "success"
		blocks = append(blocks, contentBlock{ToolResult: &toolResultBlock{
			ToolUseID: msg.ToolCallID,
			Content:   []contentBlock{{Text: msg.Content}},
			Status:    status,
		}})
		return blocks
	}
	if msg.Content != "" || len(msg.ToolCalls) == 0 {
		blocks = append(blocks, contentBlock{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, contentBlock{ToolUse: &toolUseBlock{
			ToolUseID: tc.ID,
			Name:      tc.Name,
			Input:     tc.Arguments,
		}})
	}
	return blocks
}

func fromRecord(rec messageRecord) providers.Message {
	msg := providers.Message{Role: rec.Role}
	var text strings.Builder
	for _, block := range rec.Content {
		switch {
		case block.ToolUse != nil:
			msg.ToolCalls = append(msg.ToolCalls, providers.ToolCall{
				ID:        block.ToolUse.ToolUseID,
				Name:      block.ToolUse.Name,
				Arguments: block.ToolUse.Input,
			})
		case block.ToolResult != nil:
			msg.Role = "tool"
			msg.ToolCallID = block.ToolResult.ToolUseID
			for _, inner := range block.ToolResult.Content {
				text.WriteString(inner.Text)
			}
		default:
			text.WriteString(block.Text)
		}
	}
	msg.Content = text.String()
	return msg
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
