package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const editorMaxViewBytes = 256 * 1024

// EditorTool performs file inspection and edits: view with line numbers,
// create, unique string replacement, line insertion and undo. Each path
// keeps a one-deep backup so the last edit can be reverted.
type EditorTool struct {
	mu      sync.Mutex
	backups map[string]string
}

func NewEditorTool() *EditorTool {
	return &EditorTool{backups: make(map[string]string)}
}

func (t *EditorTool) Name() string { return "editor" }

func (t *EditorTool) Description() string {
	return "View and edit files. Commands: view (numbered lines, optional range), create, str_replace (old_str must appear exactly once), insert (after insert_line), undo_edit."
}

func (t *EditorTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The operation to perform.",
				"enum":        []string{"view", "create", "str_replace", "insert", "undo_edit"},
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file.",
			},
			"file_text": map[string]interface{}{
				"type":        "string",
				"description": "Content for create.",
			},
			"old_str": map[string]interface{}{
				"type":        "string",
				"description": "Exact text to replace (str_replace).",
			},
			"new_str": map[string]interface{}{
				"type":        "string",
				"description": "Replacement text (str_replace) or text to insert (insert).",
			},
			"insert_line": map[string]interface{}{
				"type":        "number",
				"description": "Line number after which to insert (0 = top of file).",
			},
			"view_range": map[string]interface{}{
				"type":        "array",
				"description": "Two-element [start, end] line range for view. End -1 means end of file.",
				"items":       map[string]interface{}{"type": "number"},
			},
		},
		"required": []string{"command", "path"},
	}
}

func (t *EditorTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	command, _ := args["command"].(string)
	path, _ := args["path"].(string)
	if path == "" {
		return ErrorResult("path is required")
	}

	switch command {
	case "view":
		return t.view(path, args)
	case "create":
		return t.create(path, args)
	case "str_replace":
		return t.strReplace(path, args)
	case "insert":
		return t.insert(path, args)
	case "undo_edit":
		return t.undo(path)
	default:
		return ErrorResult(fmt.Sprintf("unknown command %q (valid: view, create, str_replace, insert, undo_edit)", command))
	}
}

func (t *EditorTool) view(path string, args map[string]interface{}) *Result {
	info, err := os.Stat(path)
	if err != nil {
		return ErrorResult(fmt.Sprintf("stat %s: %v", path, err))
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return ErrorResult(fmt.Sprintf("read dir %s: %v", path, err))
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Directory %s:\n", path)
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			sb.WriteString(name + "\n")
		}
		return NewResult(sb.String())
	}

	if info.Size() > editorMaxViewBytes {
		return ErrorResult(fmt.Sprintf("file too large to view (%d bytes); use shell tools to inspect it", info.Size()))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ErrorResult(fmt.Sprintf("read %s: %v", path, err))
	}

	lines := strings.Split(string(data), "\n")
	start, end := 1, len(lines)
	if vr, ok := args["view_range"].([]interface{}); ok && len(vr) == 2 {
		if s, ok := vr[0].(float64); ok {
			start = int(s)
		}
		if e, ok := vr[1].(float64); ok && int(e) != -1 {
			end = int(e)
		}
		if start < 1 || start > len(lines) || end < start {
			return ErrorResult(fmt.Sprintf("invalid view_range [%d, %d] for %d-line file", start, end, len(lines)))
		}
		if end > len(lines) {
			end = len(lines)
		}
	}

	var sb strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&sb, "%6d\t%s\n", i, lines[i-1])
	}
	return NewResult(sb.String())
}

func (t *EditorTool) create(path string, args map[string]interface{}) *Result {
	content, _ := args["file_text"].(string)

	if prev, err := os.ReadFile(path); err == nil {
		t.saveBackup(path, string(prev))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ErrorResult(fmt.Sprintf("create dir %s: %v", dir, err))
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("write %s: %v", path, err))
	}
	return NewResult(fmt.Sprintf("Created %s (%d bytes)", path, len(content)))
}

func (t *EditorTool) strReplace(path string, args map[string]interface{}) *Result {
	oldStr, _ := args["old_str"].(string)
	newStr, _ := args["new_str"].(string)
	if oldStr == "" {
		return ErrorResult("old_str is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ErrorResult(fmt.Sprintf("read %s: %v", path, err))
	}
	content := string(data)

	switch count := strings.Count(content, oldStr); {
	case count == 0:
		return ErrorResult(fmt.Sprintf("old_str not found in %s", path))
	case count > 1:
		return ErrorResult(fmt.Sprintf("old_str appears %d times in %s; provide more context to make it unique", count, path))
	}

	t.saveBackup(path, content)
	updated := strings.Replace(content, oldStr, newStr, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("write %s: %v", path, err))
	}
	return NewResult(fmt.Sprintf("Replaced text in %s", path))
}

func (t *EditorTool) insert(path string, args map[string]interface{}) *Result {
	newStr, _ := args["new_str"].(string)
	lineF, ok := args["insert_line"].(float64)
	if !ok {
		return ErrorResult("insert_line is required")
	}
	line := int(lineF)

	data, err := os.ReadFile(path)
	if err != nil {
		return ErrorResult(fmt.Sprintf("read %s: %v", path, err))
	}
	content := string(data)
	lines := strings.Split(content, "\n")
	if line < 0 || line > len(lines) {
		return ErrorResult(fmt.Sprintf("insert_line %d out of range (file has %d lines)", line, len(lines)))
	}

	t.saveBackup(path, content)
	updated := make([]string, 0, len(lines)+1)
	updated = append(updated, lines[:line]...)
	updated = append(updated, newStr)
	updated = append(updated, lines[line:]...)
	if err := os.WriteFile(path, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("write %s: %v", path, err))
	}
	return NewResult(fmt.Sprintf("Inserted text after line %d in %s", line, path))
}

func (t *EditorTool) undo(path string) *Result {
	t.mu.Lock()
	prev, ok := t.backups[path]
	if ok {
		delete(t.backups, path)
	}
	t.mu.Unlock()

	if !ok {
		return ErrorResult(fmt.Sprintf("no edit to undo for %s", path))
	}
	if err := os.WriteFile(path, []byte(prev), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("restore %s: %v", path, err))
	}
	return NewResult(fmt.Sprintf("Reverted last edit to %s", path))
}

func (t *EditorTool) saveBackup(path, content string) {
	t.mu.Lock()
	t.backups[path] = content
	t.mu.Unlock()
}
