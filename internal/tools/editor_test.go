package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func editorExec(t *testing.T, tool *EditorTool, args map[string]interface{}) *Result {
	t.Helper()
	return tool.Execute(context.Background(), args)
}

func TestEditor_CreateAndView(t *testing.T) {
	tool := NewEditorTool()
	path := filepath.Join(t.TempDir(), "notes.txt")

	result := editorExec(t, tool, map[string]interface{}{
		"command":   "create",
		"path":      path,
		"file_text": "line one\nline two\nline three",
	})
	if result.IsError {
		t.Fatalf("create failed: %s", result.ForLLM)
	}

	result = editorExec(t, tool, map[string]interface{}{
		"command": "view",
		"path":    path,
	})
	if result.IsError {
		t.Fatalf("view failed: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "line two") {
		t.Errorf("view output missing content: %q", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "1\t") {
		t.Errorf("view output should be line-numbered: %q", result.ForLLM)
	}
}

func TestEditor_ViewRange(t *testing.T) {
	tool := NewEditorTool()
	path := filepath.Join(t.TempDir(), "r.txt")
	os.WriteFile(path, []byte("a\nb\nc\nd\ne"), 0o644)

	result := editorExec(t, tool, map[string]interface{}{
		"command":    "view",
		"path":       path,
		"view_range": []interface{}{float64(2), float64(4)},
	})
	if result.IsError {
		t.Fatalf("view failed: %s", result.ForLLM)
	}
	if strings.Contains(result.ForLLM, "\ta") || strings.Contains(result.ForLLM, "\te") {
		t.Errorf("range should exclude lines outside [2,4]: %q", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "b") || !strings.Contains(result.ForLLM, "d") {
		t.Errorf("range should include lines 2-4: %q", result.ForLLM)
	}
}

func TestEditor_ViewDirectory(t *testing.T) {
	tool := NewEditorTool()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f1.txt"), []byte("x"), 0o644)
	os.Mkdir(filepath.Join(dir, "sub"), 0o755)

	result := editorExec(t, tool, map[string]interface{}{
		"command": "view",
		"path":    dir,
	})
	if result.IsError {
		t.Fatalf("view failed: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "f1.txt") || !strings.Contains(result.ForLLM, "sub") {
		t.Errorf("directory listing incomplete: %q", result.ForLLM)
	}
}

func TestEditor_StrReplace(t *testing.T) {
	tool := NewEditorTool()
	path := filepath.Join(t.TempDir(), "s.txt")
	os.WriteFile(path, []byte("hello old world"), 0o644)

	result := editorExec(t, tool, map[string]interface{}{
		"command": "str_replace",
		"path":    path,
		"old_str": "old",
		"new_str": "new",
	})
	if result.IsError {
		t.Fatalf("str_replace failed: %s", result.ForLLM)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "hello new world" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestEditor_StrReplaceAmbiguous(t *testing.T) {
	tool := NewEditorTool()
	path := filepath.Join(t.TempDir(), "a.txt")
	os.WriteFile(path, []byte("dup dup"), 0o644)

	result := editorExec(t, tool, map[string]interface{}{
		"command": "str_replace",
		"path":    path,
		"old_str": "dup",
		"new_str": "x",
	})
	if !result.IsError {
		t.Error("expected error for ambiguous match")
	}
	if !strings.Contains(result.ForLLM, "2") {
		t.Errorf("error should report occurrence count: %q", result.ForLLM)
	}
}

func TestEditor_StrReplaceNotFound(t *testing.T) {
	tool := NewEditorTool()
	path := filepath.Join(t.TempDir(), "n.txt")
	os.WriteFile(path, []byte("content"), 0o644)

	result := editorExec(t, tool, map[string]interface{}{
		"command": "str_replace",
		"path":    path,
		"old_str": "missing",
		"new_str": "x",
	})
	if !result.IsError {
		t.Error("expected error when old_str absent")
	}
}

func TestEditor_Insert(t *testing.T) {
	tool := NewEditorTool()
	path := filepath.Join(t.TempDir(), "i.txt")
	os.WriteFile(path, []byte("first\nthird"), 0o644)

	result := editorExec(t, tool, map[string]interface{}{
		"command":     "insert",
		"path":        path,
		"insert_line": float64(1),
		"new_str":     "second",
	})
	if result.IsError {
		t.Fatalf("insert failed: %s", result.ForLLM)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "first\nsecond\nthird" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestEditor_InsertAtTop(t *testing.T) {
	tool := NewEditorTool()
	path := filepath.Join(t.TempDir(), "t.txt")
	os.WriteFile(path, []byte("body"), 0o644)

	result := editorExec(t, tool, map[string]interface{}{
		"command":     "insert",
		"path":        path,
		"insert_line": float64(0),
		"new_str":     "header",
	})
	if result.IsError {
		t.Fatalf("insert failed: %s", result.ForLLM)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "header\n") {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestEditor_UndoEdit(t *testing.T) {
	tool := NewEditorTool()
	path := filepath.Join(t.TempDir(), "u.txt")
	os.WriteFile(path, []byte("original"), 0o644)

	editorExec(t, tool, map[string]interface{}{
		"command": "str_replace",
		"path":    path,
		"old_str": "original",
		"new_str": "modified",
	})

	result := editorExec(t, tool, map[string]interface{}{
		"command": "undo_edit",
		"path":    path,
	})
	if result.IsError {
		t.Fatalf("undo failed: %s", result.ForLLM)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("undo did not restore content: %q", data)
	}
}

func TestEditor_UndoWithoutBackup(t *testing.T) {
	tool := NewEditorTool()
	result := editorExec(t, tool, map[string]interface{}{
		"command": "undo_edit",
		"path":    filepath.Join(t.TempDir(), "never.txt"),
	})
	if !result.IsError {
		t.Error("expected error when no backup exists")
	}
}

func TestEditor_UnknownCommand(t *testing.T) {
	tool := NewEditorTool()
	result := editorExec(t, tool, map[string]interface{}{
		"command": "destroy",
		"path":    "/tmp/x",
	})
	if !result.IsError {
		t.Error("expected error for unknown command")
	}
}
