package tools

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DynamicLoader scans a directory for *.js tool definitions and registers
// them with the registry. Reload drops previously loaded dynamic tools and
// re-scans, so edits to a tool file take effect without a restart.
type DynamicLoader struct {
	registry *Registry
	dir      string

	mu     sync.Mutex
	loaded []string
}

func NewDynamicLoader(registry *Registry, dir string) *DynamicLoader {
	return &DynamicLoader{registry: registry, dir: dir}
}

// Dir returns the watched tools directory.
func (l *DynamicLoader) Dir() string { return l.dir }

// Load scans the tools directory and registers every valid definition.
// A missing directory is not an error; broken scripts are skipped with a
// warning so one bad file cannot take down the catalog.
func (l *DynamicLoader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked()
}

// Reload unregisters all previously loaded dynamic tools and scans again.
func (l *DynamicLoader) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, name := range l.loaded {
		l.registry.Unregister(name)
	}
	l.loaded = nil
	return l.loadLocked()
}

// Loaded returns the names of currently registered dynamic tools.
func (l *DynamicLoader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.loaded))
	copy(out, l.loaded)
	return out
}

func (l *DynamicLoader) loadLocked() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read tools directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".js") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, fname := range names {
		path := filepath.Join(l.dir, fname)
		source, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable tool file", "path", path, "error", err)
			continue
		}

		tool, err := NewDynamicTool(string(source))
		if err != nil {
			slog.Warn("skipping invalid tool file", "path", path, "error", err)
			continue
		}

		if _, exists := l.registry.Get(tool.Name()); exists {
			slog.Warn("skipping dynamic tool (name collision with built-in/MCP)",
				"tool", tool.Name(), "path", path)
			continue
		}

		l.registry.Register(tool)
		l.loaded = append(l.loaded, tool.Name())
		slog.Info("loaded dynamic tool", "tool", tool.Name(), "path", path)
	}
	return nil
}
