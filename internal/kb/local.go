package kb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// LocalStore implements Store on a SQLite database with FTS5 full-text
// search. It needs no credentials or network, which makes it the fallback
// when no Bedrock knowledge base is available.
type LocalStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewLocalStore opens (or creates) the database and initializes the schema.
func NewLocalStore(dbPath string) (*LocalStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create kb dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &LocalStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("local knowledge base opened", "path", dbPath)
	return s, nil
}

func (s *LocalStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		// FTS5 virtual table for full-text search
		`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			content,
			title,
			id UNINDEXED,
			tokenize='porter unicode61'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

func (s *LocalStore) ID() string { return LocalID }

// Retrieve performs a full-text search using FTS5 with BM25 ranking.
// The BM25 rank is normalized to a [0,1] score with 1/(1+abs(rank)) so the
// MinScore threshold behaves like the Bedrock backend's relevance score.
func (s *LocalStore) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]Result, error) {
	opts = opts.withDefaults()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, content,
		1.0 / (1.0 + abs(rank)) as score
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuote(query), opts.NumResults)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.DocumentID, &r.Content, &r.Score); err != nil {
			continue
		}
		if r.Score < opts.MinScore {
			continue
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *LocalStore) StoreDocument(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Replace any previous FTS entry for the same document
	tx.Exec("DELETE FROM documents_fts WHERE id = ?", doc.ID)

	if _, err := tx.Exec(`INSERT OR REPLACE INTO documents (id, title, content, created_at)
		VALUES (?, ?, ?, strftime('%s','now'))`,
		doc.ID, doc.Title, doc.Content); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO documents_fts (content, title, id) VALUES (?, ?, ?)`,
		doc.Content, doc.Title, doc.ID); err != nil {
		return fmt.Errorf("insert fts: %w", err)
	}

	return tx.Commit()
}

// Count returns the number of stored documents.
func (s *LocalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count)
	return count
}

// Close closes the database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// ftsQuote escapes a free-text query for FTS5 MATCH by quoting each term.
// Raw user text contains characters FTS5 treats as syntax (-, ", etc.).
func ftsQuote(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}
