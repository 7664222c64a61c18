package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLite stores each collection in its own two-column table with the
// document serialized into a JSON text column. Field extraction uses
// json_extract, so equality filters and unique indexes work without a
// per-collection schema.
type SQLite struct {
	db *sql.DB

	mu          sync.Mutex
	collections map[string]Collection
}

// NewSQLite opens (or creates) a SQLite-backed store at path. Use ":memory:"
// for an ephemeral database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY under
	// concurrent service mutations.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return &SQLite{db: db, collections: make(map[string]Collection)}, nil
}

// Collection opens the named collection, creating its table on first use.
func (s *SQLite) Collection(name string) (Collection, error) {
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	d := sqliteDialect{}
	table := "docs_" + name
	if _, err := s.db.Exec(d.CreateTable(table)); err != nil {
		return nil, fmt.Errorf("failed to create table for %s: %w", name, err)
	}
	c := &sqlCollection{db: s.db, name: name, table: table, dialect: d}
	s.collections[name] = c
	return c, nil
}

// Ping implements Store.
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close implements Store.
func (s *SQLite) Close() error { return s.db.Close() }

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) FieldExpr(field string) string {
	return fmt.Sprintf("json_extract(doc, '$.%s')", field)
}

// Bind passes scalars through natively: json_extract yields typed values
// (integers for numbers and bools), which SQLite compares against the bound
// Go value directly.
func (sqliteDialect) Bind(v any) (any, bool) {
	switch v.(type) {
	case string, bool, int, int64, float64:
		return v, true
	default:
		return nil, false
	}
}

func (sqliteDialect) CreateTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (id TEXT PRIMARY KEY, doc TEXT NOT NULL)`, table)
}

func (sqliteDialect) CreateIndex(table string, spec IndexSpec) string {
	unique := ""
	if spec.Unique {
		unique = "UNIQUE "
	}
	ddl := fmt.Sprintf(`CREATE %sINDEX IF NOT EXISTS %q ON %q (json_extract(doc, '$.%s'))`,
		unique, "idx_"+table+"_"+spec.Field, table, spec.Field)
	if spec.Sparse {
		ddl += fmt.Sprintf(` WHERE json_extract(doc, '$.%s') IS NOT NULL`, spec.Field)
	}
	return ddl
}

func (sqliteDialect) IsDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
