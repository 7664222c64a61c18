package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Postgres stores each collection in its own two-column table with the
// document in a JSONB column. Equality filters compare against the ->>
// text extraction; unique indexes are expression indexes over the same.
type Postgres struct {
	db *sql.DB

	mu          sync.Mutex
	collections map[string]Collection
}

// NewPostgres connects to the given database URL and verifies the
// connection.
func NewPostgres(url string, maxConns int) (*Postgres, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Postgres{db: db, collections: make(map[string]Collection)}, nil
}

// NewPostgresFromDB wraps an existing connection. Used by tests.
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db, collections: make(map[string]Collection)}
}

// Collection opens the named collection, creating its table on first use.
func (p *Postgres) Collection(name string) (Collection, error) {
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.collections[name]; ok {
		return c, nil
	}

	d := postgresDialect{}
	table := "docs_" + name
	if _, err := p.db.Exec(d.CreateTable(table)); err != nil {
		return nil, fmt.Errorf("failed to create table for %s: %w", name, err)
	}
	c := &sqlCollection{db: p.db, name: name, table: table, dialect: d}
	p.collections[name] = c
	return c, nil
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Close implements Store.
func (p *Postgres) Close() error { return p.db.Close() }

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) FieldExpr(field string) string {
	return fmt.Sprintf("doc->>'%s'", field)
}

// Bind renders scalars as the text ->> produces.
func (postgresDialect) Bind(v any) (any, bool) {
	s, ok := scalarText(v)
	if !ok {
		return nil, false
	}
	return s, true
}

func (postgresDialect) CreateTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (id TEXT PRIMARY KEY, doc JSONB NOT NULL)`, table)
}

func (postgresDialect) CreateIndex(table string, spec IndexSpec) string {
	unique := ""
	if spec.Unique {
		unique = "UNIQUE "
	}
	ddl := fmt.Sprintf(`CREATE %sINDEX IF NOT EXISTS %q ON %q ((doc->>'%s'))`,
		unique, "idx_"+table+"_"+spec.Field, table, spec.Field)
	if spec.Sparse {
		ddl += fmt.Sprintf(` WHERE doc->>'%s' IS NOT NULL`, spec.Field)
	}
	return ddl
}

func (postgresDialect) IsDuplicate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}
