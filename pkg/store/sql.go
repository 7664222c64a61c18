package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/inkwell-cms/inkwell/pkg/document"
)

// sqlDialect abstracts the differences between the SQLite and PostgreSQL
// backends: placeholder style, JSON field extraction and index DDL.
type sqlDialect interface {
	// Placeholder returns the bind placeholder for the nth parameter (1-based).
	Placeholder(n int) string
	// FieldExpr returns the SQL expression extracting a document field.
	FieldExpr(field string) string
	// Bind converts a query value into the form FieldExpr compares against.
	// The second return is false for values that must be filtered in memory.
	Bind(v any) (any, bool)
	// CreateTable returns the DDL for a collection table.
	CreateTable(table string) string
	// CreateIndex returns the DDL for an index on a document field.
	CreateIndex(table string, spec IndexSpec) string
	// IsDuplicate reports whether err is a unique-constraint violation.
	IsDuplicate(err error) bool
}

// identRe limits the field names that may be interpolated into SQL. Anything
// else is filtered in memory instead.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlCollection stores each document as a JSON blob in a two-column table.
// Equality filters on well-formed field names are pushed into SQL; everything
// else (odd field names, sorting, pagination) happens in memory so that all
// backends order results identically.
type sqlCollection struct {
	db      *sql.DB
	name    string
	table   string
	dialect sqlDialect
}

func (c *sqlCollection) Insert(ctx context.Context, doc document.Document) (document.Document, error) {
	id := doc.ID()
	if id == "" {
		return nil, fmt.Errorf("collection %s: insert requires an id", c.name)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("collection %s: failed to marshal document: %w", c.name, err)
	}
	q := fmt.Sprintf(`INSERT INTO %q (id, doc) VALUES (%s, %s)`,
		c.table, c.dialect.Placeholder(1), c.dialect.Placeholder(2))
	if _, err := c.db.ExecContext(ctx, q, id, string(data)); err != nil {
		if c.dialect.IsDuplicate(err) {
			return nil, fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrDuplicate)
		}
		return nil, fmt.Errorf("collection %s: insert failed: %w", c.name, err)
	}
	return doc.Clone(), nil
}

func (c *sqlCollection) Find(ctx context.Context, query document.Query, opts FindOptions) ([]document.Document, error) {
	var (
		conds    []string
		args     []any
		residual = document.Query{}
	)
	n := 0
	for field, val := range query {
		bound, ok := c.dialect.Bind(val)
		if !ok || !identRe.MatchString(field) {
			residual[field] = val
			continue
		}
		n++
		conds = append(conds, fmt.Sprintf("%s = %s", c.dialect.FieldExpr(field), c.dialect.Placeholder(n)))
		args = append(args, bound)
	}

	q := fmt.Sprintf(`SELECT doc FROM %q`, c.table)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("collection %s: query failed: %w", c.name, err)
	}
	defer rows.Close()

	var matched []document.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("collection %s: scan failed: %w", c.name, err)
		}
		var doc document.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("collection %s: unreadable document: %w", c.name, err)
		}
		if residual.Matches(doc) {
			matched = append(matched, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collection %s: query failed: %w", c.name, err)
	}
	return applyFindOptions(matched, opts), nil
}

func (c *sqlCollection) FindByID(ctx context.Context, id string) (document.Document, error) {
	q := fmt.Sprintf(`SELECT doc FROM %q WHERE id = %s`, c.table, c.dialect.Placeholder(1))
	var raw []byte
	err := c.db.QueryRowContext(ctx, q, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("collection %s: lookup failed: %w", c.name, err)
	}
	var doc document.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("collection %s: unreadable document: %w", c.name, err)
	}
	return doc, nil
}

func (c *sqlCollection) Update(ctx context.Context, id string, fields document.Document) error {
	existing, err := c.FindByID(ctx, id)
	if err != nil {
		return err
	}
	merged := existing.Clone()
	merged.Merge(fields)
	merged.SetID(id)
	return c.write(ctx, id, merged)
}

func (c *sqlCollection) Replace(ctx context.Context, id string, doc document.Document) error {
	if _, err := c.FindByID(ctx, id); err != nil {
		return err
	}
	stored := doc.Clone()
	stored.SetID(id)
	return c.write(ctx, id, stored)
}

func (c *sqlCollection) write(ctx context.Context, id string, doc document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("collection %s: failed to marshal document: %w", c.name, err)
	}
	q := fmt.Sprintf(`UPDATE %q SET doc = %s WHERE id = %s`,
		c.table, c.dialect.Placeholder(1), c.dialect.Placeholder(2))
	if _, err := c.db.ExecContext(ctx, q, string(data), id); err != nil {
		if c.dialect.IsDuplicate(err) {
			return fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrDuplicate)
		}
		return fmt.Errorf("collection %s: update failed: %w", c.name, err)
	}
	return nil
}

func (c *sqlCollection) Remove(ctx context.Context, id string) error {
	q := fmt.Sprintf(`DELETE FROM %q WHERE id = %s`, c.table, c.dialect.Placeholder(1))
	res, err := c.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("collection %s: delete failed: %w", c.name, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("collection %s: id %s: %w", c.name, id, ErrNotFound)
	}
	return nil
}

func (c *sqlCollection) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	if !identRe.MatchString(spec.Field) {
		return fmt.Errorf("collection %s: invalid index field %q", c.name, spec.Field)
	}
	if _, err := c.db.ExecContext(ctx, c.dialect.CreateIndex(c.table, spec)); err != nil {
		return fmt.Errorf("collection %s: failed to create index on %s: %w", c.name, spec.Field, err)
	}
	return nil
}

// scalarText renders a scalar query value the way PostgreSQL's ->> operator
// renders the stored JSON value.
func scalarText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	case int:
		return fmt.Sprintf("%d", val), true
	case int64:
		return fmt.Sprintf("%d", val), true
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val)), true
		}
		return fmt.Sprintf("%g", val), true
	default:
		return "", false
	}
}
