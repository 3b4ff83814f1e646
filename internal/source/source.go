package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// validIdentifier matches valid SQL identifiers (column names). Only
// alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation - values
// are always parameterized, identifiers are always validated.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// tableName is the single working table every Source loads into.
const tableName = "records"

// Source exposes tabular subject or reference data to the validation
// core through an in-memory SQLite table. The comparison and allowance
// engine treats it as an opaque producer of element collections and
// grouped aggregates; all querying stays in this package.
type Source struct {
	db      *sql.DB
	columns []string
}

// New loads rows into a fresh in-memory source. Column names are
// validated; row width must match the column count. Values may be
// nil, bool, integer, float, string, or []byte.
func New(columns []string, rows [][]any) (*Source, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("source requires at least one column")
	}
	for _, col := range columns {
		if !validIdentifier.MatchString(col) {
			return nil, fmt.Errorf("invalid column name %q: must match pattern %s", col, validIdentifier.String())
		}
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open source database: %w", err)
	}
	// In-memory databases vanish per connection; a single connection
	// keeps the loaded table visible to every query.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Source{db: db, columns: append([]string(nil), columns...)}
	if err := s.load(rows); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Columns returns the column names in table order.
func (s *Source) Columns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, fmt.Errorf("query table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dfltValue  any
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dfltValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// CreateIndex adds an index over the given columns. Repeated grouping
// or filtering over the same columns can be sped up this way; indexes
// are otherwise never required.
func (s *Source) CreateIndex(ctx context.Context, columns ...string) error {
	if len(columns) == 0 {
		return fmt.Errorf("create index requires at least one column")
	}
	for _, col := range columns {
		if !validIdentifier.MatchString(col) {
			return fmt.Errorf("invalid column name %q: must match pattern %s", col, validIdentifier.String())
		}
	}
	name := fmt.Sprintf("idx_%s_%s", tableName, strings.Join(columns, "_"))
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		name, tableName, strings.Join(columns, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// load creates the working table and bulk-inserts the rows inside one
// transaction.
func (s *Source) load(rows [][]any) error {
	cols := make([]string, len(s.columns))
	for i, col := range s.columns {
		cols[i] = col // validated in New
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(cols, ", "))
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)", tableName, placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	for i, row := range rows {
		if len(row) != len(cols) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(cols))
		}
		if _, err := insert.Exec(row...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}
