package source

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/obestwalter/datatest/internal/compare"
	"github.com/obestwalter/datatest/internal/diff"
)

// Filters restricts queries to rows whose columns equal the given
// values. A slice value becomes an IN constraint. Keys are sorted
// during compilation so query text is deterministic.
type Filters map[string]any

// Distinct returns the distinct values of the given columns, as scalar
// values for one column or tuples for several. Results are ordered by
// the selected columns.
func (s *Source) Distinct(ctx context.Context, columns []string, filters Filters) ([]diff.Value, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("distinct requires at least one column")
	}
	for _, col := range columns {
		if !validIdentifier.MatchString(col) {
			return nil, fmt.Errorf("invalid column name %q: must match pattern %s", col, validIdentifier.String())
		}
	}

	whereSQL, args, err := buildWhereClause(filters)
	if err != nil {
		return nil, err
	}

	colList := strings.Join(columns, ", ")
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s", colList, tableName)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}
	query += " ORDER BY " + colList

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query distinct: %w", err)
	}
	defer rows.Close()

	var out []diff.Value
	for rows.Next() {
		v, err := scanValues(rows, len(columns))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Sum returns the sum of a numeric column grouped by the given key
// columns. Values are cast to REAL before summing, matching SQLite's
// SUM coercion for text-loaded data. Groups are ordered by key.
func (s *Source) Sum(ctx context.Context, column string, keys []string, filters Filters) (compare.Mapping, error) {
	return s.aggregate(ctx, fmt.Sprintf("SUM(CAST(%s AS REAL))", column), column, keys, filters)
}

// Count returns the count of non-empty values of a column grouped by
// the given key columns. Groups are ordered by key.
func (s *Source) Count(ctx context.Context, column string, keys []string, filters Filters) (compare.Mapping, error) {
	return s.aggregate(ctx, fmt.Sprintf("COUNT(NULLIF(CAST(%s AS TEXT), ''))", column), column, keys, filters)
}

func (s *Source) aggregate(ctx context.Context, aggExpr, column string, keys []string, filters Filters) (compare.Mapping, error) {
	if !validIdentifier.MatchString(column) {
		return nil, fmt.Errorf("invalid column name %q: must match pattern %s", column, validIdentifier.String())
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("aggregate requires at least one group key")
	}
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return nil, fmt.Errorf("invalid column name %q: must match pattern %s", key, validIdentifier.String())
		}
	}

	whereSQL, args, err := buildWhereClause(filters)
	if err != nil {
		return nil, err
	}

	keyList := strings.Join(keys, ", ")
	query := fmt.Sprintf("SELECT %s, %s FROM %s", keyList, aggExpr, tableName)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}
	query += fmt.Sprintf(" GROUP BY %s ORDER BY %s", keyList, keyList)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query aggregate: %w", err)
	}
	defer rows.Close()

	var mapping compare.Mapping
	for rows.Next() {
		holders := make([]any, len(keys)+1)
		ptrs := make([]any, len(holders))
		for i := range holders {
			ptrs[i] = &holders[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}

		key, err := toValueRow(holders[:len(keys)])
		if err != nil {
			return nil, err
		}
		val, err := toValue(holders[len(keys)])
		if err != nil {
			return nil, err
		}
		mapping = append(mapping, compare.Pair{Key: key, Value: val})
	}
	return mapping, rows.Err()
}

// buildWhereClause compiles filters into a parameterized WHERE
// fragment. Keys are sorted for deterministic query generation; slice
// values compile to IN lists. Identifiers are validated, values are
// always parameterized.
func buildWhereClause(filters Filters) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	var args []any
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in filter: must match pattern %s", key, validIdentifier.String())
		}
		switch val := filters[key].(type) {
		case []any:
			if len(val) == 0 {
				return "", nil, fmt.Errorf("filter %q: IN list must not be empty", key)
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)",
				key, strings.TrimSuffix(strings.Repeat("?, ", len(val)), ", ")))
			args = append(args, val...)
		case []string:
			if len(val) == 0 {
				return "", nil, fmt.Errorf("filter %q: IN list must not be empty", key)
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)",
				key, strings.TrimSuffix(strings.Repeat("?, ", len(val)), ", ")))
			for _, v := range val {
				args = append(args, v)
			}
		default:
			clauses = append(clauses, fmt.Sprintf("%s = ?", key))
			args = append(args, val)
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

// scanValues scans one result row into a Value: a scalar for one
// column, a Tuple otherwise.
func scanValues(rows *sql.Rows, width int) (diff.Value, error) {
	holders := make([]any, width)
	ptrs := make([]any, width)
	for i := range holders {
		ptrs[i] = &holders[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return toValueRow(holders)
}

// toValueRow converts scanned columns into a scalar or tuple Value.
func toValueRow(cols []any) (diff.Value, error) {
	if len(cols) == 1 {
		return toValue(cols[0])
	}
	tuple := make(diff.Tuple, len(cols))
	for i, c := range cols {
		v, err := toValue(c)
		if err != nil {
			return nil, err
		}
		tuple[i] = v
	}
	return tuple, nil
}

// toValue converts a scanned SQLite value into a diff.Value.
func toValue(v any) (diff.Value, error) {
	val, err := diff.FromAny(v)
	if err != nil {
		return nil, fmt.Errorf("convert query value: %w", err)
	}
	return val, nil
}
