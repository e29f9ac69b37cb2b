package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/youssef3092004/Spacefy/pkg/httputil"
)

// sortColumn maps a caller-supplied sort name onto a whitelisted column.
// Unknown names fall back to created_at so sort input never reaches SQL.
func sortColumn(allowed map[string]string, requested string) string {
	if col, ok := allowed[requested]; ok {
		return col
	}
	return "created_at"
}

// orderKeyword normalizes the order direction
func orderKeyword(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}

// listClause renders the ORDER BY / LIMIT / OFFSET tail of a list query
func listClause(allowed map[string]string, p httputil.Pagination) string {
	return fmt.Sprintf(" ORDER BY %s %s LIMIT %d OFFSET %d",
		sortColumn(allowed, p.Sort), orderKeyword(p.Order), p.Limit, p.Offset)
}

// countRows runs a COUNT query with optional filter args
func countRows(ctx context.Context, db *sql.DB, query string, args ...interface{}) (int, error) {
	var total int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return total, nil
}
