package shard

import (
	"fmt"
	"strings"
)

// reservedKeywords may never appear in a query() statement, and may never
// be used to DROP/ALTER a system table or assign a PRAGMA in an execute()
// statement.
var reservedKeywords = []string{"DROP", "DELETE", "INSERT", "UPDATE", "CREATE", "ALTER", "PRAGMA"}

var systemTables = []string{"kv", "pastes", "locks", "queue_items", "vector_memory", "content_scans"}

// SQLResult is the shape returned by Query.
type SQLResult struct {
	Columns  []string
	Rows     [][]any
	RowCount int
}

// Query runs a read-only statement. sql must begin with SELECT and must
// not reference any reserved keyword.
func (s *Shard) Query(query string, params []any) (SQLResult, error) {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return SQLResult{}, fmt.Errorf("%w: query() requires a SELECT statement", ErrRejectedStatement)
	}
	if kw, found := containsReserved(trimmed); found {
		return SQLResult{}, fmt.Errorf("%w: disallowed keyword %q in query()", ErrRejectedStatement, kw)
	}
	if referencesSystemTable(strings.ToUpper(trimmed)) {
		return SQLResult{}, fmt.Errorf("%w: query() may not reference a reserved table", ErrRejectedStatement)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return SQLResult{}, fmt.Errorf("sandbox query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return SQLResult{}, fmt.Errorf("sandbox query: reading columns: %w", err)
	}

	result := SQLResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return SQLResult{}, fmt.Errorf("sandbox query: scanning row: %w", err)
		}
		result.Rows = append(result.Rows, values)
		result.RowCount++
	}
	return result, rows.Err()
}

// Execute runs a mutating statement. It must not DROP/ALTER a system
// table, and must not assign a PRAGMA.
func (s *Shard) Execute(stmt string, params []any) (rowsAffected int64, err error) {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	if strings.Contains(upper, "PRAGMA") {
		return 0, fmt.Errorf("%w: PRAGMA is not permitted in execute()", ErrRejectedStatement)
	}
	if (strings.HasPrefix(upper, "DROP") || strings.HasPrefix(upper, "ALTER")) && referencesSystemTable(upper) {
		return 0, fmt.Errorf("%w: execute() may not DROP or ALTER a reserved table", ErrRejectedStatement)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(stmt, params...)
	if err != nil {
		return 0, fmt.Errorf("sandbox execute: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SchemaTable is one table's introspection entry.
type SchemaTable struct {
	Name string
	SQL  string
}

// Schema returns every user table's name and creation SQL.
func (s *Shard) Schema() ([]SchemaTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("sandbox schema: %w", err)
	}
	defer rows.Close()

	var tables []SchemaTable
	for rows.Next() {
		var t SchemaTable
		if err := rows.Scan(&t.Name, &t.SQL); err != nil {
			return nil, fmt.Errorf("sandbox schema: scanning row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func containsReserved(stmt string) (string, bool) {
	upper := strings.ToUpper(stmt)
	for _, kw := range reservedKeywords {
		if strings.Contains(upper, kw) {
			return kw, true
		}
	}
	return "", false
}

func referencesSystemTable(upperStmt string) bool {
	for _, t := range systemTables {
		if strings.Contains(upperStmt, strings.ToUpper(t)) {
			return true
		}
	}
	return false
}
