package sbmcp

import (
	"context"
	"time"
)

const listTablesSQL = `
SELECT
    n.nspname AS schema,
    c.relname AS name,
    CASE c.relkind
        WHEN 'r' THEN 'table'
        WHEN 'v' THEN 'view'
        WHEN 'm' THEN 'materialized_view'
        WHEN 'f' THEN 'foreign_table'
        WHEN 'p' THEN 'partitioned_table'
    END AS type
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ('r', 'v', 'm', 'f', 'p')
  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
  AND has_table_privilege(c.oid, 'SELECT')
ORDER BY n.nspname, c.relname;
`

// ListTables returns all tables, views, materialized views, foreign tables,
// and partitioned tables accessible to the current user. Catalog reads do
// not go through the compile/guard pipeline. Like the other tool methods,
// all failures are reported through output.Error.
func (s *SupabaseMcp) ListTables(ctx context.Context, input ListTablesInput) *ListTablesOutput {
	startTime := time.Now()

	release, err := s.acquireSlot(ctx)
	if err != nil {
		return &ListTablesOutput{Error: s.logOpError("list_tables", err)}
	}
	defer release()

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.Query.ListTablesTimeoutSeconds)*time.Second)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return &ListTablesOutput{Error: s.logOpError("list_tables", newExecutionError(err))}
	}
	defer conn.Release()

	rows, err := conn.Query(queryCtx, listTablesSQL)
	if err != nil {
		return &ListTablesOutput{Error: s.logOpError("list_tables", newExecutionError(err))}
	}
	defer rows.Close()

	tables := []TableEntry{}
	for rows.Next() {
		var entry TableEntry
		if err := rows.Scan(&entry.Schema, &entry.Name, &entry.Type); err != nil {
			return &ListTablesOutput{Error: s.logOpError("list_tables", newExecutionError(err))}
		}
		tables = append(tables, entry)
	}
	if err := rows.Err(); err != nil {
		return &ListTablesOutput{Error: s.logOpError("list_tables", newExecutionError(err))}
	}

	s.logger.Info().
		Str("tool", "list_tables").
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Msg("ListTables executed")

	return &ListTablesOutput{Tables: tables}
}
