package sbmcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/leeb003/supabase-mcp/internal/qbuild"
)

// ReadTableRows reads and filters rows from a table. All errors (validation,
// policy, database) are converted to output.Error — callers only need to
// check that field, never a Go error.
func (s *SupabaseMcp) ReadTableRows(ctx context.Context, input ReadInput) *ReadOutput {
	startTime := time.Now()

	order := make([]qbuild.Order, len(input.OrderBy))
	for i, o := range input.OrderBy {
		order[i] = qbuild.Order{Column: o.Column, Direction: o.Direction}
	}

	stmt, err := s.builder.Select(
		qbuild.Table{Schema: input.Schema, Name: input.Table},
		input.Columns,
		input.Filters,
		order,
		qbuild.Page{Limit: input.Limit, Offset: input.Offset},
	)
	if err != nil {
		return &ReadOutput{Error: s.logOpError("read_table_rows", err)}
	}

	result, err := s.runQuery(ctx, "read_table_rows", stmt)
	if err != nil {
		return &ReadOutput{Error: s.logOpError("read_table_rows", err)}
	}

	output := &ReadOutput{Columns: result.columns, Rows: s.masker.Apply(result.rows)}
	s.truncateIfNeeded(output)

	s.logger.Info().
		Str("tool", "read_table_rows").
		Str("sql", truncateForLog(stmt.SQL, 200)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", len(output.Rows)).
		Msg("read executed")
	return output
}

// CreateRecords inserts one or more records. On success a change event is
// broadcast to event subscribers.
func (s *SupabaseMcp) CreateRecords(ctx context.Context, input CreateInput) *MutationOutput {
	stmt, err := s.builder.Insert(
		qbuild.Table{Schema: input.Schema, Name: input.Table},
		input.Records,
	)
	if err != nil {
		return &MutationOutput{Error: s.logOpError("create_records", err)}
	}
	return s.mutate(ctx, "create_records", "INSERT", input.Schema, input.Table, stmt)
}

// UpdateRecords updates records matching the filters. An empty filter map is
// rejected before compilation completes. On success a change event is
// broadcast to event subscribers.
func (s *SupabaseMcp) UpdateRecords(ctx context.Context, input UpdateInput) *MutationOutput {
	stmt, err := s.builder.Update(
		qbuild.Table{Schema: input.Schema, Name: input.Table},
		input.Updates,
		input.Filters,
	)
	if err != nil {
		return &MutationOutput{Error: s.logOpError("update_records", err)}
	}
	return s.mutate(ctx, "update_records", "UPDATE", input.Schema, input.Table, stmt)
}

// DeleteRecords deletes records matching the filters. An empty filter map is
// rejected before compilation completes. On success a change event is
// broadcast to event subscribers.
func (s *SupabaseMcp) DeleteRecords(ctx context.Context, input DeleteInput) *MutationOutput {
	stmt, err := s.builder.Delete(
		qbuild.Table{Schema: input.Schema, Name: input.Table},
		input.Filters,
	)
	if err != nil {
		return &MutationOutput{Error: s.logOpError("delete_records", err)}
	}
	return s.mutate(ctx, "delete_records", "DELETE", input.Schema, input.Table, stmt)
}

// mutate runs a compiled mutation and broadcasts the resulting change event.
func (s *SupabaseMcp) mutate(ctx context.Context, operation, changeType, schema, table string, stmt *qbuild.Statement) *MutationOutput {
	startTime := time.Now()

	affected, err := s.runMutation(ctx, operation, stmt)
	if err != nil {
		return &MutationOutput{Error: s.logOpError(operation, err)}
	}

	s.publishChange(changeType, schema, table, affected)

	s.logger.Info().
		Str("tool", operation).
		Str("sql", truncateForLog(stmt.SQL, 200)).
		Str("risk", stmt.Risk.String()).
		Dur("duration", time.Since(startTime)).
		Int64("rows_affected", affected).
		Msg("mutation executed")
	return &MutationOutput{RowsAffected: affected}
}

// publishChange broadcasts a ChangeEvent for a completed mutation. Delivery
// is best-effort; a failed or absent subscriber never affects the caller.
func (s *SupabaseMcp) publishChange(changeType, schema, table string, affected int64) {
	if schema == "" {
		schema = "public"
	}
	event := ChangeEvent{
		Type:         changeType,
		Table:        table,
		Schema:       schema,
		RowsAffected: affected,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal change event")
		return
	}
	seq := s.hub.Publish(payload)
	s.logger.Debug().Uint64("seq", seq).Str("type", changeType).Str("table", table).Msg("change event broadcast")
}

// logOpError logs an operation failure and returns the message to surface.
func (s *SupabaseMcp) logOpError(operation string, err error) string {
	s.logger.Error().Str("tool", operation).Err(err).Msg("operation error")
	return err.Error()
}
