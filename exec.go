package sbmcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/netip"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/leeb003/supabase-mcp/internal/guard"
	"github.com/leeb003/supabase-mcp/internal/qbuild"
)

// queryResult is the collected row set of a safe statement.
type queryResult struct {
	columns []string
	rows    []map[string]any
}

// gate enforces the read-only policy and re-verifies the compiled statement
// shape before anything touches the connection.
func (s *SupabaseMcp) gate(operation string, stmt *qbuild.Statement) error {
	if s.config.ReadOnly && stmt.Risk != qbuild.RiskSafe {
		return &PolicyError{Operation: operation, Risk: stmt.Risk}
	}
	if err := guard.Verify(stmt); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}
	return nil
}

// acquireSlot takes a semaphore slot, respecting context cancellation. The
// returned release func must be called once the statement is done.
func (s *SupabaseMcp) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case s.semaphore <- struct{}{}:
		return func() { <-s.semaphore }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to acquire query slot: all %d connection slots are in use, context cancelled while waiting: %w", cap(s.semaphore), ctx.Err())
	}
}

// runQuery executes a safe-risk statement and collects its rows.
func (s *SupabaseMcp) runQuery(ctx context.Context, operation string, stmt *qbuild.Statement) (*queryResult, error) {
	if err := s.gate(operation, stmt); err != nil {
		return nil, err
	}

	release, err := s.acquireSlot(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.Query.DefaultTimeoutSeconds)*time.Second)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return nil, newExecutionError(err)
	}
	defer conn.Release()

	rows, err := conn.Query(queryCtx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, newExecutionError(err)
	}
	return collectRows(rows)
}

// runMutation executes a write- or destructive-risk statement and returns
// the affected row count.
func (s *SupabaseMcp) runMutation(ctx context.Context, operation string, stmt *qbuild.Statement) (int64, error) {
	if err := s.gate(operation, stmt); err != nil {
		return 0, err
	}

	release, err := s.acquireSlot(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.Query.DefaultTimeoutSeconds)*time.Second)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return 0, newExecutionError(err)
	}
	defer conn.Release()

	tag, err := conn.Exec(queryCtx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, newExecutionError(err)
	}
	return tag.RowsAffected(), nil
}

// collectRows reads all rows from pgx.Rows into JSON-friendly maps.
func collectRows(rows pgx.Rows) (*queryResult, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, newExecutionError(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newExecutionError(err)
	}

	return &queryResult{columns: columns, rows: resultRows}, nil
}

// convertValue converts a pgx-returned value to a JSON-friendly Go type.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		return convertFloat(float64(val))
	case float64:
		return convertFloat(val)
	case netip.Prefix:
		return val.String()
	case net.HardwareAddr:
		return val.String()
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []byte:
		// bytea — base64 encode
		return base64.StdEncoding.EncodeToString(val)
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = convertValue(item)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = convertValue(item)
		}
		return result
	default:
		return val
	}
}

func convertFloat(f float64) any {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return f
}

// truncateIfNeeded blanks oversized result rows (in characters of their JSON
// form) and reports the overflow in Error.
func (s *SupabaseMcp) truncateIfNeeded(output *ReadOutput) {
	jsonBytes, _ := json.Marshal(output.Rows)
	jsonStr := string(jsonBytes)
	if utf8.RuneCountInString(jsonStr) <= s.config.Query.MaxResultLength {
		return
	}
	runes := []rune(jsonStr)
	truncated := string(runes[:s.config.Query.MaxResultLength])
	output.Rows = nil
	output.Error = truncated + "...[truncated] Result is too long! Restrict columns or lower the limit!"
}

// truncateForLog truncates a string for log output.
func truncateForLog(str string, maxLen int) string {
	if len(str) <= maxLen {
		return str
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(str[truncateAt]) {
		truncateAt--
	}
	return str[:truncateAt] + "...[truncated]"
}
