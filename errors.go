package sbmcp

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leeb003/supabase-mcp/internal/qbuild"
)

// PolicyError reports a statement that was valid but disallowed under the
// current mode: a write- or destructive-risk statement while the server is
// read-only. The connection is never touched.
type PolicyError struct {
	Operation string
	Risk      qbuild.Risk
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy error: %s is a %s operation and the server is in read-only mode", e.Operation, e.Risk)
}

// ExecutionError reports a statement the database rejected or failed to
// execute. Message is the database-reported reason; the compiled SQL text
// is deliberately not included.
type ExecutionError struct {
	SQLState string
	Message  string
}

func (e *ExecutionError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("execution error [%s]: %s", e.SQLState, e.Message)
	}
	return "execution error: " + e.Message
}

// newExecutionError wraps a driver failure, extracting the SQLSTATE when the
// database reported one.
func newExecutionError(err error) *ExecutionError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &ExecutionError{SQLState: pgErr.Code, Message: pgErr.Message}
	}
	return &ExecutionError{Message: err.Error()}
}
