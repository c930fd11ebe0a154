// Package guard is a defense-in-depth check behind the query compiler. It
// parses every compiled statement with PostgreSQL's actual C parser
// (pg_query) and verifies the statement shape matches what the compiler
// claims to have produced. The compiler alone should never emit anything
// that fails here; a guard failure means a compiler bug and the statement
// must not execute.
package guard

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/leeb003/supabase-mcp/internal/qbuild"
)

// Verify checks that stmt.SQL parses as exactly one statement, that the
// statement kind is consistent with stmt.Risk, and that UPDATE and DELETE
// statements carry a WHERE clause.
func Verify(stmt *qbuild.Statement) error {
	result, err := pg_query.Parse(stmt.SQL)
	if err != nil {
		return fmt.Errorf("guard: compiled statement failed to parse: %w", err)
	}
	if len(result.Stmts) != 1 {
		return fmt.Errorf("guard: compiled statement contains %d statements, want 1", len(result.Stmts))
	}

	switch n := result.Stmts[0].Stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		if stmt.Risk != qbuild.RiskSafe {
			return riskMismatch("SELECT", stmt.Risk)
		}
	case *pg_query.Node_InsertStmt:
		if stmt.Risk != qbuild.RiskWrite {
			return riskMismatch("INSERT", stmt.Risk)
		}
	case *pg_query.Node_UpdateStmt:
		if stmt.Risk == qbuild.RiskSafe {
			return riskMismatch("UPDATE", stmt.Risk)
		}
		if n.UpdateStmt.WhereClause == nil {
			return fmt.Errorf("guard: UPDATE without WHERE clause")
		}
	case *pg_query.Node_DeleteStmt:
		if stmt.Risk != qbuild.RiskDestructive {
			return riskMismatch("DELETE", stmt.Risk)
		}
		if n.DeleteStmt.WhereClause == nil {
			return fmt.Errorf("guard: DELETE without WHERE clause")
		}
	default:
		return fmt.Errorf("guard: unexpected statement kind %T", result.Stmts[0].Stmt.Node)
	}
	return nil
}

func riskMismatch(kind string, risk qbuild.Risk) error {
	return fmt.Errorf("guard: %s statement carries risk %q", kind, risk)
}
