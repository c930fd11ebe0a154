package qbuild

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leeb003/supabase-mcp/internal/validate"
)

func intp(n int) *int { return &n }

func users() Table { return Table{Name: "users"} }

func TestSelectRoundTrip(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Select(users(),
		[]string{"id", "name"},
		map[string]any{"active": true},
		[]Order{{Column: "created_at", Direction: "desc"}},
		Page{Limit: intp(10)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `SELECT "id", "name" FROM "public"."users" WHERE "active" = $1 ORDER BY "created_at" DESC LIMIT 10`
	if stmt.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
	if len(stmt.Args) != 1 || stmt.Args[0] != true {
		t.Fatalf("expected args [true], got %v", stmt.Args)
	}
	if stmt.Risk != RiskSafe {
		t.Fatalf("expected RiskSafe, got %v", stmt.Risk)
	}
}

func TestSelectDefaults(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Select(users(), nil, nil, nil, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stmt.SQL != `SELECT * FROM "public"."users"` {
		t.Fatalf("unexpected SQL: %s", stmt.SQL)
	}
	if len(stmt.Args) != 0 {
		t.Fatalf("expected no args, got %v", stmt.Args)
	}
}

func TestSelectExplicitSchema(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Select(Table{Schema: "audit", Name: "logs"}, nil, nil, nil, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stmt.SQL, `SELECT * FROM "audit"."logs"`) {
		t.Fatalf("unexpected SQL: %s", stmt.SQL)
	}
}

func TestSelectOffset(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Select(users(), nil, nil, nil, Page{Limit: intp(5), Offset: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(stmt.SQL, "LIMIT 5 OFFSET 20") {
		t.Fatalf("unexpected SQL: %s", stmt.SQL)
	}
}

func TestOperatorLowering(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	cases := []struct {
		op       string
		value    any
		wantSQL  string
		wantArgs int
	}{
		{"eq", 5, `"age" = $1`, 1},
		{"neq", 5, `"age" <> $1`, 1},
		{"gt", 5, `"age" > $1`, 1},
		{"gte", 5, `"age" >= $1`, 1},
		{"lt", 5, `"age" < $1`, 1},
		{"lte", 5, `"age" <= $1`, 1},
		{"like", "a%", `"age" LIKE $1`, 1},
		{"ilike", "a%", `"age" ILIKE $1`, 1},
		{"in", []any{1, 2, 3}, `"age" IN ($1, $2, $3)`, 3},
		{"is_null", true, `"age" IS NULL`, 0},
		{"is_null", false, `"age" IS NOT NULL`, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%v", tc.op, tc.value), func(t *testing.T) {
			t.Parallel()
			stmt, err := b.Select(users(), nil,
				map[string]any{"age": map[string]any{tc.op: tc.value}}, nil, Page{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := `SELECT * FROM "public"."users" WHERE ` + tc.wantSQL
			if stmt.SQL != want {
				t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
			}
			if len(stmt.Args) != tc.wantArgs {
				t.Fatalf("expected %d args, got %d", tc.wantArgs, len(stmt.Args))
			}
		})
	}
}

func TestUnknownOperatorRejected(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	_, err := b.Select(users(), nil,
		map[string]any{"age": map[string]any{"regex": ".*"}}, nil, Page{})
	if err == nil {
		t.Fatal("expected error for unknown operator")
	}
	var verr *validate.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validate.Error, got %T", err)
	}
	if !strings.Contains(err.Error(), "unknown filter operator") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestMultipleOperatorsSameColumn(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Select(users(), nil,
		map[string]any{"age": map[string]any{"gte": 18, "lte": 65}}, nil, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Operators on one column emit in sorted order, ANDed.
	want := `SELECT * FROM "public"."users" WHERE "age" >= $1 AND "age" <= $2`
	if stmt.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
	if stmt.Args[0] != 18 || stmt.Args[1] != 65 {
		t.Fatalf("expected args [18 65], got %v", stmt.Args)
	}
}

func TestFilterColumnsSortedDeterministically(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	for i := 0; i < 20; i++ {
		stmt, err := b.Select(users(), nil,
			map[string]any{"zeta": 1, "alpha": 2, "mid": 3}, nil, Page{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `SELECT * FROM "public"."users" WHERE "alpha" = $1 AND "mid" = $2 AND "zeta" = $3`
		if stmt.SQL != want {
			t.Fatalf("iteration %d: SQL mismatch:\n got: %s\nwant: %s", i, stmt.SQL, want)
		}
	}
}

func TestNullFilterValues(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Select(users(), nil, map[string]any{"deleted_at": nil}, nil, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(stmt.SQL, `"deleted_at" IS NULL`) {
		t.Fatalf("unexpected SQL: %s", stmt.SQL)
	}
	if len(stmt.Args) != 0 {
		t.Fatalf("expected no args, got %v", stmt.Args)
	}

	stmt, err = b.Select(users(), nil,
		map[string]any{"deleted_at": map[string]any{"neq": nil}}, nil, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(stmt.SQL, `"deleted_at" IS NOT NULL`) {
		t.Fatalf("unexpected SQL: %s", stmt.SQL)
	}

	if _, err := b.Select(users(), nil,
		map[string]any{"age": map[string]any{"gt": nil}}, nil, Page{}); err == nil {
		t.Fatal("expected error for gt null")
	}
}

func TestInFilterRequiresNonEmptyList(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	if _, err := b.Select(users(), nil,
		map[string]any{"id": map[string]any{"in": []any{}}}, nil, Page{}); err == nil {
		t.Fatal("expected error for empty in list")
	}
	if _, err := b.Select(users(), nil,
		map[string]any{"id": map[string]any{"in": "not-a-list"}}, nil, Page{}); err == nil {
		t.Fatal("expected error for non-list in value")
	}
}

func TestInFilterRejectsNonScalarElements(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	cases := []struct {
		name    string
		element any
	}{
		{"nested list", []any{2}},
		{"map", map[string]any{"k": 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := b.Select(users(), nil,
				map[string]any{"id": map[string]any{"in": []any{1, tc.element}}}, nil, Page{})
			if err == nil {
				t.Fatal("expected error for non-scalar in element")
			}
			var verr *validate.Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validate.Error, got %T", err)
			}
			if !strings.Contains(err.Error(), "list element 1") {
				t.Fatalf("expected element index in error, got %v", err)
			}
		})
	}
}

func TestMalformedIdentifiersRejected(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	cases := []struct {
		name string
		run  func() error
	}{
		{"table", func() error {
			_, err := b.Select(Table{Name: "users; DROP TABLE users"}, nil, nil, nil, Page{})
			return err
		}},
		{"schema", func() error {
			_, err := b.Select(Table{Schema: "public--", Name: "users"}, nil, nil, nil, Page{})
			return err
		}},
		{"column", func() error {
			_, err := b.Select(users(), []string{"name, password"}, nil, nil, Page{})
			return err
		}},
		{"filter column", func() error {
			_, err := b.Select(users(), nil, map[string]any{"a = 1 OR 1": 1}, nil, Page{})
			return err
		}},
		{"order column", func() error {
			_, err := b.Select(users(), nil, nil, []Order{{Column: "id; --", Direction: "asc"}}, Page{})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.run(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestOrderDirectionRejected(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	_, err := b.Select(users(), nil, nil, []Order{{Column: "id", Direction: "sideways"}}, Page{})
	if err == nil {
		t.Fatal("expected error for bad sort direction")
	}
}

func TestPaginationBounds(t *testing.T) {
	t.Parallel()
	b := New(Config{MaxLimit: 100})
	if _, err := b.Select(users(), nil, nil, nil, Page{Limit: intp(101)}); err == nil {
		t.Fatal("expected error for limit above cap")
	}
	if _, err := b.Select(users(), nil, nil, nil, Page{Limit: intp(-1)}); err == nil {
		t.Fatal("expected error for negative limit")
	}
	if _, err := b.Select(users(), nil, nil, nil, Page{Offset: -1}); err == nil {
		t.Fatal("expected error for negative offset")
	}
	if _, err := b.Select(users(), nil, nil, nil, Page{Limit: intp(100)}); err != nil {
		t.Fatalf("limit at cap should pass: %v", err)
	}
}

func TestInsertBatch(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Insert(users(), []map[string]any{
		{"name": "John", "email": "john@x.com"},
		{"name": "Jane", "email": "jane@x.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `INSERT INTO "public"."users" ("email", "name") VALUES ($1, $2), ($3, $4)`
	if stmt.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
	wantArgs := []any{"john@x.com", "John", "jane@x.com", "Jane"}
	if len(stmt.Args) != len(wantArgs) {
		t.Fatalf("expected 4 args, got %d", len(stmt.Args))
	}
	for i, a := range wantArgs {
		if stmt.Args[i] != a {
			t.Fatalf("arg %d: expected %v, got %v", i, a, stmt.Args[i])
		}
	}
	if stmt.Risk != RiskWrite {
		t.Fatalf("expected RiskWrite, got %v", stmt.Risk)
	}
}

func TestInsertHeterogeneousBatchRejected(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	_, err := b.Insert(users(), []map[string]any{
		{"name": "John", "email": "john@x.com"},
		{"name": "Jane"},
	})
	if err == nil {
		t.Fatal("expected error for heterogeneous batch")
	}
	if !strings.Contains(err.Error(), "heterogeneous") {
		t.Fatalf("unexpected error message: %v", err)
	}

	// Same size, different keys.
	_, err = b.Insert(users(), []map[string]any{
		{"name": "John"},
		{"email": "jane@x.com"},
	})
	if err == nil {
		t.Fatal("expected error for mismatched key sets")
	}
}

func TestInsertSparseBatchPadsNull(t *testing.T) {
	t.Parallel()
	b := New(Config{AllowSparseRecords: true})
	stmt, err := b.Insert(users(), []map[string]any{
		{"name": "John"},
		{"name": "Jane", "email": "jane@x.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `INSERT INTO "public"."users" ("name", "email") VALUES ($1, $2), ($3, $4)`
	if stmt.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
	if stmt.Args[1] != nil {
		t.Fatalf("expected nil for record 0 missing email, got %v", stmt.Args[1])
	}
	if stmt.Args[3] != "jane@x.com" {
		t.Fatalf("expected jane@x.com, got %v", stmt.Args[3])
	}
}

func TestInsertEmptyBatchRejected(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	if _, err := b.Insert(users(), nil); err == nil {
		t.Fatal("expected error for empty batch")
	}
	if _, err := b.Insert(users(), []map[string]any{{}}); err == nil {
		t.Fatal("expected error for record with no columns")
	}
}

func TestUpdateCompile(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Update(users(),
		map[string]any{"status": "active"},
		map[string]any{"id": 7},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `UPDATE "public"."users" SET "status" = $1 WHERE "id" = $2`
	if stmt.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
	if stmt.Risk != RiskWrite {
		t.Fatalf("expected RiskWrite, got %v", stmt.Risk)
	}
}

func TestUpdateEmptyFilterRejected(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	_, err := b.Update(users(), map[string]any{"status": "x"}, nil)
	if err == nil {
		t.Fatal("expected error for unscoped update")
	}
	var verr *validate.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validate.Error, got %T", err)
	}
}

func TestUpdateEmptySetRejected(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	if _, err := b.Update(users(), nil, map[string]any{"id": 1}); err == nil {
		t.Fatal("expected error for update with nothing to set")
	}
}

func TestUpdateRiskEscalation(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	cases := []struct {
		name    string
		filters map[string]any
		want    Risk
	}{
		{"eq filter", map[string]any{"id": 1}, RiskWrite},
		{"in filter", map[string]any{"id": map[string]any{"in": []any{1, 2}}}, RiskWrite},
		{"only neq", map[string]any{"status": map[string]any{"neq": "gone"}}, RiskDestructive},
		{"only range", map[string]any{"age": map[string]any{"gte": 0}}, RiskDestructive},
		{"only pattern", map[string]any{"email": map[string]any{"like": "%"}}, RiskDestructive},
		{"only null check", map[string]any{"deleted_at": map[string]any{"is_null": false}}, RiskDestructive},
		{"range plus eq", map[string]any{"age": map[string]any{"gte": 0}, "org": 3}, RiskWrite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			stmt, err := b.Update(users(), map[string]any{"status": "x"}, tc.filters)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stmt.Risk != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, stmt.Risk)
			}
		})
	}
}

func TestDeleteCompile(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Delete(users(), map[string]any{"status": "inactive"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `DELETE FROM "public"."users" WHERE "status" = $1`
	if stmt.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
	if stmt.Risk != RiskDestructive {
		t.Fatalf("expected RiskDestructive, got %v", stmt.Risk)
	}
}

func TestDeleteEmptyFilterRejected(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	if _, err := b.Delete(users(), map[string]any{}); err == nil {
		t.Fatal("expected error for unscoped delete")
	}
}

func TestOneBoundParameterPerPredicateValue(t *testing.T) {
	t.Parallel()
	b := New(Config{})
	stmt, err := b.Select(users(), nil, map[string]any{
		"a": 1,
		"b": map[string]any{"gt": 2, "lt": 3},
		"c": map[string]any{"in": []any{4, 5}},
		"d": map[string]any{"is_null": true},
	}, nil, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a=1, b gt+lt=2, c in=2, d is_null=0
	if len(stmt.Args) != 5 {
		t.Fatalf("expected 5 args, got %d: %v", len(stmt.Args), stmt.Args)
	}
	for n := 1; n <= 5; n++ {
		if !strings.Contains(stmt.SQL, fmt.Sprintf("$%d", n)) {
			t.Fatalf("missing placeholder $%d in: %s", n, stmt.SQL)
		}
	}
}

func TestRiskString(t *testing.T) {
	t.Parallel()
	if RiskSafe.String() != "safe" || RiskWrite.String() != "write" || RiskDestructive.String() != "destructive" {
		t.Fatal("risk string mismatch")
	}
}
