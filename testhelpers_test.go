package sbmcp_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	sbmcp "github.com/leeb003/supabase-mcp"
	"github.com/rickchristie/govner/pgflock/client"
	"github.com/rs/zerolog"
)

const (
	pgflockLockerPort = 9776
	pgflockPassword   = "pgflock"
)

func acquireTestDB(t *testing.T) string {
	t.Helper()
	connStr, err := client.Lock(pgflockLockerPort, t.Name(), pgflockPassword)
	if err != nil {
		t.Fatalf("Failed to acquire test database: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Unlock(pgflockLockerPort, pgflockPassword, connStr)
	})
	return connStr
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func defaultConfig() sbmcp.Config {
	return sbmcp.Config{
		Pool: sbmcp.PoolConfig{MaxConns: 5},
		Query: sbmcp.QueryConfig{
			DefaultTimeoutSeconds:    30,
			ListTablesTimeoutSeconds: 10,
			MaxResultLength:          100000,
		},
	}
}

func newTestInstance(t *testing.T, config sbmcp.Config) (*sbmcp.SupabaseMcp, string) {
	t.Helper()
	connStr := acquireTestDB(t)
	ctx := context.Background()
	p, err := sbmcp.New(ctx, connStr, config, testLogger())
	if err != nil {
		t.Fatalf("Failed to create SupabaseMcp: %v", err)
	}
	t.Cleanup(func() { p.Close(ctx) })
	return p, connStr
}

// execSQL runs DDL or seed statements directly, bypassing the engine. The
// engine exposes no arbitrary SQL surface, so test fixtures go in through pgx.
func execSQL(t *testing.T, connStr string, statements ...string) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect for fixture setup: %v", err)
	}
	defer conn.Close(ctx)
	for _, sql := range statements {
		if _, err := conn.Exec(ctx, sql); err != nil {
			t.Fatalf("fixture statement failed: %v\n%s", err, sql)
		}
	}
}

// newReadOnlyTestInstance creates a read-only engine with tables pre-populated
// by the given statements.
func newReadOnlyTestInstance(t *testing.T, statements ...string) *sbmcp.SupabaseMcp {
	t.Helper()
	connStr := acquireTestDB(t)
	execSQL(t, connStr, statements...)

	ctx := context.Background()
	config := defaultConfig()
	config.ReadOnly = true
	p, err := sbmcp.New(ctx, connStr, config, testLogger())
	if err != nil {
		t.Fatalf("failed to create read-only instance: %v", err)
	}
	t.Cleanup(func() { p.Close(ctx) })
	return p
}
