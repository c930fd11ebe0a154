package sbmcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/leeb003/supabase-mcp/internal/hub"
	"github.com/leeb003/supabase-mcp/internal/qbuild"
	"github.com/leeb003/supabase-mcp/internal/sanitize"
)

// Version is the server version reported by the health endpoint and the
// MCP server info.
const Version = "1.0.0"

// SupabaseMcp is the core engine providing the CRUD tools, the ListTables
// tool, and the event broadcast hub. All exported methods are safe for
// concurrent use from multiple goroutines.
type SupabaseMcp struct {
	config    Config
	pool      *pgxpool.Pool
	semaphore chan struct{}
	builder   *qbuild.Builder
	masker    *sanitize.Masker
	hub       *hub.Hub
	logger    zerolog.Logger
	startedAt time.Time
}

// New creates a new SupabaseMcp instance. connString is the PostgreSQL
// connection string (must include credentials). ReadOnly is part of Config,
// never process-global state — tests construct independent instances with
// different modes. Panics on invalid config. Returns error only for runtime
// failures (pool creation, invalid sanitization regex).
func New(ctx context.Context, connString string, config Config, logger zerolog.Logger) (*SupabaseMcp, error) {
	// --- Config validation (panics on invalid config) ---

	if connString == "" {
		panic("sbmcp: connString must be non-empty")
	}
	if config.Pool.MaxConns <= 0 {
		panic("sbmcp: pool.max_conns must be > 0")
	}
	if config.Query.DefaultTimeoutSeconds <= 0 {
		panic("sbmcp: query.default_timeout_seconds must be > 0")
	}
	if config.Query.ListTablesTimeoutSeconds <= 0 {
		panic("sbmcp: query.list_tables_timeout_seconds must be > 0")
	}
	if config.Query.MaxResultLength < 0 {
		panic("sbmcp: query.max_result_length must not be negative")
	}
	if config.Compile.MaxLimit < 0 {
		panic("sbmcp: compile.max_limit must not be negative")
	}
	if config.Events.SubscriberBuffer < 0 {
		panic("sbmcp: events.subscriber_buffer must not be negative")
	}

	// Apply defaults for zero values
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}

	// --- Configure pgxpool ---

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(config.Pool.MaxConns)
	poolConfig.MinConns = int32(config.Pool.MinConns)
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	if config.Pool.MaxConnLifetime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnLifetime)
		if err != nil {
			panic(fmt.Sprintf("sbmcp: invalid pool.max_conn_lifetime %q: %v", config.Pool.MaxConnLifetime, err))
		}
		poolConfig.MaxConnLifetime = d
	}
	if config.Pool.MaxConnIdleTime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnIdleTime)
		if err != nil {
			panic(fmt.Sprintf("sbmcp: invalid pool.max_conn_idle_time %q: %v", config.Pool.MaxConnIdleTime, err))
		}
		poolConfig.MaxConnIdleTime = d
	}
	if config.Pool.HealthCheckPeriod != "" {
		d, err := time.ParseDuration(config.Pool.HealthCheckPeriod)
		if err != nil {
			panic(fmt.Sprintf("sbmcp: invalid pool.health_check_period %q: %v", config.Pool.HealthCheckPeriod, err))
		}
		poolConfig.HealthCheckPeriod = d
	}

	// Session-level belt on top of the executor's risk gate: in read-only
	// mode every connection also starts its transactions read-only.
	if config.ReadOnly || config.Timezone != "" {
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if config.ReadOnly {
				if _, err := conn.Exec(ctx, "SET default_transaction_read_only = on"); err != nil {
					return fmt.Errorf("failed to SET default_transaction_read_only: %w", err)
				}
			}
			if config.Timezone != "" {
				escaped := strings.ReplaceAll(config.Timezone, "'", "''")
				if _, err := conn.Exec(ctx, fmt.Sprintf("SET timezone = '%s'", escaped)); err != nil {
					return fmt.Errorf("failed to SET timezone: %w", err)
				}
			}
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// --- Initialize components ---

	maskerRules := make([]sanitize.Rule, len(config.Sanitization))
	for i, r := range config.Sanitization {
		maskerRules[i] = sanitize.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
	}
	masker, err := sanitize.New(maskerRules)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &SupabaseMcp{
		config:    config,
		pool:      pool,
		semaphore: make(chan struct{}, config.Pool.MaxConns),
		builder: qbuild.New(qbuild.Config{
			MaxLimit:           config.Compile.MaxLimit,
			AllowSparseRecords: config.Compile.AllowSparseRecords,
		}),
		masker:    masker,
		hub:       hub.New(logger),
		logger:    logger,
		startedAt: time.Now(),
	}, nil
}

// Close shuts down the hub and the connection pool. Accepts context for API
// forward-compatibility; pgxpool.Pool.Close() does not support context-based
// shutdown.
func (s *SupabaseMcp) Close(ctx context.Context) {
	s.hub.Close()
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *SupabaseMcp) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Hub returns the engine's broadcast hub.
func (s *SupabaseMcp) Hub() *hub.Hub {
	return s.hub
}

// ReadOnly reports whether the engine refuses write and destructive
// statements.
func (s *SupabaseMcp) ReadOnly() bool {
	return s.config.ReadOnly
}

// Uptime returns the time elapsed since the engine was created.
func (s *SupabaseMcp) Uptime() time.Duration {
	return time.Since(s.startedAt)
}
