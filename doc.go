// Package sbmcp provides safe, structured CRUD access to a PostgreSQL
// database (Supabase-style) for AI agents through the Model Context
// Protocol (MCP).
//
// It exposes four CRUD tools — ReadTableRows, CreateRecords, UpdateRecords,
// DeleteRecords — plus ListTables for schema discovery. Requests are
// declarative (table, filters, ordering, pagination, record payloads) and
// are compiled into parameterized SQL: identifiers pass a restricted
// grammar, every literal value travels as a bind parameter, and each
// compiled statement carries a risk level (safe, write, destructive) that
// gates execution in read-only mode. A second parse with PostgreSQL's own
// parser (pg_query) verifies each compiled statement before it runs.
//
// Mutations and Postgres NOTIFY payloads are fanned out to live event
// subscribers through a non-blocking broadcast hub, exposed over HTTP as a
// Server-Sent Events stream.
//
// # Library Usage
//
//	s, err := sbmcp.New(ctx, connString, sbmcp.Config{
//		Pool:     sbmcp.PoolConfig{MaxConns: 10},
//		ReadOnly: false,
//		Query:    sbmcp.QueryConfig{DefaultTimeoutSeconds: 30, ListTablesTimeoutSeconds: 10},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close(ctx)
//
//	// Use directly
//	output := s.ReadTableRows(ctx, sbmcp.ReadInput{
//		Table:   "users",
//		Filters: map[string]any{"active": true},
//		Limit:   sbmcp.Int(10),
//	})
//
//	// Or register as MCP tools
//	sbmcp.RegisterMCPTools(mcpServer, s)
//
// # Events
//
// After every successful mutation the engine publishes a change event to
// its hub. StartChangeListener additionally forwards Postgres NOTIFY
// payloads from a configured channel, covering writes made outside this
// server. EventsRouter returns the HTTP surface: GET /stream (SSE, with
// the hub sequence number as event id) and POST /publish.
package sbmcp
