package sbmcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers ReadTableRows, CreateRecords, UpdateRecords,
// DeleteRecords, and ListTables as MCP tools on the given MCP server.
func RegisterMCPTools(mcpServer *server.MCPServer, engine *SupabaseMcp) {
	readTool := mcp.NewTool("read_table_rows",
		mcp.WithDescription("Read and filter rows from a table. Filters map column names to a literal value (equality) or an operator object like {\"gte\": 18}. Operators: eq, neq, gt, gte, lt, lte, like, ilike, in, is_null."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Name of the table to read from"),
		),
		mcp.WithString("schema",
			mcp.Description("Schema name (defaults to 'public')"),
		),
		mcp.WithArray("columns",
			mcp.Description("Columns to return. If omitted, all columns are returned."),
		),
		mcp.WithObject("filters",
			mcp.Description("Column-value pairs or operator objects for filtering rows"),
		),
		mcp.WithArray("order_by",
			mcp.Description("Sort terms: objects with 'column' and 'direction' ('asc' or 'desc')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of rows to return"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of rows to skip"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(readTool, engine.loggedToolHandler("read_table_rows", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var input ReadInput
		if err := decodeArguments(req, &input); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalToolResult(engine.ReadTableRows(ctx, input), func(o *ReadOutput) string { return o.Error })
	}))

	createTool := mcp.NewTool("create_records",
		mcp.WithDescription("Insert one or more records into a table. All records in a batch must share the same column set."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Name of the table to insert into"),
		),
		mcp.WithString("schema",
			mcp.Description("Schema name (defaults to 'public')"),
		),
		mcp.WithArray("records",
			mcp.Required(),
			mcp.Description("Records to insert, each a column-value object"),
		),
	)
	mcpServer.AddTool(createTool, engine.loggedToolHandler("create_records", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var input CreateInput
		if err := decodeArguments(req, &input); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalToolResult(engine.CreateRecords(ctx, input), func(o *MutationOutput) string { return o.Error })
	}))

	updateTool := mcp.NewTool("update_records",
		mcp.WithDescription("Update records matching the filters. At least one filter predicate is required — unscoped updates are rejected."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Name of the table to update"),
		),
		mcp.WithString("schema",
			mcp.Description("Schema name (defaults to 'public')"),
		),
		mcp.WithObject("updates",
			mcp.Required(),
			mcp.Description("Column-value pairs to set"),
		),
		mcp.WithObject("filters",
			mcp.Required(),
			mcp.Description("Column-value pairs or operator objects selecting the rows to update"),
		),
	)
	mcpServer.AddTool(updateTool, engine.loggedToolHandler("update_records", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var input UpdateInput
		if err := decodeArguments(req, &input); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalToolResult(engine.UpdateRecords(ctx, input), func(o *MutationOutput) string { return o.Error })
	}))

	deleteTool := mcp.NewTool("delete_records",
		mcp.WithDescription("Delete records matching the filters. At least one filter predicate is required — unscoped deletes are rejected. This operation permanently removes data."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Name of the table to delete from"),
		),
		mcp.WithString("schema",
			mcp.Description("Schema name (defaults to 'public')"),
		),
		mcp.WithObject("filters",
			mcp.Required(),
			mcp.Description("Column-value pairs or operator objects selecting the rows to delete"),
		),
	)
	mcpServer.AddTool(deleteTool, engine.loggedToolHandler("delete_records", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var input DeleteInput
		if err := decodeArguments(req, &input); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalToolResult(engine.DeleteRecords(ctx, input), func(o *MutationOutput) string { return o.Error })
	}))

	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List all tables, views, materialized views, and foreign tables accessible to the current user."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(listTablesTool, engine.loggedToolHandler("list_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return marshalToolResult(engine.ListTables(ctx, ListTablesInput{}), func(o *ListTablesOutput) string { return o.Error })
	}))
}

// decodeArguments decodes the tool-call arguments into the given input
// struct via a JSON round-trip.
func decodeArguments(req mcp.CallToolRequest, v any) error {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// marshalToolResult converts an engine output into a CallToolResult,
// mapping a populated Error field to a tool error.
func marshalToolResult[T any](output T, errOf func(T) string) (*mcp.CallToolResult, error) {
	if msg := errOf(output); msg != "" {
		return mcp.NewToolResultError(msg), nil
	}
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal tool result"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (s *SupabaseMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		s.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
