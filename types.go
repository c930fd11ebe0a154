package sbmcp

// Int returns a pointer to n, for optional limit fields.
func Int(n int) *int { return &n }

// OrderTerm is one ORDER BY term. Direction is "asc" or "desc".
type OrderTerm struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// ReadInput is the input for the ReadTableRows tool. Filters map column
// names to either a literal value (implicit equality) or an operator
// descriptor object, e.g. {"age": {"gte": 18}}. Recognized operators:
// eq, neq, gt, gte, lt, lte, like, ilike, in, is_null.
type ReadInput struct {
	Table   string         `json:"table"`
	Schema  string         `json:"schema,omitempty"`
	Columns []string       `json:"columns,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
	OrderBy []OrderTerm    `json:"order_by,omitempty"`
	Limit   *int           `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
}

// ReadOutput is the output of the ReadTableRows tool. All errors (validation,
// policy, database) are placed in Error; callers only need to check that field.
type ReadOutput struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Error   string           `json:"error,omitempty"`
}

// CreateInput is the input for the CreateRecords tool. All records in a
// batch must share the same key set unless the engine is configured with
// AllowSparseRecords, in which case missing keys insert NULL.
type CreateInput struct {
	Table   string           `json:"table"`
	Schema  string           `json:"schema,omitempty"`
	Records []map[string]any `json:"records"`
}

// UpdateInput is the input for the UpdateRecords tool. Filters must contain
// at least one predicate — an unscoped update is rejected.
type UpdateInput struct {
	Table   string         `json:"table"`
	Schema  string         `json:"schema,omitempty"`
	Updates map[string]any `json:"updates"`
	Filters map[string]any `json:"filters"`
}

// DeleteInput is the input for the DeleteRecords tool. Filters must contain
// at least one predicate — an unscoped delete is rejected.
type DeleteInput struct {
	Table   string         `json:"table"`
	Schema  string         `json:"schema,omitempty"`
	Filters map[string]any `json:"filters"`
}

// MutationOutput is the output of the Create/Update/DeleteRecords tools.
type MutationOutput struct {
	RowsAffected int64  `json:"rows_affected"`
	Error        string `json:"error,omitempty"`
}

// ListTablesInput is the input for the ListTables tool.
type ListTablesInput struct{}

// TableEntry is a single relation in the ListTables output.
type TableEntry struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Type   string `json:"type"` // "table", "view", "materialized_view", "foreign_table", "partitioned_table"
}

// ListTablesOutput is the output of the ListTables tool.
type ListTablesOutput struct {
	Tables []TableEntry `json:"tables"`
	Error  string       `json:"error,omitempty"`
}

// ChangeEvent is the payload broadcast to event subscribers after a
// successful mutation.
type ChangeEvent struct {
	Type         string `json:"type"` // "INSERT", "UPDATE", "DELETE"
	Table        string `json:"table"`
	Schema       string `json:"schema"`
	RowsAffected int64  `json:"rows_affected"`
	Timestamp    string `json:"timestamp"`
}
