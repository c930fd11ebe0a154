// Package qbuild compiles declarative CRUD requests into parameterized SQL
// statements. Identifiers are validated and double-quoted; every literal
// value becomes a positional bind parameter. Each compiled statement carries
// a risk classification used by the executor to gate read-only mode.
//
// Filters and record payloads arrive as JSON-decoded maps, which Go iterates
// in random order. To keep compilation deterministic, columns are emitted in
// sorted order and multiple operators on one column in sorted operator
// order, combined with AND.
package qbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leeb003/supabase-mcp/internal/validate"
)

// Risk classifies the potential impact of a compiled statement.
type Risk int

const (
	// RiskSafe statements only read.
	RiskSafe Risk = iota
	// RiskWrite statements add or modify scoped rows.
	RiskWrite
	// RiskDestructive statements delete rows or modify broad row sets.
	RiskDestructive
)

func (r Risk) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskWrite:
		return "write"
	case RiskDestructive:
		return "destructive"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// Statement is an immutable compiled statement: SQL text with positional
// placeholders, the bound arguments in placeholder order, and a risk level.
// Built fresh per request, consumed once by the executor.
type Statement struct {
	SQL  string
	Args []any
	Risk Risk
}

// Table names a relation. An empty Schema means "public".
type Table struct {
	Schema string
	Name   string
}

func (t Table) qualified() (string, error) {
	schema := t.Schema
	if schema == "" {
		schema = "public"
	}
	if err := validate.Identifier(schema); err != nil {
		return "", err
	}
	if err := validate.Identifier(t.Name); err != nil {
		return "", err
	}
	return quote(schema) + "." + quote(t.Name), nil
}

// Order is one ORDER BY term. Direction must be "asc" or "desc"
// (case-insensitive).
type Order struct {
	Column    string
	Direction string
}

// Page bounds a select. A nil Limit emits no LIMIT clause.
type Page struct {
	Limit  *int
	Offset int
}

// Config controls compilation policy.
type Config struct {
	// MaxLimit caps the select LIMIT. Requests above the cap are rejected.
	MaxLimit int
	// AllowSparseRecords permits insert batches with differing key sets;
	// the column list becomes the union of keys and gaps bind NULL.
	// When false (default) a heterogeneous batch is rejected.
	AllowSparseRecords bool
}

// DefaultMaxLimit is used when Config.MaxLimit is zero.
const DefaultMaxLimit = 1000

// Builder compiles CRUD requests under a fixed policy.
// Safe for concurrent use.
type Builder struct {
	cfg Config
}

// New creates a Builder, applying defaults for zero-valued config fields.
func New(cfg Config) *Builder {
	if cfg.MaxLimit == 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	return &Builder{cfg: cfg}
}

// comparisons maps declarative operator names to SQL comparison operators.
// The operator position cannot be parameterized, so anything outside this
// allowlist (plus "in" and "is_null", handled separately) is rejected.
var comparisons = map[string]string{
	"eq":    "=",
	"neq":   "<>",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
	"like":  "LIKE",
	"ilike": "ILIKE",
}

type predicate struct {
	column string
	op     string
	value  any
}

// flatten converts a filter map into an ordered predicate list. A plain
// value means implicit equality; a nested map holds explicit operators.
func flatten(filters map[string]any) []predicate {
	preds := make([]predicate, 0, len(filters))
	for _, col := range sortedKeys(filters) {
		switch v := filters[col].(type) {
		case map[string]any:
			for _, op := range sortedKeys(v) {
				preds = append(preds, predicate{column: col, op: op, value: v[op]})
			}
		default:
			preds = append(preds, predicate{column: col, op: "eq", value: v})
		}
	}
	return preds
}

// whereSQL lowers predicates into an AND-joined condition, appending bound
// values to args.
func whereSQL(preds []predicate, args *[]any) (string, error) {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		if err := validate.Identifier(p.column); err != nil {
			return "", err
		}
		col := quote(p.column)

		switch p.op {
		case "is_null":
			switch want := p.value.(type) {
			case nil:
				parts = append(parts, col+" IS NULL")
			case bool:
				if want {
					parts = append(parts, col+" IS NULL")
				} else {
					parts = append(parts, col+" IS NOT NULL")
				}
			default:
				return "", validate.Errorf(p.value, "is_null filter on %q takes a boolean", p.column)
			}

		case "in":
			list, ok := p.value.([]any)
			if !ok || len(list) == 0 {
				return "", validate.Errorf(p.value, "in filter on %q requires a non-empty list", p.column)
			}
			if err := validate.Value(list); err != nil {
				return "", err
			}
			placeholders := make([]string, len(list))
			for i, item := range list {
				*args = append(*args, item)
				placeholders[i] = fmt.Sprintf("$%d", len(*args))
			}
			parts = append(parts, col+" IN ("+strings.Join(placeholders, ", ")+")")

		default:
			sqlOp, ok := comparisons[p.op]
			if !ok {
				return "", validate.Errorf(p.op, "unknown filter operator %q on column %q", p.op, p.column)
			}
			if p.value == nil {
				// Binding NULL into "= $n" never matches any row. Lower the
				// two equality forms to IS [NOT] NULL and reject the rest.
				switch p.op {
				case "eq":
					parts = append(parts, col+" IS NULL")
				case "neq":
					parts = append(parts, col+" IS NOT NULL")
				default:
					return "", validate.Errorf(nil, "operator %q on column %q does not accept null", p.op, p.column)
				}
				continue
			}
			if err := validate.Scalar(p.value); err != nil {
				return "", err
			}
			*args = append(*args, p.value)
			parts = append(parts, fmt.Sprintf("%s %s $%d", col, sqlOp, len(*args)))
		}
	}
	return strings.Join(parts, " AND "), nil
}

// Select compiles a read. Risk is always RiskSafe.
func (b *Builder) Select(tbl Table, columns []string, filters map[string]any, order []Order, page Page) (*Statement, error) {
	rel, err := tbl.qualified()
	if err != nil {
		return nil, err
	}

	colList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			if err := validate.Identifier(c); err != nil {
				return nil, err
			}
			quoted[i] = quote(c)
		}
		colList = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	var args []any
	sb.WriteString("SELECT " + colList + " FROM " + rel)

	if preds := flatten(filters); len(preds) > 0 {
		where, err := whereSQL(preds, &args)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" WHERE " + where)
	}

	if len(order) > 0 {
		terms := make([]string, len(order))
		for i, o := range order {
			if err := validate.Identifier(o.Column); err != nil {
				return nil, err
			}
			var dir string
			switch strings.ToLower(o.Direction) {
			case "asc":
				dir = "ASC"
			case "desc":
				dir = "DESC"
			default:
				return nil, validate.Errorf(o.Direction, "sort direction on %q must be asc or desc", o.Column)
			}
			terms[i] = quote(o.Column) + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}

	if page.Limit != nil {
		n := *page.Limit
		if n < 0 {
			return nil, validate.Errorf(n, "limit must not be negative")
		}
		if n > b.cfg.MaxLimit {
			return nil, validate.Errorf(n, "limit exceeds maximum of %d", b.cfg.MaxLimit)
		}
		fmt.Fprintf(&sb, " LIMIT %d", n)
	}
	if page.Offset < 0 {
		return nil, validate.Errorf(page.Offset, "offset must not be negative")
	}
	if page.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", page.Offset)
	}

	return &Statement{SQL: sb.String(), Args: args, Risk: RiskSafe}, nil
}

// Insert compiles a single- or multi-row insert. The column list comes from
// the first record's keys (sorted); in sparse mode, keys unique to later
// records are appended in discovery order. Risk is always RiskWrite.
func (b *Builder) Insert(tbl Table, records []map[string]any) (*Statement, error) {
	rel, err := tbl.qualified()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, validate.Errorf(nil, "insert requires at least one record")
	}

	columns := sortedKeys(records[0])
	if len(columns) == 0 {
		return nil, validate.Errorf(nil, "insert record 0 has no columns")
	}
	if b.cfg.AllowSparseRecords {
		seen := make(map[string]struct{}, len(columns))
		for _, c := range columns {
			seen[c] = struct{}{}
		}
		for _, rec := range records[1:] {
			for _, c := range sortedKeys(rec) {
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					columns = append(columns, c)
				}
			}
		}
	} else {
		for i, rec := range records[1:] {
			if len(rec) != len(columns) {
				return nil, validate.Errorf(nil, "heterogeneous insert batch: record %d has %d columns, record 0 has %d", i+1, len(rec), len(columns))
			}
			for _, c := range columns {
				if _, ok := rec[c]; !ok {
					return nil, validate.Errorf(c, "heterogeneous insert batch: record %d is missing column %q", i+1, c)
				}
			}
		}
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		if err := validate.Identifier(c); err != nil {
			return nil, err
		}
		quoted[i] = quote(c)
	}

	var args []any
	rows := make([]string, len(records))
	for i, rec := range records {
		placeholders := make([]string, len(columns))
		for j, c := range columns {
			v := rec[c] // absent keys (sparse mode) bind NULL
			if err := validate.Scalar(v); err != nil {
				return nil, err
			}
			args = append(args, v)
			placeholders[j] = fmt.Sprintf("$%d", len(args))
		}
		rows[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	sql := "INSERT INTO " + rel + " (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(rows, ", ")
	return &Statement{SQL: sql, Args: args, Risk: RiskWrite}, nil
}

// Update compiles a scoped update. An empty filter map is rejected — an
// unscoped update would rewrite the whole table. Risk is RiskWrite, escalated
// to RiskDestructive by a fixed rule: when no predicate is a membership test
// (eq or in), the filter is treated as matching a broad row set.
func (b *Builder) Update(tbl Table, updates map[string]any, filters map[string]any) (*Statement, error) {
	rel, err := tbl.qualified()
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, validate.Errorf(nil, "update requires at least one column to set")
	}
	preds := flatten(filters)
	if len(preds) == 0 {
		return nil, validate.Errorf(nil, "update requires at least one filter predicate")
	}

	var args []any
	setParts := make([]string, 0, len(updates))
	for _, c := range sortedKeys(updates) {
		if err := validate.Identifier(c); err != nil {
			return nil, err
		}
		if err := validate.Scalar(updates[c]); err != nil {
			return nil, err
		}
		args = append(args, updates[c])
		setParts = append(setParts, fmt.Sprintf("%s = $%d", quote(c), len(args)))
	}

	where, err := whereSQL(preds, &args)
	if err != nil {
		return nil, err
	}

	risk := RiskWrite
	if !hasMembershipPredicate(preds) {
		risk = RiskDestructive
	}

	sql := "UPDATE " + rel + " SET " + strings.Join(setParts, ", ") + " WHERE " + where
	return &Statement{SQL: sql, Args: args, Risk: risk}, nil
}

// Delete compiles a scoped delete. The same empty-filter guard as Update
// applies. Risk is always RiskDestructive.
func (b *Builder) Delete(tbl Table, filters map[string]any) (*Statement, error) {
	rel, err := tbl.qualified()
	if err != nil {
		return nil, err
	}
	preds := flatten(filters)
	if len(preds) == 0 {
		return nil, validate.Errorf(nil, "delete requires at least one filter predicate")
	}

	var args []any
	where, err := whereSQL(preds, &args)
	if err != nil {
		return nil, err
	}

	sql := "DELETE FROM " + rel + " WHERE " + where
	return &Statement{SQL: sql, Args: args, Risk: RiskDestructive}, nil
}

// hasMembershipPredicate reports whether any predicate pins rows to specific
// values (eq or in).
func hasMembershipPredicate(preds []predicate) bool {
	for _, p := range preds {
		if p.op == "eq" || p.op == "in" {
			return true
		}
	}
	return false
}

// quote wraps an already-validated identifier in double quotes. Validation
// guarantees the name contains no quote characters.
func quote(name string) string {
	return `"` + name + `"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
