// Package validate guards SQL identifiers and literal values before they
// reach the query builder. Identifiers are matched against a restricted
// grammar and a reserved-keyword blocklist; literal values are restricted
// to a closed set of JSON-compatible scalar variants. Values never pass
// validation here to be interpolated into SQL text — they only ever travel
// through the bind-parameter path.
package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MaxIdentifierLength is the PostgreSQL identifier byte limit (NAMEDATALEN-1).
const MaxIdentifierLength = 63

// Error reports a rejected identifier or value. It never reaches the database.
type Error struct {
	Reason string
	Value  any
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation error: %s (value: %v)", e.Reason, e.Value)
}

// Errorf builds an *Error for the given offending value.
func Errorf(value any, format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...), Value: value}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedKeywords are SQL keywords rejected as bare identifiers. The set
// is intentionally narrow: Postgres reserved words that would change the
// meaning of a statement when spliced in as a quoted identifier should
// quoting ever be bypassed.
var reservedKeywords = map[string]struct{}{
	"all": {}, "alter": {}, "and": {}, "any": {}, "as": {}, "asc": {},
	"between": {}, "by": {}, "case": {}, "cast": {}, "create": {},
	"delete": {}, "desc": {}, "distinct": {}, "drop": {}, "else": {},
	"end": {}, "exists": {}, "from": {}, "grant": {}, "group": {},
	"having": {}, "in": {}, "insert": {}, "into": {}, "join": {},
	"like": {}, "limit": {}, "not": {}, "null": {}, "offset": {},
	"on": {}, "or": {}, "order": {}, "revoke": {}, "select": {},
	"set": {}, "table": {}, "then": {}, "truncate": {}, "union": {},
	"update": {}, "values": {}, "when": {}, "where": {}, "with": {},
}

// Identifier accepts a table, column, schema, or channel name matching
// ^[A-Za-z_][A-Za-z0-9_]*$, at most MaxIdentifierLength bytes long, and not
// a reserved SQL keyword (case-insensitive). It never truncates or strips
// characters — a malformed name is rejected outright.
func Identifier(name string) error {
	if name == "" {
		return Errorf(name, "identifier must not be empty")
	}
	if len(name) > MaxIdentifierLength {
		return Errorf(name, "identifier exceeds %d bytes", MaxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return Errorf(name, "identifier contains characters outside [A-Za-z0-9_] or starts with a digit")
	}
	if _, reserved := reservedKeywords[strings.ToLower(name)]; reserved {
		return Errorf(name, "identifier is a reserved SQL keyword")
	}
	return nil
}

// Scalar accepts a single literal value destined for a bind parameter:
// string, bool, nil, or any numeric variant produced by JSON decoding.
// Maps, lists, and everything else are rejected.
func Scalar(v any) error {
	switch v.(type) {
	case nil, string, bool,
		int, int32, int64, float32, float64,
		json.Number:
		return nil
	default:
		return Errorf(v, "unsupported literal type %T", v)
	}
}

// Value accepts a literal value or a flat list of literals (for IN filters).
// Nested lists and maps are rejected.
func Value(v any) error {
	if list, ok := v.([]any); ok {
		for i, item := range list {
			if err := Scalar(item); err != nil {
				return Errorf(item, "list element %d: unsupported literal type %T", i, item)
			}
		}
		return nil
	}
	return Scalar(v)
}
