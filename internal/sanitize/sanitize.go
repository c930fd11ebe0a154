// Package sanitize masks sensitive fragments in result rows before they are
// returned to the AI client. Rules are regex replacements applied to string
// values, recursing into JSONB objects and arrays.
package sanitize

import (
	"fmt"
	"regexp"
)

// Rule pairs a regex pattern with its replacement.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiled struct {
	re          *regexp.Regexp
	replacement string
}

// Masker applies an ordered rule list to result rows.
type Masker struct {
	rules []compiled
}

// New compiles the rule patterns. Returns an error on an invalid regex.
func New(rules []Rule) (*Masker, error) {
	compiledRules := make([]compiled, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiledRules[i] = compiled{re: re, replacement: r.Replacement}
	}
	return &Masker{rules: compiledRules}, nil
}

// Apply masks every field value in rows, in place, and returns rows.
// With no rules configured it is a no-op.
func (m *Masker) Apply(rows []map[string]any) []map[string]any {
	if len(m.rules) == 0 {
		return rows
	}
	for _, row := range rows {
		for k, v := range row {
			row[k] = m.mask(v)
		}
	}
	return rows
}

func (m *Masker) mask(v any) any {
	switch val := v.(type) {
	case string:
		for _, rule := range m.rules {
			val = rule.re.ReplaceAllString(val, rule.replacement)
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = m.mask(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = m.mask(item)
		}
		return val
	default:
		// Numbers, bools, nil pass through untouched.
		return v
	}
}
