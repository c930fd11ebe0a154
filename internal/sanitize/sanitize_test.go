package sanitize

import (
	"testing"
)

var emailRule = Rule{
	Pattern:     `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+`,
	Replacement: "[redacted]",
}

func TestApplyMasksStrings(t *testing.T) {
	t.Parallel()
	m, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := []map[string]any{
		{"email": "john@x.com", "age": 30},
	}
	out := m.Apply(rows)
	if out[0]["email"] != "[redacted]" {
		t.Fatalf("expected redacted email, got %v", out[0]["email"])
	}
	if out[0]["age"] != 30 {
		t.Fatalf("expected age untouched, got %v", out[0]["age"])
	}
}

func TestApplyRecursesIntoNestedValues(t *testing.T) {
	t.Parallel()
	m, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := []map[string]any{
		{
			"profile":  map[string]any{"contact": "jane@x.com"},
			"mentions": []any{"bob@x.com", 42, nil},
		},
	}
	out := m.Apply(rows)
	profile := out[0]["profile"].(map[string]any)
	if profile["contact"] != "[redacted]" {
		t.Fatalf("expected nested redaction, got %v", profile["contact"])
	}
	mentions := out[0]["mentions"].([]any)
	if mentions[0] != "[redacted]" {
		t.Fatalf("expected list redaction, got %v", mentions[0])
	}
	if mentions[1] != 42 || mentions[2] != nil {
		t.Fatalf("expected non-strings untouched, got %v", mentions[1:])
	}
}

func TestRuleOrdering(t *testing.T) {
	t.Parallel()
	m, err := New([]Rule{
		{Pattern: `secret`, Replacement: "masked"},
		{Pattern: `masked`, Replacement: "***"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := []map[string]any{{"note": "a secret note"}}
	if got := m.Apply(rows)[0]["note"]; got != "a *** note" {
		t.Fatalf("expected rules applied in order, got %v", got)
	}
}

func TestNoRulesIsNoOp(t *testing.T) {
	t.Parallel()
	m, err := New(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := []map[string]any{{"email": "john@x.com"}}
	if m.Apply(rows)[0]["email"] != "john@x.com" {
		t.Fatal("expected no-op with no rules")
	}
}

func TestInvalidPattern(t *testing.T) {
	t.Parallel()
	if _, err := New([]Rule{{Pattern: `[bad`, Replacement: "x"}}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
