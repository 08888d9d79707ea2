package timeout

import (
	"strings"
	"testing"
	"time"
)

func TestMatchFirstRule(t *testing.T) {
	t.Parallel()
	m, err := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "^functions_", Timeout: 60 * time.Second},
			{Pattern: "^rls_", Timeout: 5 * time.Second},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := m.GetTimeout("functions_get_definition")
	if got != 60*time.Second {
		t.Errorf("expected 60s, got %v", got)
	}
}

func TestStopOnFirstMatch(t *testing.T) {
	t.Parallel()
	m, err := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "list", Timeout: 5 * time.Second},
			{Pattern: "rls_list", Timeout: 60 * time.Second},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, pattern := m.GetTimeoutWithPattern("rls_list_policies")
	if got != 5*time.Second {
		t.Errorf("expected 5s (first match wins), got %v", got)
	}
	if pattern != "list" {
		t.Errorf("expected pattern 'list', got %q", pattern)
	}
}

func TestDefaultTimeout(t *testing.T) {
	t.Parallel()
	m, err := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "^functions_", Timeout: 60 * time.Second},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, pattern := m.GetTimeoutWithPattern("schema_list_tables")
	if got != 30*time.Second {
		t.Errorf("expected 30s (default), got %v", got)
	}
	if pattern != "" {
		t.Errorf("expected empty pattern for default, got %q", pattern)
	}
}

func TestNoRules(t *testing.T) {
	t.Parallel()
	m, err := NewManager(Config{DefaultTimeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.GetTimeout("triggers_list"); got != 30*time.Second {
		t.Errorf("expected 30s (default), got %v", got)
	}
}

func TestInvalidRegex(t *testing.T) {
	t.Parallel()
	_, err := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules:          []Rule{{Pattern: "[invalid(", Timeout: time.Second}},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid regex") {
		t.Fatalf("expected invalid regex error, got %v", err)
	}
}

func TestNonPositiveTimeouts(t *testing.T) {
	t.Parallel()
	if _, err := NewManager(Config{}); err == nil {
		t.Fatal("expected error for zero default timeout")
	}
	_, err := NewManager(Config{
		DefaultTimeout: time.Second,
		Rules:          []Rule{{Pattern: "x", Timeout: 0}},
	})
	if err == nil {
		t.Fatal("expected error for zero rule timeout")
	}
}
