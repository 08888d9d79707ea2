package schemamcp_test

// Verifies the Go types pgx returns for the catalog expressions the queries
// select, under QueryExecModeExec and pgx.RowToMap. The row accessors in
// shape.go only understand string, bool, integer, text[] and nil values.

import (
	"context"
	"testing"
	"time"

	"github.com/rickchristie/supabase-schema-mcp/internal/session"
)

func newTestExecutor(t *testing.T) *session.Executor {
	t.Helper()
	conn := connectionFromConnString(t, acquireTestDB(t))
	mgr := session.NewManager(session.Config{
		Host:           conn.Host,
		Port:           conn.Port,
		Database:       conn.DBName,
		User:           conn.User,
		Password:       conn.Password,
		SSLMode:        conn.SSLMode,
		ReadOnly:       true,
		MaxConns:       2,
		ConnectTimeout: 10 * time.Second,
	}, testLogger())
	t.Cleanup(mgr.Shutdown)
	return session.NewExecutor(mgr)
}

func TestPgxType_CatalogExpressions(t *testing.T) {
	t.Parallel()
	exec := newTestExecutor(t)

	row, err := exec.FetchOne(context.Background(), `
SELECT
    n.nspname::text AS name_text,
    'r'::"char"::text AS char_text,
    true AS flag,
    (SELECT count(*) FROM pg_catalog.pg_namespace) AS counted,
    ARRAY['b', 'a']::text[] AS labels,
    NULL::text AS missing
FROM pg_catalog.pg_namespace n
WHERE n.nspname = 'pg_catalog'`)
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if row == nil {
		t.Fatal("expected a row")
	}

	if v, ok := row["name_text"].(string); !ok || v != "pg_catalog" {
		t.Errorf("name_text: got %T %v", row["name_text"], row["name_text"])
	}
	if v, ok := row["char_text"].(string); !ok || v != "r" {
		t.Errorf("char_text: got %T %v", row["char_text"], row["char_text"])
	}
	if v, ok := row["flag"].(bool); !ok || !v {
		t.Errorf("flag: got %T %v", row["flag"], row["flag"])
	}
	if v, ok := row["counted"].(int64); !ok || v <= 0 {
		t.Errorf("counted: got %T %v", row["counted"], row["counted"])
	}
	switch v := row["labels"].(type) {
	case []any:
		if len(v) != 2 || v[0] != "b" || v[1] != "a" {
			t.Errorf("labels: got %v", v)
		}
	case []string:
		if len(v) != 2 || v[0] != "b" || v[1] != "a" {
			t.Errorf("labels: got %v", v)
		}
	default:
		t.Errorf("labels: unexpected type %T", row["labels"])
	}
	if row["missing"] != nil {
		t.Errorf("missing: expected nil, got %T %v", row["missing"], row["missing"])
	}
	t.Logf("decoded catalog row: %#v", row)
}

func TestPgxType_EmptyArrayAggregate(t *testing.T) {
	t.Parallel()
	exec := newTestExecutor(t)

	row, err := exec.FetchOne(context.Background(), `SELECT ARRAY(SELECT 'x'::text WHERE false) AS roles`)
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	switch v := row["roles"].(type) {
	case []any:
		if len(v) != 0 {
			t.Errorf("expected empty array, got %v", v)
		}
	case []string:
		if len(v) != 0 {
			t.Errorf("expected empty array, got %v", v)
		}
	default:
		t.Errorf("roles: unexpected type %T", row["roles"])
	}
}
