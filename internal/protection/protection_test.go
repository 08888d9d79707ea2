package protection

import (
	"strings"
	"testing"
)

func assertBlocked(t *testing.T, c *Checker, sql string, errContains string) {
	t.Helper()
	err := c.Check(sql)
	if err == nil {
		t.Fatalf("expected error containing %q for SQL %q, got nil", errContains, sql)
	}
	if !strings.Contains(err.Error(), errContains) {
		t.Fatalf("expected error containing %q, got %q", errContains, err.Error())
	}
}

func assertAllowed(t *testing.T, c *Checker, sql string) {
	t.Helper()
	if err := c.Check(sql); err != nil {
		t.Fatalf("expected SQL %q to be allowed, got error: %v", sql, err)
	}
}

func TestSelect_Allowed(t *testing.T) {
	t.Parallel()
	assertAllowed(t, NewChecker(), "SELECT 1")
}

func TestSelect_WithParameters(t *testing.T) {
	t.Parallel()
	assertAllowed(t, NewChecker(), "SELECT n.nspname FROM pg_namespace n WHERE n.nspname = $1 AND n.oid > $2")
}

func TestSelect_UnionAllowed(t *testing.T) {
	t.Parallel()
	assertAllowed(t, NewChecker(), "SELECT 1 UNION ALL SELECT 2")
}

func TestSelect_ReadOnlyCTEAllowed(t *testing.T) {
	t.Parallel()
	assertAllowed(t, NewChecker(), "WITH x AS (SELECT 1 AS a) SELECT a FROM x")
}

func TestMultiStatement_Blocked(t *testing.T) {
	t.Parallel()
	assertBlocked(t, NewChecker(), "SELECT 1; SELECT 2", "multi-statement")
}

func TestEmpty_Blocked(t *testing.T) {
	t.Parallel()
	for _, sql := range []string{"", ";"} {
		if err := NewChecker().Check(sql); err == nil {
			t.Fatalf("expected error for empty statement %q", sql)
		}
	}
}

func TestParseError(t *testing.T) {
	t.Parallel()
	assertBlocked(t, NewChecker(), "SELEC 1", "SQL parse error")
}

func TestWrites_Blocked(t *testing.T) {
	t.Parallel()
	c := NewChecker()
	assertBlocked(t, c, "INSERT INTO t VALUES (1)", "INSERT")
	assertBlocked(t, c, "UPDATE t SET a = 1 WHERE id = 1", "UPDATE")
	assertBlocked(t, c, "DELETE FROM t WHERE id = 1", "DELETE")
	assertBlocked(t, c, "DROP TABLE t", "only SELECT")
	assertBlocked(t, c, "SET default_transaction_read_only = off", "SET")
}

func TestSelectInto_Blocked(t *testing.T) {
	t.Parallel()
	assertBlocked(t, NewChecker(), "SELECT 1 INTO new_table", "SELECT INTO")
}

func TestSelectForUpdate_Blocked(t *testing.T) {
	t.Parallel()
	assertBlocked(t, NewChecker(), "SELECT * FROM t FOR UPDATE", "FOR UPDATE")
}

func TestDataModifyingCTE_Blocked(t *testing.T) {
	t.Parallel()
	assertBlocked(t, NewChecker(), "WITH d AS (DELETE FROM t RETURNING *) SELECT * FROM d", `CTE "d"`)
}

func TestUnionBranchForUpdate_Blocked(t *testing.T) {
	t.Parallel()
	assertBlocked(t, NewChecker(), "SELECT 1 UNION (SELECT a FROM t FOR SHARE)", "FOR UPDATE/SHARE")
}
