package protection

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Checker validates that SQL handed to the executor is a single plain SELECT.
// Connections are already read-only at the session level; the checker stops a
// malformed or non-SELECT statement before a connection is acquired.
type Checker struct{}

// NewChecker creates a new Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Check parses SQL with pg_query_go and walks the AST.
// Returns nil if allowed, descriptive error if blocked.
func (c *Checker) Check(sql string) error {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return fmt.Errorf("SQL parse error: %w", err)
	}

	if len(result.Stmts) == 0 {
		return fmt.Errorf("SQL parse error: empty query")
	}

	if len(result.Stmts) > 1 {
		return fmt.Errorf("multi-statement queries are not allowed: found %d statements", len(result.Stmts))
	}

	return c.checkNode(result.Stmts[0].Stmt)
}

// checkNode requires node to be a SELECT and checks it recursively.
func (c *Checker) checkNode(node *pg_query.Node) error {
	if node == nil {
		return fmt.Errorf("SQL parse error: empty statement")
	}
	sel, ok := node.Node.(*pg_query.Node_SelectStmt)
	if !ok {
		return fmt.Errorf("only SELECT statements are allowed: got %s", statementName(node))
	}
	return c.checkSelect(sel.SelectStmt)
}

func (c *Checker) checkSelect(stmt *pg_query.SelectStmt) error {
	if stmt == nil {
		return nil
	}
	if stmt.IntoClause != nil {
		return fmt.Errorf("SELECT INTO is not allowed: creates a table")
	}
	if len(stmt.LockingClause) > 0 {
		return fmt.Errorf("SELECT ... FOR UPDATE/SHARE is not allowed: acquires row locks")
	}
	if err := c.checkCTEs(stmt.WithClause); err != nil {
		return err
	}
	// UNION / INTERSECT / EXCEPT branches
	if err := c.checkSelect(stmt.Larg); err != nil {
		return err
	}
	return c.checkSelect(stmt.Rarg)
}

// checkCTEs checks each CTE's subquery. Data-modifying CTEs are rejected.
func (c *Checker) checkCTEs(withClause *pg_query.WithClause) error {
	if withClause == nil {
		return nil
	}
	for _, cte := range withClause.Ctes {
		cteNode, ok := cte.Node.(*pg_query.Node_CommonTableExpr)
		if !ok {
			continue
		}
		if err := c.checkNode(cteNode.CommonTableExpr.Ctequery); err != nil {
			return fmt.Errorf("CTE %q: %w", cteNode.CommonTableExpr.Ctename, err)
		}
	}
	return nil
}

func statementName(node *pg_query.Node) string {
	switch node.Node.(type) {
	case *pg_query.Node_InsertStmt:
		return "INSERT"
	case *pg_query.Node_UpdateStmt:
		return "UPDATE"
	case *pg_query.Node_DeleteStmt:
		return "DELETE"
	case *pg_query.Node_MergeStmt:
		return "MERGE"
	case *pg_query.Node_VariableSetStmt:
		return "SET"
	case *pg_query.Node_ExplainStmt:
		return "EXPLAIN"
	case *pg_query.Node_DoStmt:
		return "DO"
	case *pg_query.Node_CopyStmt:
		return "COPY"
	default:
		return "non-SELECT statement"
	}
}
