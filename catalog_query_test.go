package schemamcp

import (
	"strconv"
	"strings"
	"testing"

	"github.com/rickchristie/supabase-schema-mcp/internal/catalogquery"
	"github.com/rickchristie/supabase-schema-mcp/internal/protection"
)

type builtQuery struct {
	name string
	q    *catalogquery.Query
}

func allCatalogQueries(schemaName, tableName string) []builtQuery {
	list := ListInput{SchemaName: schemaName}
	filtered := TableFilterInput{SchemaName: schemaName, TableName: tableName}
	return []builtQuery{
		{ToolListTables, listTablesQuery(list)},
		{ToolListColumns, listColumnsQuery(filtered)},
		{ToolListViews, listViewsQuery(list)},
		{ToolListEnums, listEnumsQuery(list)},
		{ToolListRLSPolicies, listRLSPoliciesQuery(list)},
		{ToolListRLSCoverage, listRLSCoverageQuery(list)},
		{ToolGetRLSPolicy, getRLSPolicyDefinitionQuery(GetRLSPolicyInput{SchemaName: schemaName, TableName: "t", PolicyName: "p"})},
		{ToolListFunctions, listFunctionsQuery(list)},
		{ToolListRPCCandidates, listRPCCandidatesQuery(list)},
		{ToolGetFunctionDef, getFunctionDefinitionQuery(GetFunctionInput{SchemaName: schemaName, FunctionName: "f"})},
		{ToolListForeignKeys, listForeignKeysQuery(list)},
		{ToolListIndexes, listIndexesQuery(filtered)},
		{ToolListTriggers, listTriggersQuery(filtered)},
	}
}

func TestCatalogQueriesAreSingleSelects(t *testing.T) {
	t.Parallel()
	checker := protection.NewChecker()
	for _, scope := range []string{"", "all", "auth"} {
		for _, table := range []string{"", "profiles"} {
			for _, bq := range allCatalogQueries(scope, table) {
				sql, _ := bq.q.Build()
				if err := checker.Check(sql); err != nil {
					t.Errorf("%s (schema=%q table=%q) rejected: %v\n%s", bq.name, scope, table, err, sql)
				}
			}
		}
	}
}

func TestCatalogQueriesOrdinalsMatchArgs(t *testing.T) {
	t.Parallel()
	for _, scope := range []string{"", "all", "auth"} {
		for _, table := range []string{"", "profiles"} {
			for _, bq := range allCatalogQueries(scope, table) {
				sql, args := bq.q.Build()
				for i := 1; i <= len(args); i++ {
					if !strings.Contains(sql, "$"+strconv.Itoa(i)) {
						t.Errorf("%s: missing $%d for %d args\n%s", bq.name, i, len(args), sql)
					}
				}
				if strings.Contains(sql, "$"+strconv.Itoa(len(args)+1)) {
					t.Errorf("%s: placeholder beyond %d args\n%s", bq.name, len(args), sql)
				}
			}
		}
	}
}

func TestAllScopeExcludesSystemSchemasWithoutArgument(t *testing.T) {
	t.Parallel()
	sql, args := listTablesQuery(ListInput{SchemaName: "all"}).Build()
	if len(args) != 0 {
		t.Fatalf("expected no args for all-schema scope, got %v", args)
	}
	if !strings.Contains(sql, "NOT IN ('pg_catalog', 'information_schema')") {
		t.Fatalf("expected system schema exclusion:\n%s", sql)
	}

	sql, args = listIndexesQuery(TableFilterInput{SchemaName: "all", TableName: "orders"}).Build()
	if len(args) != 1 || args[0] != "orders" || !strings.Contains(sql, "c.relname = $1") {
		t.Fatalf("table filter must take $1 when no schema is bound: %v\n%s", args, sql)
	}
}

func TestDefaultScopeIsPublic(t *testing.T) {
	t.Parallel()
	_, args := listColumnsQuery(TableFilterInput{TableName: "profiles"}).Build()
	if len(args) != 2 || args[0] != "public" || args[1] != "profiles" {
		t.Fatalf("expected [public profiles], got %v", args)
	}

	_, args = getRLSPolicyDefinitionQuery(GetRLSPolicyInput{TableName: "t", PolicyName: "p"}).Build()
	if len(args) != 3 || args[0] != "public" {
		t.Fatalf("expected public as first arg, got %v", args)
	}
}

func TestSingletonQueriesBindAllNames(t *testing.T) {
	t.Parallel()
	sql, args := getFunctionDefinitionQuery(GetFunctionInput{SchemaName: "auth", FunctionName: "uid"}).Build()
	if len(args) != 2 || args[0] != "auth" || args[1] != "uid" {
		t.Fatalf("unexpected args %v", args)
	}
	if !strings.HasSuffix(sql, "LIMIT 1") {
		t.Fatalf("function lookup must return one overload:\n%s", sql)
	}
}
