package schemamcp

import (
	"context"
	"fmt"
	"time"

	"github.com/rickchristie/supabase-schema-mcp/internal/catalogquery"
)

// Roles: polroles '{0}' means PUBLIC.
const listPoliciesSQL = `
SELECT
    n.nspname::text AS schema_name,
    c.relname::text AS table_name,
    pol.polname::text AS policy_name,
    pol.polcmd::text AS command,
    pol.polpermissive AS permissive,
    CASE
        WHEN pol.polroles = '{0}'::oid[] THEN ARRAY['public']::text[]
        ELSE ARRAY(
            SELECT r.rolname::text
            FROM pg_catalog.pg_roles r
            WHERE r.oid = ANY(pol.polroles)
            ORDER BY r.rolname
        )
    END AS roles,
    pg_catalog.pg_get_expr(pol.polqual, pol.polrelid) AS using_expr,
    pg_catalog.pg_get_expr(pol.polwithcheck, pol.polrelid) AS with_check_expr
FROM pg_catalog.pg_policy pol
JOIN pg_catalog.pg_class c ON c.oid = pol.polrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace`

const listCoverageSQL = `
SELECT
    n.nspname::text AS schema_name,
    c.relname::text AS table_name,
    c.relrowsecurity AS rls_enabled,
    c.relforcerowsecurity AS rls_forced,
    (SELECT count(*) FROM pg_catalog.pg_policy pol WHERE pol.polrelid = c.oid) AS policy_count
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace`

// ListRLSPolicies returns row-level-security policies ordered by schema,
// table and policy name.
func (p *SchemaMcp) ListRLSPolicies(ctx context.Context, input ListInput) ([]RLSPolicyRecord, error) {
	startTime := time.Now()
	q := listRLSPoliciesQuery(input)

	rows, err := p.fetch(ctx, ToolListRLSPolicies, q, policiesText)
	if err != nil {
		return nil, fmt.Errorf("ListRLSPolicies: %w", err)
	}
	policies := shapePolicies(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Int("row_count", len(policies)).
		Msg("ListRLSPolicies executed")

	return policies, nil
}

// ListRLSCoverage reports, for every table, whether RLS is enabled or forced
// and how many policies exist. Tables without RLS are included so gaps show.
func (p *SchemaMcp) ListRLSCoverage(ctx context.Context, input ListInput) ([]RLSCoverageRecord, error) {
	startTime := time.Now()
	q := listRLSCoverageQuery(input)

	rows, err := p.fetch(ctx, ToolListRLSCoverage, q, nil)
	if err != nil {
		return nil, fmt.Errorf("ListRLSCoverage: %w", err)
	}
	coverage := shapeCoverage(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Int("row_count", len(coverage)).
		Msg("ListRLSCoverage executed")

	return coverage, nil
}

// GetRLSPolicyDefinition returns one policy by exact schema, table and policy
// name. Returns nil, nil when no such policy exists.
func (p *SchemaMcp) GetRLSPolicyDefinition(ctx context.Context, input GetRLSPolicyInput) (*RLSPolicyRecord, error) {
	startTime := time.Now()
	q := getRLSPolicyDefinitionQuery(input)

	row, err := p.fetchOne(ctx, ToolGetRLSPolicy, q, policiesText)
	if err != nil {
		return nil, fmt.Errorf("GetRLSPolicyDefinition: %w", err)
	}

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Str("table", input.TableName).
		Str("policy", input.PolicyName).
		Bool("found", row != nil).
		Msg("GetRLSPolicyDefinition executed")

	if row == nil {
		return nil, nil
	}
	policy := shapePolicy(row)
	return &policy, nil
}

func listRLSPoliciesQuery(input ListInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listPoliciesSQL).
		WhereSchema("n.nspname", schema, all).
		OrderBy("n.nspname, c.relname, pol.polname")
}

func listRLSCoverageQuery(input ListInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listCoverageSQL).
		Where("c.relkind IN ('r', 'p')").
		WhereSchema("n.nspname", schema, all).
		OrderBy("n.nspname, c.relname")
}

func getRLSPolicyDefinitionQuery(input GetRLSPolicyInput) *catalogquery.Query {
	schema := input.SchemaName
	if schema == "" {
		schema = DefaultSchema
	}

	return catalogquery.New(listPoliciesSQL).
		WhereArg("n.nspname = ?", schema).
		WhereArg("c.relname = ?", input.TableName).
		WhereArg("pol.polname = ?", input.PolicyName)
}
