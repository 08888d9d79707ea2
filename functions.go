package schemamcp

import (
	"context"
	"fmt"
	"time"

	"github.com/rickchristie/supabase-schema-mcp/internal/catalogquery"
)

const listFunctionsSQL = `
SELECT
    n.nspname::text AS schema_name,
    p.proname::text AS function_name,
    pg_catalog.pg_get_function_arguments(p.oid) AS arguments,
    pg_catalog.pg_get_function_result(p.oid) AS return_type,
    p.prosecdef AS security_definer,
    p.provolatile::text AS volatility
FROM pg_catalog.pg_proc p
JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace`

const listRPCCandidatesSQL = `
SELECT
    n.nspname::text AS schema_name,
    p.proname::text AS function_name,
    pg_catalog.pg_get_function_arguments(p.oid) AS arguments,
    pg_catalog.pg_get_function_result(p.oid) AS return_type
FROM pg_catalog.pg_proc p
JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace`

const getFunctionDefinitionSQL = `
SELECT
    n.nspname::text AS schema_name,
    p.proname::text AS function_name,
    pg_catalog.pg_get_function_arguments(p.oid) AS arguments,
    pg_catalog.pg_get_function_result(p.oid) AS return_type,
    l.lanname::text AS language,
    p.prosecdef AS security_definer,
    p.provolatile::text AS volatility,
    pg_catalog.pg_get_functiondef(p.oid) AS definition
FROM pg_catalog.pg_proc p
JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
JOIN pg_catalog.pg_language l ON l.oid = p.prolang`

// ListFunctions returns functions and procedures ordered by schema, name and
// argument list.
func (p *SchemaMcp) ListFunctions(ctx context.Context, input ListInput) ([]FunctionRecord, error) {
	startTime := time.Now()
	q := listFunctionsQuery(input)

	rows, err := p.fetch(ctx, ToolListFunctions, q, functionsText)
	if err != nil {
		return nil, fmt.Errorf("ListFunctions: %w", err)
	}
	functions := shapeFunctions(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Int("row_count", len(functions)).
		Msg("ListFunctions executed")

	return functions, nil
}

// ListRPCCandidates returns plain functions callable through PostgREST
// /rpc: procedures, aggregates, and trigger functions are left out.
func (p *SchemaMcp) ListRPCCandidates(ctx context.Context, input ListInput) ([]RPCCandidateRecord, error) {
	startTime := time.Now()
	q := listRPCCandidatesQuery(input)

	rows, err := p.fetch(ctx, ToolListRPCCandidates, q, functionsText)
	if err != nil {
		return nil, fmt.Errorf("ListRPCCandidates: %w", err)
	}
	candidates := shapeRPCCandidates(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Int("row_count", len(candidates)).
		Msg("ListRPCCandidates executed")

	return candidates, nil
}

// GetFunctionDefinition returns the full CREATE statement of a function or
// procedure. Overloads resolve to the first by identity arguments.
// Returns nil, nil when no such function exists.
func (p *SchemaMcp) GetFunctionDefinition(ctx context.Context, input GetFunctionInput) (*FunctionDefinition, error) {
	startTime := time.Now()
	q := getFunctionDefinitionQuery(input)

	row, err := p.fetchOne(ctx, ToolGetFunctionDef, q, functionDefinitionText)
	if err != nil {
		return nil, fmt.Errorf("GetFunctionDefinition: %w", err)
	}

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Str("function", input.FunctionName).
		Bool("found", row != nil).
		Msg("GetFunctionDefinition executed")

	if row == nil {
		return nil, nil
	}
	def := shapeFunctionDefinition(row)
	return &def, nil
}

func listFunctionsQuery(input ListInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listFunctionsSQL).
		Where("p.prokind IN ('f', 'p')").
		WhereSchema("n.nspname", schema, all).
		OrderBy("n.nspname, p.proname, pg_catalog.pg_get_function_arguments(p.oid)")
}

func listRPCCandidatesQuery(input ListInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listRPCCandidatesSQL).
		Where("p.prokind = 'f'").
		Where("p.prorettype NOT IN ('pg_catalog.trigger'::regtype, 'pg_catalog.event_trigger'::regtype)").
		WhereSchema("n.nspname", schema, all).
		OrderBy("n.nspname, p.proname, pg_catalog.pg_get_function_arguments(p.oid)")
}

func getFunctionDefinitionQuery(input GetFunctionInput) *catalogquery.Query {
	schema := input.SchemaName
	if schema == "" {
		schema = DefaultSchema
	}

	return catalogquery.New(getFunctionDefinitionSQL).
		Where("p.prokind IN ('f', 'p')").
		WhereArg("n.nspname = ?", schema).
		WhereArg("p.proname = ?", input.FunctionName).
		OrderBy("pg_catalog.pg_get_function_identity_arguments(p.oid)").
		Limit(1)
}
