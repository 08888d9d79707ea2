package schemamcp

import (
	"context"
	"fmt"
	"time"

	"github.com/rickchristie/supabase-schema-mcp/internal/catalogquery"
)

const listTablesSQL = `
SELECT
    t.table_schema::text AS schema_name,
    t.table_name::text AS table_name,
    t.table_type::text AS table_type
FROM information_schema.tables t`

const listColumnsSQL = `
SELECT
    c.table_schema::text AS schema_name,
    c.table_name::text AS table_name,
    c.column_name::text AS column_name,
    c.data_type::text AS data_type,
    c.is_nullable::text AS is_nullable,
    c.column_default::text AS column_default
FROM information_schema.columns c`

const listViewsSQL = `
SELECT
    n.nspname::text AS schema_name,
    c.relname::text AS view_name,
    pg_catalog.pg_get_viewdef(c.oid) AS definition
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace`

const listEnumsSQL = `
SELECT
    n.nspname::text AS schema_name,
    t.typname::text AS enum_name,
    array_agg(e.enumlabel::text ORDER BY e.enumsortorder) AS labels
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid`

// ListTables returns base tables in the given schema scope, ordered by
// schema and table.
func (p *SchemaMcp) ListTables(ctx context.Context, input ListInput) ([]TableRecord, error) {
	startTime := time.Now()
	q := listTablesQuery(input)

	rows, err := p.fetch(ctx, ToolListTables, q, nil)
	if err != nil {
		return nil, fmt.Errorf("ListTables: %w", err)
	}
	tables := shapeTables(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Int("row_count", len(tables)).
		Msg("ListTables executed")

	return tables, nil
}

// ListColumns returns columns in ordinal order, optionally for one table.
func (p *SchemaMcp) ListColumns(ctx context.Context, input TableFilterInput) ([]ColumnRecord, error) {
	startTime := time.Now()
	q := listColumnsQuery(input)

	rows, err := p.fetch(ctx, ToolListColumns, q, columnsText)
	if err != nil {
		return nil, fmt.Errorf("ListColumns: %w", err)
	}
	columns := shapeColumns(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Str("table", input.TableName).
		Int("row_count", len(columns)).
		Msg("ListColumns executed")

	return columns, nil
}

// ListViews returns views with the first PreviewLimit characters of their
// definition.
func (p *SchemaMcp) ListViews(ctx context.Context, input ListInput) ([]ViewRecord, error) {
	startTime := time.Now()
	q := listViewsQuery(input)

	rows, err := p.fetch(ctx, ToolListViews, q, viewsText)
	if err != nil {
		return nil, fmt.Errorf("ListViews: %w", err)
	}
	views := shapeViews(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Int("row_count", len(views)).
		Msg("ListViews executed")

	return views, nil
}

// ListEnums returns enum types with labels in declared sort order.
func (p *SchemaMcp) ListEnums(ctx context.Context, input ListInput) ([]EnumRecord, error) {
	startTime := time.Now()
	q := listEnumsQuery(input)

	rows, err := p.fetch(ctx, ToolListEnums, q, nil)
	if err != nil {
		return nil, fmt.Errorf("ListEnums: %w", err)
	}
	enums := shapeEnums(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Int("row_count", len(enums)).
		Msg("ListEnums executed")

	return enums, nil
}

func listTablesQuery(input ListInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listTablesSQL).
		Where("t.table_type = 'BASE TABLE'").
		WhereSchema("t.table_schema", schema, all).
		OrderBy("t.table_schema, t.table_name")
}

func listColumnsQuery(input TableFilterInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listColumnsSQL).
		WhereSchema("c.table_schema", schema, all).
		WhereOptional("c.table_name = ?", input.TableName).
		OrderBy("c.table_schema, c.table_name, c.ordinal_position")
}

func listViewsQuery(input ListInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listViewsSQL).
		Where("c.relkind = 'v'").
		WhereSchema("n.nspname", schema, all).
		OrderBy("n.nspname, c.relname")
}

func listEnumsQuery(input ListInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listEnumsSQL).
		WhereSchema("n.nspname", schema, all).
		GroupBy("n.nspname, t.typname").
		OrderBy("n.nspname, t.typname")
}
