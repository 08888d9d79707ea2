package schemamcp

import (
	"context"
	"fmt"
	"time"

	"github.com/rickchristie/supabase-schema-mcp/internal/catalogquery"
)

// One row per column pair; unnest WITH ORDINALITY keeps composite keys paired.
const listForeignKeysSQL = `
SELECT
    n.nspname::text AS from_schema,
    c.relname::text AS from_table,
    a.attname::text AS from_column,
    fn.nspname::text AS to_schema,
    fc.relname::text AS to_table,
    fa.attname::text AS to_column,
    con.conname::text AS constraint_name,
    con.confupdtype::text AS update_action,
    con.confdeltype::text AS delete_action
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_class fc ON fc.oid = con.confrelid
JOIN pg_catalog.pg_namespace fn ON fn.oid = fc.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
JOIN pg_catalog.pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = k.fattnum`

// One row per key column; groupIndexes merges them.
const listIndexesSQL = `
SELECT
    n.nspname::text AS schema_name,
    c.relname::text AS table_name,
    i.relname::text AS index_name,
    a.attname::text AS column_name,
    ix.indisunique AS is_unique,
    ix.indisprimary AS is_primary,
    pg_catalog.pg_get_indexdef(ix.indexrelid) AS definition
FROM pg_catalog.pg_index ix
JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
JOIN pg_catalog.pg_class c ON c.oid = ix.indrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid
    AND a.attnum = ANY(ix.indkey)
    AND a.attnum > 0
    AND NOT a.attisdropped`

// ListForeignKeys returns foreign key column pairs ordered by schema, table,
// constraint and key position.
func (p *SchemaMcp) ListForeignKeys(ctx context.Context, input ListInput) ([]ForeignKeyRecord, error) {
	startTime := time.Now()
	q := listForeignKeysQuery(input)

	rows, err := p.fetch(ctx, ToolListForeignKeys, q, nil)
	if err != nil {
		return nil, fmt.Errorf("ListForeignKeys: %w", err)
	}
	fks := shapeForeignKeys(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Int("row_count", len(fks)).
		Msg("ListForeignKeys executed")

	return fks, nil
}

// ListIndexes returns one record per index with columns in key order,
// optionally for one table.
func (p *SchemaMcp) ListIndexes(ctx context.Context, input TableFilterInput) ([]IndexRecord, error) {
	startTime := time.Now()
	q := listIndexesQuery(input)

	rows, err := p.fetch(ctx, ToolListIndexes, q, indexesText)
	if err != nil {
		return nil, fmt.Errorf("ListIndexes: %w", err)
	}
	indexes := groupIndexes(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Str("table", input.TableName).
		Int("row_count", len(indexes)).
		Msg("ListIndexes executed")

	return indexes, nil
}

func listForeignKeysQuery(input ListInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listForeignKeysSQL).
		Where("con.contype = 'f'").
		Where("con.conparentid = 0").
		WhereSchema("n.nspname", schema, all).
		OrderBy("n.nspname, c.relname, con.conname, k.ord")
}

func listIndexesQuery(input TableFilterInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listIndexesSQL).
		Where("c.relkind IN ('r', 'm', 'p')").
		WhereSchema("n.nspname", schema, all).
		WhereOptional("c.relname = ?", input.TableName).
		OrderBy("n.nspname, c.relname, i.relname, array_position(ix.indkey::int2[], a.attnum)")
}
