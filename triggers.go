package schemamcp

import (
	"context"
	"fmt"
	"time"

	"github.com/rickchristie/supabase-schema-mcp/internal/catalogquery"
)

const listTriggersSQL = `
SELECT
    tr.event_object_schema::text AS schema_name,
    tr.event_object_table::text AS table_name,
    tr.trigger_name::text AS trigger_name,
    tr.action_timing::text AS timing,
    tr.event_manipulation::text AS event,
    tr.action_statement::text AS action
FROM information_schema.triggers tr`

// ListTriggers returns one record per trigger event, optionally for one table.
func (p *SchemaMcp) ListTriggers(ctx context.Context, input TableFilterInput) ([]TriggerRecord, error) {
	startTime := time.Now()
	q := listTriggersQuery(input)

	rows, err := p.fetch(ctx, ToolListTriggers, q, triggersText)
	if err != nil {
		return nil, fmt.Errorf("ListTriggers: %w", err)
	}
	triggers := shapeTriggers(rows)

	p.logger.Info().
		Dur("duration", time.Since(startTime)).
		Str("schema", scopeLabel(input.SchemaName)).
		Str("table", input.TableName).
		Int("row_count", len(triggers)).
		Msg("ListTriggers executed")

	return triggers, nil
}

func listTriggersQuery(input TableFilterInput) *catalogquery.Query {
	schema, all := resolveScope(input.SchemaName)

	return catalogquery.New(listTriggersSQL).
		WhereSchema("tr.event_object_schema", schema, all).
		WhereOptional("tr.event_object_table = ?", input.TableName).
		OrderBy("tr.event_object_schema, tr.event_object_table, tr.trigger_name, tr.event_manipulation")
}
