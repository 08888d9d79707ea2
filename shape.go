package schemamcp

import (
	"fmt"

	"github.com/rickchristie/supabase-schema-mcp/internal/session"
)

// PreviewLimit is the number of characters kept from a view definition.
const PreviewLimit = 500

const previewSuffix = "..."

// volatilityName maps pg_proc.provolatile.
func volatilityName(code string) string {
	switch code {
	case "i":
		return "IMMUTABLE"
	case "s":
		return "STABLE"
	case "v":
		return "VOLATILE"
	default:
		return "unknown"
	}
}

// policyCommandName maps pg_policy.polcmd.
func policyCommandName(code string) string {
	switch code {
	case "r":
		return "SELECT"
	case "a":
		return "INSERT"
	case "w":
		return "UPDATE"
	case "d":
		return "DELETE"
	default:
		return "ALL"
	}
}

// policyTypeName maps pg_policy.polpermissive.
func policyTypeName(permissive bool) string {
	if permissive {
		return "PERMISSIVE"
	}
	return "RESTRICTIVE"
}

// referentialActionName maps pg_constraint.confupdtype / confdeltype.
func referentialActionName(code string) string {
	switch code {
	case "a":
		return "NO ACTION"
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return "unknown"
	}
}

// truncatePreview keeps the first PreviewLimit characters of s and marks the
// cut with "...". Shorter strings are returned unchanged.
func truncatePreview(s string) string {
	runes := []rune(s)
	if len(runes) <= PreviewLimit {
		return s
	}
	return string(runes[:PreviewLimit]) + previewSuffix
}

// Free-text columns sanitization applies to, keyed by query column and named
// by the record's JSON field. Names, codes and flags are never listed, so
// code mapping always sees the catalog value.
var (
	columnsText            = map[string]string{"column_default": "default"}
	viewsText              = map[string]string{"definition": "definition_preview"}
	policiesText           = map[string]string{"using_expr": "using", "with_check_expr": "with_check"}
	functionsText          = map[string]string{"arguments": "arguments", "return_type": "return_type"}
	functionDefinitionText = map[string]string{"arguments": "arguments", "return_type": "return_type", "definition": "definition"}
	indexesText            = map[string]string{"definition": "definition"}
	triggersText           = map[string]string{"action": "action"}
)

// --- row accessors: missing and NULL values map to zero values ---

func rowString(row session.Row, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func rowStringPtr(row session.Row, key string) *string {
	if row[key] == nil {
		return nil
	}
	s := rowString(row, key)
	return &s
}

func rowBool(row session.Row, key string) bool {
	b, _ := row[key].(bool)
	return b
}

func rowInt(row session.Row, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

// rowStrings reads a text[] value. The result is never nil.
func rowStrings(row session.Row, key string) []string {
	switch v := row[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	default:
		return []string{}
	}
}

// --- shapers: one per operation, pure and total ---

func shapeTables(rows []session.Row) []TableRecord {
	out := make([]TableRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, TableRecord{
			Schema: rowString(r, "schema_name"),
			Table:  rowString(r, "table_name"),
			Type:   rowString(r, "table_type"),
		})
	}
	return out
}

func shapeColumns(rows []session.Row) []ColumnRecord {
	out := make([]ColumnRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ColumnRecord{
			Schema:   rowString(r, "schema_name"),
			Table:    rowString(r, "table_name"),
			Column:   rowString(r, "column_name"),
			DataType: rowString(r, "data_type"),
			Nullable: rowString(r, "is_nullable") == "YES",
			Default:  rowStringPtr(r, "column_default"),
		})
	}
	return out
}

func shapeViews(rows []session.Row) []ViewRecord {
	out := make([]ViewRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ViewRecord{
			Schema:            rowString(r, "schema_name"),
			View:              rowString(r, "view_name"),
			DefinitionPreview: truncatePreview(rowString(r, "definition")),
		})
	}
	return out
}

func shapeEnums(rows []session.Row) []EnumRecord {
	out := make([]EnumRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, EnumRecord{
			Schema: rowString(r, "schema_name"),
			Enum:   rowString(r, "enum_name"),
			Labels: rowStrings(r, "labels"),
		})
	}
	return out
}

func shapePolicy(r session.Row) RLSPolicyRecord {
	permissive := true
	if v, ok := r["permissive"].(bool); ok {
		permissive = v
	}
	return RLSPolicyRecord{
		Schema:    rowString(r, "schema_name"),
		Table:     rowString(r, "table_name"),
		Policy:    rowString(r, "policy_name"),
		Command:   policyCommandName(rowString(r, "command")),
		Type:      policyTypeName(permissive),
		Roles:     rowStrings(r, "roles"),
		Using:     rowStringPtr(r, "using_expr"),
		WithCheck: rowStringPtr(r, "with_check_expr"),
	}
}

func shapePolicies(rows []session.Row) []RLSPolicyRecord {
	out := make([]RLSPolicyRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, shapePolicy(r))
	}
	return out
}

func shapeCoverage(rows []session.Row) []RLSCoverageRecord {
	out := make([]RLSCoverageRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, RLSCoverageRecord{
			Schema:      rowString(r, "schema_name"),
			Table:       rowString(r, "table_name"),
			RLSEnabled:  rowBool(r, "rls_enabled"),
			RLSForced:   rowBool(r, "rls_forced"),
			PolicyCount: rowInt(r, "policy_count"),
		})
	}
	return out
}

func shapeFunctions(rows []session.Row) []FunctionRecord {
	out := make([]FunctionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, FunctionRecord{
			Schema:          rowString(r, "schema_name"),
			Function:        rowString(r, "function_name"),
			Arguments:       rowString(r, "arguments"),
			ReturnType:      rowString(r, "return_type"),
			SecurityDefiner: rowBool(r, "security_definer"),
			Volatility:      volatilityName(rowString(r, "volatility")),
		})
	}
	return out
}

func shapeRPCCandidates(rows []session.Row) []RPCCandidateRecord {
	out := make([]RPCCandidateRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, RPCCandidateRecord{
			Schema:     rowString(r, "schema_name"),
			Function:   rowString(r, "function_name"),
			Arguments:  rowString(r, "arguments"),
			ReturnType: rowString(r, "return_type"),
		})
	}
	return out
}

func shapeFunctionDefinition(r session.Row) FunctionDefinition {
	return FunctionDefinition{
		Schema:          rowString(r, "schema_name"),
		Function:        rowString(r, "function_name"),
		Arguments:       rowString(r, "arguments"),
		ReturnType:      rowString(r, "return_type"),
		Language:        rowString(r, "language"),
		SecurityDefiner: rowBool(r, "security_definer"),
		Volatility:      volatilityName(rowString(r, "volatility")),
		Definition:      rowString(r, "definition"),
	}
}

func shapeForeignKeys(rows []session.Row) []ForeignKeyRecord {
	out := make([]ForeignKeyRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ForeignKeyRecord{
			FromSchema:     rowString(r, "from_schema"),
			FromTable:      rowString(r, "from_table"),
			FromColumn:     rowString(r, "from_column"),
			ToSchema:       rowString(r, "to_schema"),
			ToTable:        rowString(r, "to_table"),
			ToColumn:       rowString(r, "to_column"),
			ConstraintName: rowString(r, "constraint_name"),
			OnUpdate:       referentialActionName(rowString(r, "update_action")),
			OnDelete:       referentialActionName(rowString(r, "delete_action")),
		})
	}
	return out
}

type indexKey struct {
	schema, table, index string
}

// groupIndexes merges per-column rows into one record per (schema, table,
// index). The first row of a key creates the record; later rows only append
// their column. Records and columns keep arrival order.
func groupIndexes(rows []session.Row) []IndexRecord {
	out := make([]IndexRecord, 0)
	pos := make(map[indexKey]int)
	for _, r := range rows {
		key := indexKey{
			schema: rowString(r, "schema_name"),
			table:  rowString(r, "table_name"),
			index:  rowString(r, "index_name"),
		}
		column := rowString(r, "column_name")
		if i, ok := pos[key]; ok {
			out[i].Columns = append(out[i].Columns, column)
			continue
		}
		pos[key] = len(out)
		out = append(out, IndexRecord{
			Schema:     key.schema,
			Table:      key.table,
			Index:      key.index,
			Columns:    []string{column},
			IsUnique:   rowBool(r, "is_unique"),
			IsPrimary:  rowBool(r, "is_primary"),
			Definition: rowString(r, "definition"),
		})
	}
	return out
}

func shapeTriggers(rows []session.Row) []TriggerRecord {
	out := make([]TriggerRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, TriggerRecord{
			Schema:  rowString(r, "schema_name"),
			Table:   rowString(r, "table_name"),
			Trigger: rowString(r, "trigger_name"),
			Timing:  rowString(r, "timing"),
			Event:   rowString(r, "event"),
			Action:  rowString(r, "action"),
		})
	}
	return out
}
