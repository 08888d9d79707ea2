package schemamcp

// ScopeAll selects every schema except pg_catalog and information_schema.
const ScopeAll = "all"

// DefaultSchema is used when no schema is given.
const DefaultSchema = "public"

// ListInput is the input for operations scoped by schema only.
// SchemaName is a schema name, "all", or empty for "public".
type ListInput struct {
	SchemaName string `json:"schema_name"`
}

// TableFilterInput is the input for operations with an optional table filter.
type TableFilterInput struct {
	SchemaName string `json:"schema_name"`
	TableName  string `json:"table_name,omitempty"`
}

// GetRLSPolicyInput identifies one policy. All fields are required.
type GetRLSPolicyInput struct {
	SchemaName string `json:"schema_name"`
	TableName  string `json:"table_name"`
	PolicyName string `json:"policy_name"`
}

// GetFunctionInput identifies one function by name. Overloads resolve to the
// first by argument list.
type GetFunctionInput struct {
	SchemaName   string `json:"schema_name"`
	FunctionName string `json:"function_name"`
}

// TableRecord is one base table.
type TableRecord struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Type   string `json:"type"`
}

// ColumnRecord is one column of a table or view.
type ColumnRecord struct {
	Schema   string  `json:"schema"`
	Table    string  `json:"table"`
	Column   string  `json:"column"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default"`
}

// ViewRecord is one view with a bounded preview of its definition.
type ViewRecord struct {
	Schema            string `json:"schema"`
	View              string `json:"view"`
	DefinitionPreview string `json:"definition_preview"`
}

// EnumRecord is one enum type with labels in declared sort order.
type EnumRecord struct {
	Schema string   `json:"schema"`
	Enum   string   `json:"enum"`
	Labels []string `json:"labels"`
}

// RLSPolicyRecord is one row-level-security policy. Using and WithCheck are
// nil when the policy has no such clause.
type RLSPolicyRecord struct {
	Schema    string   `json:"schema"`
	Table     string   `json:"table"`
	Policy    string   `json:"policy"`
	Command   string   `json:"command"` // SELECT, INSERT, UPDATE, DELETE, ALL
	Type      string   `json:"type"`    // PERMISSIVE, RESTRICTIVE
	Roles     []string `json:"roles"`
	Using     *string  `json:"using"`
	WithCheck *string  `json:"with_check"`
}

// RLSCoverageRecord summarizes RLS state for one table.
type RLSCoverageRecord struct {
	Schema      string `json:"schema"`
	Table       string `json:"table"`
	RLSEnabled  bool   `json:"rls_enabled"`
	RLSForced   bool   `json:"rls_forced"`
	PolicyCount int64  `json:"policy_count"`
}

// FunctionRecord is one function or procedure.
type FunctionRecord struct {
	Schema          string `json:"schema"`
	Function        string `json:"function"`
	Arguments       string `json:"arguments"`
	ReturnType      string `json:"return_type"`
	SecurityDefiner bool   `json:"security_definer"`
	Volatility      string `json:"volatility"` // IMMUTABLE, STABLE, VOLATILE, unknown
}

// RPCCandidateRecord is a function callable as a Supabase RPC.
type RPCCandidateRecord struct {
	Schema     string `json:"schema"`
	Function   string `json:"function"`
	Arguments  string `json:"arguments"`
	ReturnType string `json:"return_type"`
}

// FunctionDefinition is one function with its full CREATE statement.
type FunctionDefinition struct {
	Schema          string `json:"schema"`
	Function        string `json:"function"`
	Arguments       string `json:"arguments"`
	ReturnType      string `json:"return_type"`
	Language        string `json:"language"`
	SecurityDefiner bool   `json:"security_definer"`
	Volatility      string `json:"volatility"`
	Definition      string `json:"definition"`
}

// ForeignKeyRecord is one column pair of a foreign key constraint. Composite
// keys produce one record per column pair.
type ForeignKeyRecord struct {
	FromSchema     string `json:"from_schema"`
	FromTable      string `json:"from_table"`
	FromColumn     string `json:"from_column"`
	ToSchema       string `json:"to_schema"`
	ToTable        string `json:"to_table"`
	ToColumn       string `json:"to_column"`
	ConstraintName string `json:"constraint_name"`
	OnUpdate       string `json:"on_update"`
	OnDelete       string `json:"on_delete"`
}

// IndexRecord is one index; Columns follow the index key order.
type IndexRecord struct {
	Schema     string   `json:"schema"`
	Table      string   `json:"table"`
	Index      string   `json:"index"`
	Columns    []string `json:"columns"`
	IsUnique   bool     `json:"is_unique"`
	IsPrimary  bool     `json:"is_primary"`
	Definition string   `json:"definition"`
}

// TriggerRecord is one trigger event. A trigger firing on several events
// produces one record per event.
type TriggerRecord struct {
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Trigger string `json:"trigger"`
	Timing  string `json:"timing"`
	Event   string `json:"event"`
	Action  string `json:"action"`
}
