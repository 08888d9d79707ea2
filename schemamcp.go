package schemamcp

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/rickchristie/supabase-schema-mcp/internal/catalogquery"
	"github.com/rickchristie/supabase-schema-mcp/internal/errprompt"
	"github.com/rickchristie/supabase-schema-mcp/internal/sanitize"
	"github.com/rickchristie/supabase-schema-mcp/internal/session"
	"github.com/rickchristie/supabase-schema-mcp/internal/timeout"
)

// Tool names. Timeout rules match against these.
const (
	ToolListTables        = "schema_list_tables"
	ToolListColumns       = "schema_list_columns"
	ToolListViews         = "schema_list_views"
	ToolListEnums         = "schema_list_enums"
	ToolListRLSPolicies   = "rls_list_policies"
	ToolListRLSCoverage   = "rls_list_coverage"
	ToolGetRLSPolicy      = "rls_get_policy"
	ToolListFunctions     = "functions_list"
	ToolListRPCCandidates = "functions_list_rpc_candidates"
	ToolGetFunctionDef    = "functions_get_definition"
	ToolListForeignKeys   = "relationships_list_foreign_keys"
	ToolListIndexes       = "relationships_list_indexes"
	ToolListTriggers      = "triggers_list"
)

// SchemaMcp is the catalog introspection engine behind the MCP tools.
// All exported methods are safe for concurrent use from multiple goroutines.
type SchemaMcp struct {
	config     Config
	sessions   *session.Manager
	executor   *session.Executor
	sanitizer  *sanitize.Sanitizer
	errPrompts *errprompt.Matcher
	timeoutMgr *timeout.Manager
	logger     zerolog.Logger
}

// New creates a new SchemaMcp. No connection is made until the first
// operation or Init; missing connection settings surface then as
// *session.ConfigurationError.
// Panics on invalid config (pool bounds, timeouts, regex patterns).
func New(config Config, logger zerolog.Logger) *SchemaMcp {
	// --- Config validation (panics on invalid config) ---

	if config.Pool.MaxConns <= 0 {
		panic("schemamcp: pool.max_conns must be > 0")
	}
	if config.Pool.MinConns < 0 {
		panic("schemamcp: pool.min_conns must be >= 0")
	}
	if config.Pool.MinConns > config.Pool.MaxConns {
		panic(fmt.Sprintf("schemamcp: pool.min_conns (%d) must be <= pool.max_conns (%d)", config.Pool.MinConns, config.Pool.MaxConns))
	}
	if config.Pool.ConnectTimeoutSeconds < 0 {
		panic("schemamcp: pool.connect_timeout_seconds must be >= 0")
	}
	if config.Query.DefaultTimeoutSeconds <= 0 {
		panic("schemamcp: query.default_timeout_seconds must be > 0")
	}
	for _, rule := range config.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("schemamcp: timeout_rule with pattern %q has timeout_seconds <= 0", rule.Pattern))
		}
	}

	for i, rule := range config.Sanitization {
		for _, col := range rule.Columns {
			if !slices.Contains(SanitizableFields, col) {
				panic(fmt.Sprintf("schemamcp: sanitization[%d] column %q is not a sanitizable field", i, col))
			}
		}
	}

	// --- Initialize internal components ---

	san, err := sanitize.NewSanitizer(mapSanitizationRules(config.Sanitization))
	if err != nil {
		panic(fmt.Sprintf("schemamcp: %v", err))
	}
	matcher, err := errprompt.NewMatcher(mapErrorPromptRules(config.ErrorPrompts))
	if err != nil {
		panic(fmt.Sprintf("schemamcp: %v", err))
	}
	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	tmgr, err := timeout.NewManager(timeout.Config{
		DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
		Rules:          timeoutRules,
	})
	if err != nil {
		panic(fmt.Sprintf("schemamcp: %v", err))
	}

	sessions := session.NewManager(session.Config{
		Host:           config.Connection.Host,
		Port:           config.Connection.Port,
		Database:       config.Connection.DBName,
		User:           config.Connection.User,
		Password:       config.Connection.Password,
		SSLMode:        config.Connection.SSLMode,
		ReadOnly:       config.ReadOnly,
		MinConns:       int32(config.Pool.MinConns),
		MaxConns:       int32(config.Pool.MaxConns),
		ConnectTimeout: time.Duration(config.Pool.ConnectTimeoutSeconds) * time.Second,
	}, logger)

	return &SchemaMcp{
		config:     config,
		sessions:   sessions,
		executor:   session.NewExecutor(sessions),
		sanitizer:  san,
		errPrompts: matcher,
		timeoutMgr: tmgr,
		logger:     logger,
	}
}

// Init connects eagerly. Server mode calls it at startup so a bad
// configuration is reported before the first tool call.
func (p *SchemaMcp) Init(ctx context.Context) error {
	return p.sessions.Init(ctx)
}

// Ping checks that the database is reachable, creating the pool if needed.
func (p *SchemaMcp) Ping(ctx context.Context) error {
	return p.sessions.Ping(ctx)
}

// Close closes the connection pool. A later operation reconnects.
// Accepts context for API symmetry; pgxpool.Pool.Close() does not take one.
func (p *SchemaMcp) Close(ctx context.Context) {
	p.sessions.Shutdown()
}

// fetch runs q under the timeout for tool and returns rows with the
// sanitization rules applied to the free-text columns listed in text.
func (p *SchemaMcp) fetch(ctx context.Context, tool string, q *catalogquery.Query, text map[string]string) ([]session.Row, error) {
	queryCtx, cancel := context.WithTimeout(ctx, p.timeoutMgr.GetTimeout(tool))
	defer cancel()

	sql, args := q.Build()
	rows, err := p.executor.FetchAll(queryCtx, sql, args...)
	if err != nil {
		return nil, err
	}
	return p.sanitizer.SanitizeRows(rows, text), nil
}

// fetchOne is fetch for singleton lookups; it returns nil when nothing matches.
func (p *SchemaMcp) fetchOne(ctx context.Context, tool string, q *catalogquery.Query, text map[string]string) (session.Row, error) {
	rows, err := p.fetch(ctx, tool, q, text)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// resolveScope maps a schema_name argument to a schema and the all-schemas flag.
func resolveScope(schemaName string) (string, bool) {
	switch schemaName {
	case "":
		return DefaultSchema, false
	case ScopeAll:
		return "", true
	default:
		return schemaName, false
	}
}

// scopeLabel is the schema value written to logs.
func scopeLabel(schemaName string) string {
	if schemaName == "" {
		return DefaultSchema
	}
	return schemaName
}

// mapSanitizationRules converts schemamcp SanitizationRules to internal sanitize.Rules.
func mapSanitizationRules(rules []SanitizationRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
			Columns:     r.Columns,
		}
	}
	return result
}

// mapErrorPromptRules converts schemamcp ErrorPromptRules to internal errprompt.Rules.
func mapErrorPromptRules(rules []ErrorPromptRule) []errprompt.Rule {
	result := make([]errprompt.Rule, len(rules))
	for i, r := range rules {
		result[i] = errprompt.Rule{
			Pattern: r.Pattern,
			Code:    r.Code,
			Message: r.Message,
		}
	}
	return result
}

func defaultErrorPrompts() []ErrorPromptRule {
	defaults := errprompt.DefaultRules()
	result := make([]ErrorPromptRule, len(defaults))
	for i, r := range defaults {
		result[i] = ErrorPromptRule{
			Pattern: r.Pattern,
			Code:    r.Code,
			Message: r.Message,
		}
	}
	return result
}
