package schemamcp

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const schemaNameDescription = "Schema name, or 'all' for every schema except pg_catalog and information_schema. Defaults to 'public'."

// RegisterMCPTools registers the catalog introspection tools on the given
// MCP server. Every tool is read-only and returns indented JSON.
func RegisterMCPTools(mcpServer *server.MCPServer, p *SchemaMcp) {
	schemaArg := mcp.WithString("schema_name",
		mcp.Description(schemaNameDescription),
		mcp.DefaultString(DefaultSchema),
	)
	tableArg := mcp.WithString("table_name",
		mcp.Description("Only return results for this table."),
	)

	// --- schema ---

	mcpServer.AddTool(mcp.NewTool(ToolListTables,
		mcp.WithDescription("List base tables (schema, table, type)."),
		schemaArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListTables, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListTables(ctx, ListInput{SchemaName: req.GetString("schema_name", DefaultSchema)})
		return p.toolResult(out, err), nil
	}))

	mcpServer.AddTool(mcp.NewTool(ToolListColumns,
		mcp.WithDescription("List columns with data type, nullability and default, in column order. Optionally filter by table_name."),
		schemaArg,
		tableArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListColumns, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListColumns(ctx, TableFilterInput{
			SchemaName: req.GetString("schema_name", DefaultSchema),
			TableName:  req.GetString("table_name", ""),
		})
		return p.toolResult(out, err), nil
	}))

	mcpServer.AddTool(mcp.NewTool(ToolListViews,
		mcp.WithDescription("List views with the first 500 characters of each definition."),
		schemaArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListViews, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListViews(ctx, ListInput{SchemaName: req.GetString("schema_name", DefaultSchema)})
		return p.toolResult(out, err), nil
	}))

	mcpServer.AddTool(mcp.NewTool(ToolListEnums,
		mcp.WithDescription("List enum types with their labels in declared order."),
		schemaArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListEnums, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListEnums(ctx, ListInput{SchemaName: req.GetString("schema_name", DefaultSchema)})
		return p.toolResult(out, err), nil
	}))

	// --- rls ---

	mcpServer.AddTool(mcp.NewTool(ToolListRLSPolicies,
		mcp.WithDescription("List row-level-security policies: command, permissive/restrictive, roles, USING and WITH CHECK expressions."),
		schemaArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListRLSPolicies, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListRLSPolicies(ctx, ListInput{SchemaName: req.GetString("schema_name", DefaultSchema)})
		return p.toolResult(out, err), nil
	}))

	mcpServer.AddTool(mcp.NewTool(ToolListRLSCoverage,
		mcp.WithDescription("Audit RLS per table: whether it is enabled or forced and how many policies exist. Use it to find tables exposed without policies."),
		schemaArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListRLSCoverage, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListRLSCoverage(ctx, ListInput{SchemaName: req.GetString("schema_name", DefaultSchema)})
		return p.toolResult(out, err), nil
	}))

	mcpServer.AddTool(mcp.NewTool(ToolGetRLSPolicy,
		mcp.WithDescription("Get one RLS policy by exact schema, table and policy name. Returns {} when it does not exist."),
		mcp.WithString("schema_name", mcp.Required(), mcp.Description("Schema of the table")),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Table the policy belongs to")),
		mcp.WithString("policy_name", mcp.Required(), mcp.Description("Policy name")),
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolGetRLSPolicy, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, errResult := requireStrings(req, "schema_name", "table_name", "policy_name")
		if errResult != nil {
			return errResult, nil
		}
		out, err := p.GetRLSPolicyDefinition(ctx, GetRLSPolicyInput{
			SchemaName: input["schema_name"],
			TableName:  input["table_name"],
			PolicyName: input["policy_name"],
		})
		return p.toolResult(out, err), nil
	}))

	// --- functions ---

	mcpServer.AddTool(mcp.NewTool(ToolListFunctions,
		mcp.WithDescription("List functions and procedures with arguments, return type, SECURITY DEFINER flag and volatility."),
		schemaArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListFunctions, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListFunctions(ctx, ListInput{SchemaName: req.GetString("schema_name", DefaultSchema)})
		return p.toolResult(out, err), nil
	}))

	mcpServer.AddTool(mcp.NewTool(ToolListRPCCandidates,
		mcp.WithDescription("List functions that can be called as Supabase RPCs (supabase.rpc / PostgREST /rpc)."),
		schemaArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListRPCCandidates, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListRPCCandidates(ctx, ListInput{SchemaName: req.GetString("schema_name", DefaultSchema)})
		return p.toolResult(out, err), nil
	}))

	mcpServer.AddTool(mcp.NewTool(ToolGetFunctionDef,
		mcp.WithDescription("Get the full CREATE FUNCTION statement of a function. Returns {} when it does not exist."),
		mcp.WithString("schema_name", mcp.Required(), mcp.Description("Schema of the function")),
		mcp.WithString("function_name", mcp.Required(), mcp.Description("Function name")),
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolGetFunctionDef, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, errResult := requireStrings(req, "schema_name", "function_name")
		if errResult != nil {
			return errResult, nil
		}
		out, err := p.GetFunctionDefinition(ctx, GetFunctionInput{
			SchemaName:   input["schema_name"],
			FunctionName: input["function_name"],
		})
		return p.toolResult(out, err), nil
	}))

	// --- relationships ---

	mcpServer.AddTool(mcp.NewTool(ToolListForeignKeys,
		mcp.WithDescription("List foreign keys, one entry per column pair, with ON UPDATE / ON DELETE actions."),
		schemaArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListForeignKeys, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListForeignKeys(ctx, ListInput{SchemaName: req.GetString("schema_name", DefaultSchema)})
		return p.toolResult(out, err), nil
	}))

	mcpServer.AddTool(mcp.NewTool(ToolListIndexes,
		mcp.WithDescription("List indexes with their columns in key order, uniqueness and definition. Optionally filter by table_name."),
		schemaArg,
		tableArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListIndexes, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListIndexes(ctx, TableFilterInput{
			SchemaName: req.GetString("schema_name", DefaultSchema),
			TableName:  req.GetString("table_name", ""),
		})
		return p.toolResult(out, err), nil
	}))

	// --- triggers ---

	mcpServer.AddTool(mcp.NewTool(ToolListTriggers,
		mcp.WithDescription("List triggers with timing, event and action. Optionally filter by table_name."),
		schemaArg,
		tableArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), p.loggedToolHandler(ToolListTriggers, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := p.ListTriggers(ctx, TableFilterInput{
			SchemaName: req.GetString("schema_name", DefaultSchema),
			TableName:  req.GetString("table_name", ""),
		})
		return p.toolResult(out, err), nil
	}))
}

// requireStrings reads required string arguments. On the first missing one it
// returns a tool error result.
func requireStrings(req mcp.CallToolRequest, keys ...string) (map[string]string, *mcp.CallToolResult) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := req.RequireString(key)
		if err != nil || v == "" {
			return nil, mcp.NewToolResultError(key + " parameter is required")
		}
		values[key] = v
	}
	return values, nil
}

// toolResult renders an operation's output as indented JSON, or its error
// with matching error prompts appended. A nil singleton renders as {}.
func (p *SchemaMcp) toolResult(out any, err error) *mcp.CallToolResult {
	if err != nil {
		errMsg := err.Error()
		if prompt := p.errPrompts.MatchError(err); prompt != "" {
			errMsg = errMsg + "\n\n" + prompt
		}
		return mcp.NewToolResultError(errMsg)
	}
	if isNilPointer(out) {
		return mcp.NewToolResultText("{}")
	}
	jsonBytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to marshal result")
	}
	return mcp.NewToolResultText(string(jsonBytes))
}

func isNilPointer(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (p *SchemaMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startTime := time.Now()
		requestID := uuid.NewString()
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)

		event := p.logger.Info()
		if result != nil && result.IsError {
			event = p.logger.Warn()
		}
		event.
			Str("tool", tool).
			Str("request_id", requestID).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Dur("duration", time.Since(startTime)).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
