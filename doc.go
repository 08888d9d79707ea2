// Package schemamcp gives AI agents read-only insight into the structure of
// a Supabase (PostgreSQL) database through the Model Context Protocol (MCP).
//
// It answers catalog questions only: tables, columns, views, enums, row
// level security policies, functions, foreign keys, indexes and triggers.
// No user data is read and no user SQL is accepted. Every catalog query is a
// fixed SELECT with positional parameters, checked by pg_query before it
// reaches a read-only pooled session.
//
// # Library Usage
//
//	cfg := schemamcp.DefaultConfig()
//	cfg.Connection = schemamcp.ConnectionConfig{
//		Host:     "db.abcd.supabase.co",
//		Port:     5432,
//		DBName:   "postgres",
//		User:     "postgres",
//		Password: os.Getenv("SUPABASE_DB_PASSWORD"),
//		SSLMode:  "require",
//	}
//	p := schemamcp.New(cfg, logger)
//	defer p.Close(ctx)
//
//	// Use directly
//	tables, err := p.ListTables(ctx, schemamcp.ListInput{SchemaName: "public"})
//
//	// Or register as MCP tools
//	schemamcp.RegisterMCPTools(mcpServer, p)
//
// The pool is created on first use. Missing connection settings are reported
// then as a *session.ConfigurationError wrapped with the operation name, so
// a server can start before it is configured.
//
// # Schema scope
//
// Operations taking a schema name default to "public" and accept "all" for
// every schema except pg_catalog and information_schema.
// Results come back in a stable order and an unknown schema yields an empty
// list, never an error. Single-object lookups return nil when the object
// does not exist.
package schemamcp
