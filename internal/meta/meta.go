// Package meta holds build metadata.
package meta

// Version is overridden at build time with
// -ldflags "-X github.com/rickchristie/supabase-schema-mcp/internal/meta.Version=v1.2.3".
var Version = "dev"
