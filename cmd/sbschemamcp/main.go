package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rickchristie/supabase-schema-mcp/internal/meta"
)

// CLI is the root command. Every subcommand reads the same .env and YAML
// configuration.
type CLI struct {
	Config  string           `help:"Path to the YAML config file (default $SBSCHEMA_CONFIG_PATH or .sbschema/config.yaml)." type:"path"`
	EnvFile string           `help:"Path to the .env file." default:".env" type:"path"`
	Version kong.VersionFlag `help:"Print version and exit."`

	Serve     ServeCmd     `cmd:"" default:"withargs" help:"Start the MCP server."`
	Doctor    DoctorCmd    `cmd:"" help:"Check configuration and database connectivity."`
	Configure ConfigureCmd `cmd:"" help:"Run the interactive configuration wizard."`
}

// Context carries global flags to subcommands.
type Context struct {
	ConfigPath string
	EnvFile    string
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("sbschemamcp"),
		kong.Description("Supabase schema introspection MCP server."),
		kong.UsageOnError(),
		kong.Vars{"version": meta.Version},
	)

	if err := ctx.Run(&Context{ConfigPath: cli.Config, EnvFile: cli.EnvFile}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
