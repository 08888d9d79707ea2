package main

import (
	"os"

	"github.com/rickchristie/supabase-schema-mcp/internal/configure"
)

// ConfigureCmd writes connection settings to the .env file.
type ConfigureCmd struct{}

func (c *ConfigureCmd) Run(ctx *Context) error {
	printBanner(os.Stderr, isTTY(os.Stderr.Fd()))
	return configure.Run(ctx.EnvFile)
}
