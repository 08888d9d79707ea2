package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	schemamcp "github.com/rickchristie/supabase-schema-mcp"
	"github.com/rickchristie/supabase-schema-mcp/internal/configure"
	"github.com/rickchristie/supabase-schema-mcp/internal/management"
	"github.com/rickchristie/supabase-schema-mcp/internal/meta"
)

// DoctorCmd checks the configuration and prints agent snippets.
type DoctorCmd struct {
	NoPing bool `help:"Skip the database and Management API checks."`
}

func (d *DoctorCmd) Run(ctx *Context) error {
	return doctor(os.Stderr, isTTY(os.Stderr.Fd()), doctorOptions{
		ConfigPath: ctx.ConfigPath,
		EnvFile:    ctx.EnvFile,
		Ping:       !d.NoPing,
		Binary:     binaryPath(),
	})
}

type doctorOptions struct {
	ConfigPath string
	EnvFile    string
	Ping       bool
	Binary     string
}

const doctorPingTimeout = 10 * time.Second

func doctor(w io.Writer, useColor bool, opts doctorOptions) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "sbschemamcp %s\n\n", meta.Version)

	config, ok := doctorCheckConfig(w, useColor, opts)
	if ok && opts.Ping {
		ok = doctorCheckConnectivity(w, useColor, config)
	}
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'sbschemamcp doctor' again.")
		return nil
	}

	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config, opts.Binary)
	return nil
}

// doctorCheckConfig loads and validates the configuration, printing check
// results. Returns the config and true if all checks passed.
func doctorCheckConfig(w io.Writer, useColor bool, opts doctorOptions) (*schemamcp.ServerConfig, bool) {
	loaded, err := configure.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Configuration loads: %v", err))
		return nil, false
	}
	if loaded.ConfigFileFound {
		printCheck(w, useColor, true, fmt.Sprintf("Config file loaded (%s)", loaded.ConfigPath))
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("No config file at %s, using defaults", loaded.ConfigPath))
	}
	printCheck(w, useColor, loaded.EnvFileFound, fmt.Sprintf("Env file found (%s)", loaded.EnvFile))

	allPassed := loaded.EnvFileFound
	config := loaded.Config

	if errs := configure.Validate(config); len(errs) > 0 {
		for _, err := range errs {
			printCheck(w, useColor, false, err.Error())
		}
		allPassed = false
	} else {
		printCheck(w, useColor, true, "Configuration values are valid")
	}

	if missing := configure.MissingConnection(config); len(missing) > 0 {
		printCheck(w, useColor, false, "Database variables set (missing: "+strings.Join(missing, ", ")+")")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("Database variables set (%s@%s/%s)",
			config.Connection.User, config.Connection.Host, config.Connection.DBName))
	}

	if !config.ReadOnly {
		printCheck(w, useColor, false, "Read-only sessions (DB_READ_ONLY=false)")
		allPassed = false
	} else {
		printCheck(w, useColor, true, "Read-only sessions")
	}

	return config, allPassed
}

// doctorCheckConnectivity pings the database and, when configured, the
// Management API.
func doctorCheckConnectivity(w io.Writer, useColor bool, config *schemamcp.ServerConfig) bool {
	ctx, cancel := context.WithTimeout(context.Background(), doctorPingTimeout)
	defer cancel()

	ok := true
	engine := schemamcp.New(config.Config, zerolog.Nop())
	defer engine.Close(ctx)
	if err := engine.Ping(ctx); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database reachable: %v", err))
		ok = false
	} else {
		printCheck(w, useColor, true, "Database reachable")
	}

	mgmt := config.Management
	client := management.New(mgmt.BaseURL, mgmt.ProjectRef, mgmt.ServiceRoleKey)
	if !client.Configured() {
		printCheck(w, useColor, true, "Management API not configured (optional)")
		return ok
	}
	info, err := client.ProjectInfo(ctx)
	switch {
	case err != nil:
		printCheck(w, useColor, false, fmt.Sprintf("Management API reachable: %v", err))
		ok = false
	case info == nil:
		printCheck(w, useColor, false, fmt.Sprintf("Management API returned no project for %s", mgmt.ProjectRef))
		ok = false
	default:
		printCheck(w, useColor, true, fmt.Sprintf("Management API project %s (%s)", info.Name, info.Ref))
	}
	return ok
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	mark, c := "✓", color.New(color.FgGreen)
	if !pass {
		mark, c = "✗", color.New(color.FgRed)
	}
	if useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	fmt.Fprintf(w, "  %s %s\n", c.Sprint(mark), msg)
}

// agentSnippet is one client's configuration block.
type agentSnippet struct {
	Title  string
	Intro  string
	Config map[string]any
}

// agentSnippets returns the per-client configuration for the transport.
func agentSnippets(config *schemamcp.ServerConfig, binary string) []agentSnippet {
	url := fmt.Sprintf("http://localhost:%d/mcp", config.Server.Port)
	isHTTP := config.Server.Transport == "http"

	servers := func(key string, entry map[string]any) map[string]any {
		return map[string]any{key: map[string]any{serverKey: entry}}
	}
	stdioEntry := func(extra map[string]any) map[string]any {
		entry := map[string]any{"command": binary, "args": []string{"serve"}}
		for k, v := range extra {
			entry[k] = v
		}
		return entry
	}

	if isHTTP {
		return []agentSnippet{
			{
				Title:  "Claude Code",
				Intro:  fmt.Sprintf("Run: claude mcp add --transport http %s %s\nOr add to .mcp.json (project scope):", serverKey, url),
				Config: servers("mcpServers", map[string]any{"type": "http", "url": url}),
			},
			{Title: "Copilot CLI (~/.copilot/mcp-config.json)", Config: servers("mcpServers", map[string]any{"type": "http", "url": url})},
			{Title: "Gemini CLI (~/.gemini/settings.json)", Config: servers("mcpServers", map[string]any{"httpUrl": url})},
			{Title: "OpenCode (opencode.json)", Config: servers("mcp", map[string]any{"type": "remote", "url": url})},
			{Title: "Cursor (.cursor/mcp.json)", Config: servers("mcpServers", map[string]any{"url": url})},
			{Title: "Windsurf (~/.codeium/windsurf/mcp_config.json)", Config: servers("mcpServers", map[string]any{"serverUrl": url})},
		}
	}

	return []agentSnippet{
		{
			Title:  "Claude Code",
			Intro:  fmt.Sprintf("Run: claude mcp add %s -- %s serve\nOr add to .mcp.json (project scope):", serverKey, binary),
			Config: servers("mcpServers", stdioEntry(nil)),
		},
		{Title: "Copilot CLI (~/.copilot/mcp-config.json)", Config: servers("mcpServers", stdioEntry(map[string]any{"type": "local", "tools": []string{"*"}}))},
		{Title: "Gemini CLI (~/.gemini/settings.json)", Config: servers("mcpServers", stdioEntry(nil))},
		{Title: "OpenCode (opencode.json)", Config: servers("mcp", map[string]any{"type": "local", "command": []string{binary, "serve"}})},
		{Title: "Cursor (.cursor/mcp.json)", Config: servers("mcpServers", stdioEntry(nil))},
		{Title: "Windsurf (~/.codeium/windsurf/mcp_config.json)", Config: servers("mcpServers", stdioEntry(nil))},
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI agents.
func printAgentSnippets(w io.Writer, useColor bool, config *schemamcp.ServerConfig, binary string) {
	heading := color.New(color.FgCyan, color.Bold)
	subheading := color.New(color.Bold)
	if !useColor {
		heading.DisableColor()
		subheading.DisableColor()
	} else {
		heading.EnableColor()
		subheading.EnableColor()
	}

	heading.Fprintln(w, "Agent Connection Snippets")
	fmt.Fprintln(w)

	for _, s := range agentSnippets(config, binary) {
		subheading.Fprintf(w, "  %s\n", s.Title)
		if s.Intro != "" {
			for _, line := range strings.Split(s.Intro, "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
			fmt.Fprintln(w)
		}
		data, _ := json.MarshalIndent(s.Config, "  ", "  ")
		fmt.Fprintf(w, "  %s\n\n", highlightJSON(string(data), useColor))
	}
}
