package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rickchristie/supabase-schema-mcp/internal/management"
	"github.com/rickchristie/supabase-schema-mcp/internal/meta"
)

// serverKey is the name agents register the server under.
const serverKey = "supabase-schema-mcp"

// isTTY returns true if the given file descriptor is a terminal.
func isTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

var bannerLines = []string{
	`     _         _                                         `,
	` ___| |__  ___| |__   ___ _ __ ___   __ _ _ __ ___   ___ _ __  `,
	`/ __| '_ \/ __| '_ \ / _ \ '_ ' _ \ / _' | '_ ' _ \ / __| '_ \ `,
	`\__ \ |_) \__ \ | | |  __/ | | | | | (_| | | | | | | (__| |_) |`,
	`|___/_.__/|___/_| |_|\___|_| |_| |_|\__,_|_| |_| |_|\___| .__/ `,
	`                                                        |_|    `,
}

// Supabase green fading to teal.
var bannerColors = []string{"#3ECF8E", "#3ECF8E", "#34B88A", "#2AA285", "#208C80", "#16767B"}

// printBanner prints the sbschemamcp ASCII art banner. Styles are bound to a
// renderer for w so color detection follows stderr rather than stdout.
func printBanner(w io.Writer, useColor bool) {
	r := lipgloss.NewRenderer(w)
	for i, line := range bannerLines {
		if useColor {
			style := r.NewStyle().Bold(true).Foreground(lipgloss.Color(bannerColors[i%len(bannerColors)]))
			line = style.Render(line)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

// startupInfo is everything printed to stderr before serving.
type startupInfo struct {
	Binary    string
	Transport string
	Port      int
	Project   *management.ProjectInfo
	Warnings  []string
}

// printStartup prints the banner, the MCP client snippet, project info and
// configuration warnings. It never writes to stdout, which stdio transport
// owns.
func printStartup(w io.Writer, useColor bool, info startupInfo) {
	printBanner(w, useColor)
	r := lipgloss.NewRenderer(w)

	fmt.Fprintln(w, panel(r, "sbschemamcp "+meta.Version, versionBody(info), useColor, false))

	snippet := clientSnippet(info)
	fmt.Fprintln(w, panel(r, "Add to your MCP client config", highlightJSON(snippet, useColor), useColor, false))

	if len(info.Warnings) > 0 {
		fmt.Fprintln(w, panel(r, "Warnings", strings.Join(info.Warnings, "\n"), useColor, true))
	}
}

func versionBody(info startupInfo) string {
	lines := []string{"Transport: " + info.Transport}
	if info.Transport == "http" {
		lines = append(lines, fmt.Sprintf("Endpoint:  http://localhost:%d/mcp", info.Port))
	}
	if p := info.Project; p != nil {
		lines = append(lines, fmt.Sprintf("Project:   %s (%s)", p.Name, p.Ref))
		if p.Region != "" {
			lines = append(lines, "Region:    "+p.Region)
		}
	}
	return strings.Join(lines, "\n")
}

// clientSnippet renders the mcpServers entry for the running transport.
func clientSnippet(info startupInfo) string {
	var entry map[string]any
	if info.Transport == "http" {
		entry = map[string]any{
			"type": "http",
			"url":  fmt.Sprintf("http://localhost:%d/mcp", info.Port),
		}
	} else {
		entry = map[string]any{
			"command": info.Binary,
			"args":    []string{"serve"},
		}
	}
	data, _ := json.MarshalIndent(map[string]any{
		"mcpServers": map[string]any{serverKey: entry},
	}, "", "  ")
	return string(data)
}

// binaryPath returns the absolute path of the running executable, falling
// back to the command name.
func binaryPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "sbschemamcp"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		return resolved
	}
	return exe
}

// highlightJSON colors src for a 256-color terminal. Without color, or if
// chroma fails, src is returned unchanged.
func highlightJSON(src string, useColor bool) string {
	if !useColor {
		return src
	}
	lexer := lexers.Get("json")
	if lexer == nil {
		return src
	}
	lexer = chroma.Coalesce(lexer)
	style := styles.Get("monokai")
	formatter := formatters.Get("terminal256")

	iter, err := lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iter); err != nil {
		return src
	}
	return strings.TrimRight(b.String(), "\n")
}

// panel draws body inside a rounded border with a bold title line.
func panel(r *lipgloss.Renderer, title, body string, useColor, warn bool) string {
	titleStyle := r.NewStyle().Bold(true)
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	if useColor {
		accent := lipgloss.Color("#3ECF8E")
		if warn {
			accent = lipgloss.Color("#E5C07B")
		}
		titleStyle = titleStyle.Foreground(accent)
		box = box.BorderForeground(accent)
	}

	return box.Render(titleStyle.Render(title) + "\n\n" + body)
}
