package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rickchristie/supabase-schema-mcp/internal/configure"
)

// Note: Tests using t.Setenv() cannot use t.Parallel() in Go.

// clearEnv unsets every variable configure.Load reads. godotenv.Load sets
// process variables, so this also undoes what an env file loaded.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range append([]string{configure.ConfigPathEnv}, configure.EnvKeys...) {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// writeFixture writes an env file and a config file into a temp dir.
func writeFixture(t *testing.T, env, yaml string) doctorOptions {
	t.Helper()
	dir := t.TempDir()
	opts := doctorOptions{
		ConfigPath: filepath.Join(dir, "config.yaml"),
		EnvFile:    filepath.Join(dir, ".env"),
		Binary:     "/usr/local/bin/sbschemamcp",
	}
	if env != "" {
		if err := os.WriteFile(opts.EnvFile, []byte(env), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(opts.ConfigPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return opts
}

const validEnv = "SUPABASE_DB_HOST=db.abcd.supabase.co\nSUPABASE_DB_USER=postgres\nSUPABASE_DB_PASSWORD=secret\n"

func TestDoctorValidConfig(t *testing.T) {
	clearEnv(t)
	opts := writeFixture(t, validEnv, "logging:\n  level: debug\n")

	var buf bytes.Buffer
	if err := doctor(&buf, false, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if strings.Contains(output, "✗") {
		t.Fatalf("expected all checks to pass, but found failures in output:\n%s", output)
	}
	for _, want := range []string{
		"Config file loaded",
		"Env file found",
		"Configuration values are valid",
		"Database variables set (postgres@db.abcd.supabase.co/postgres)",
		"Read-only sessions",
		"Agent Connection Snippets",
		"claude mcp add supabase-schema-mcp -- /usr/local/bin/sbschemamcp serve",
		"Windsurf",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "secret") {
		t.Errorf("password must not be printed:\n%s", output)
	}
}

func TestDoctorMissingEnvFile(t *testing.T) {
	clearEnv(t)
	opts := writeFixture(t, "", "")

	var buf bytes.Buffer
	if err := doctor(&buf, false, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "✗ Env file found") {
		t.Errorf("expected env file failure:\n%s", output)
	}
	if !strings.Contains(output, "missing: SUPABASE_DB_HOST, SUPABASE_DB_USER, SUPABASE_DB_PASSWORD") {
		t.Errorf("expected missing variables listed:\n%s", output)
	}
	if !strings.Contains(output, "Fix the issues above") {
		t.Errorf("expected fix hint:\n%s", output)
	}
	if strings.Contains(output, "Agent Connection Snippets") {
		t.Errorf("snippets must not be printed when checks fail:\n%s", output)
	}
}

func TestDoctorInvalidValues(t *testing.T) {
	clearEnv(t)
	opts := writeFixture(t, validEnv+"DB_READ_ONLY=false\n", `
server:
  transport: grpc
sanitization:
  - pattern: "["
    replacement: x
`)

	var buf bytes.Buffer
	if err := doctor(&buf, false, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"✗ server.transport must be one of",
		"✗ sanitization[0] regex",
		"✗ Read-only sessions (DB_READ_ONLY=false)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestDoctorUnparsableConfig(t *testing.T) {
	clearEnv(t)
	opts := writeFixture(t, validEnv, "server: [broken")

	var buf bytes.Buffer
	if err := doctor(&buf, false, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✗ Configuration loads") {
		t.Fatalf("expected load failure:\n%s", buf.String())
	}
}

func TestDoctorPingUnreachableDatabase(t *testing.T) {
	clearEnv(t)
	opts := writeFixture(t, "SUPABASE_DB_HOST=127.0.0.1\nSUPABASE_DB_PORT=1\nSUPABASE_DB_USER=u\nSUPABASE_DB_PASSWORD=p\nSUPABASE_DB_SSLMODE=disable\n", "")
	opts.Ping = true

	var buf bytes.Buffer
	if err := doctor(&buf, false, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "✗ Database reachable") {
		t.Errorf("expected ping failure:\n%s", output)
	}
	if !strings.Contains(output, "Management API not configured (optional)") {
		t.Errorf("expected optional Management API check:\n%s", output)
	}
}

func TestPrintCheckColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printCheck(&buf, true, true, "ok")
	printCheck(&buf, true, false, "bad")
	output := buf.String()
	if !strings.Contains(output, "\033[32m✓") || !strings.Contains(output, "\033[31m✗") {
		t.Fatalf("expected green and red marks, got %q", output)
	}

	buf.Reset()
	printCheck(&buf, false, true, "ok")
	if buf.String() != "  ✓ ok\n" {
		t.Fatalf("unexpected plain output %q", buf.String())
	}
}

func TestAgentSnippetsHTTP(t *testing.T) {
	t.Parallel()
	cfg := configure.DefaultServerConfig()
	cfg.Server.Transport = "http"
	cfg.Server.Port = 9000

	var buf bytes.Buffer
	printAgentSnippets(&buf, false, cfg, "sbschemamcp")
	output := buf.String()

	for _, want := range []string{
		"claude mcp add --transport http supabase-schema-mcp http://localhost:9000/mcp",
		`"httpUrl": "http://localhost:9000/mcp"`,
		`"serverUrl": "http://localhost:9000/mcp"`,
		`"type": "remote"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, `"command"`) {
		t.Errorf("http snippets must not carry a command:\n%s", output)
	}
}

func TestAgentSnippetsStdio(t *testing.T) {
	t.Parallel()
	snippets := agentSnippets(configure.DefaultServerConfig(), "/bin/sbschemamcp")
	if len(snippets) != 6 {
		t.Fatalf("expected 6 snippets, got %d", len(snippets))
	}
	opencode := snippets[3]
	if !strings.HasPrefix(opencode.Title, "OpenCode") {
		t.Fatalf("unexpected order, got %q", opencode.Title)
	}
	entry := opencode.Config["mcp"].(map[string]any)[serverKey].(map[string]any)
	cmd := entry["command"].([]string)
	if len(cmd) != 2 || cmd[0] != "/bin/sbschemamcp" || cmd[1] != "serve" {
		t.Fatalf("unexpected OpenCode command %v", cmd)
	}
}
