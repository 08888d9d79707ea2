package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	schemamcp "github.com/rickchristie/supabase-schema-mcp"
	"github.com/rickchristie/supabase-schema-mcp/internal/configure"
	"github.com/rickchristie/supabase-schema-mcp/internal/management"
	"github.com/rickchristie/supabase-schema-mcp/internal/meta"
)

// ServeCmd starts the MCP server on stdio or streamable HTTP.
type ServeCmd struct {
	Transport string `help:"Override server.transport (stdio or http)."`
	Port      int    `help:"Override server.port for http transport."`
}

func (s *ServeCmd) Run(ctx *Context) error {
	// 1. Load and validate configuration
	loaded, err := configure.Load(ctx.ConfigPath, ctx.EnvFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := loaded.Config
	s.applyOverrides(cfg)
	if errs := configure.Validate(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n%w", errors.Join(errs...))
	}

	// 2. Setup logger
	logger := setupLogger(cfg.Logging, cfg.Server.Transport == "stdio")

	// 3. Project info, best effort
	project := fetchProjectInfo(cfg.Management, logger)

	// 4. Startup output on stderr
	printStartup(os.Stderr, isTTY(os.Stderr.Fd()), startupInfo{
		Binary:    binaryPath(),
		Transport: cfg.Server.Transport,
		Port:      cfg.Server.Port,
		Project:   project,
		Warnings:  configure.Warnings(cfg, loaded.EnvFileFound),
	})

	// 5. Create the engine. A database that is not reachable yet is not
	// fatal: every tool call retries and reports the error to the agent.
	bg := context.Background()
	engine := schemamcp.New(cfg.Config, logger)
	defer engine.Close(bg)

	if err := engine.Init(bg); err != nil {
		logger.Warn().Err(err).Msg("database not ready, tools will report the error until it is fixed")
	} else {
		logger.Info().Str("host", cfg.Connection.Host).Str("dbname", cfg.Connection.DBName).Msg("database connection ready")
	}

	// 6. Serve
	mcpServer := newMCPServer(engine, logger)
	if cfg.Server.Transport == "http" {
		return serveHTTP(mcpServer, cfg.Server, logger)
	}
	logger.Info().Msg("serving MCP over stdio")
	return server.ServeStdio(mcpServer)
}

func (s *ServeCmd) applyOverrides(cfg *schemamcp.ServerConfig) {
	if s.Transport != "" {
		cfg.Server.Transport = strings.ToLower(s.Transport)
	}
	if s.Port > 0 {
		cfg.Server.Port = s.Port
	}
}

func fetchProjectInfo(cfg schemamcp.ManagementConfig, logger zerolog.Logger) *management.ProjectInfo {
	client := management.New(cfg.BaseURL, cfg.ProjectRef, cfg.ServiceRoleKey)
	if !client.Configured() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), management.DefaultTimeout)
	defer cancel()
	info, err := client.ProjectInfo(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to fetch project info")
		return nil
	}
	if info == nil {
		logger.Warn().Str("project_ref", cfg.ProjectRef).Msg("Management API did not return project info")
	}
	return info
}

// newMCPServer creates the MCP server with initialize lifecycle logging and
// registers every catalog tool.
func newMCPServer(engine *schemamcp.SchemaMcp, logger zerolog.Logger) *server.MCPServer {
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer(serverKey, meta.Version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)
	schemamcp.RegisterMCPTools(mcpServer, engine)
	return mcpServer
}

// newHTTPHandler returns the mux serving /mcp and, when enabled, the health
// check. The health check reports process liveness only.
func newHTTPHandler(mcpServer *server.MCPServer, settings schemamcp.ServerSettings, httpSrv *http.Server) (*http.ServeMux, *server.StreamableHTTPServer) {
	mux := http.NewServeMux()
	if settings.HealthCheckEnabled {
		mux.HandleFunc(settings.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	streamable := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)
	// Start() does not register the handler when a custom *http.Server is
	// provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamable)
	return mux, streamable
}

func serveHTTP(mcpServer *server.MCPServer, settings schemamcp.ServerSettings, logger zerolog.Logger) error {
	addr := fmt.Sprintf(":%d", settings.Port)
	httpSrv := &http.Server{Addr: addr}
	mux, streamable := newHTTPHandler(mcpServer, settings, httpSrv)
	httpSrv.Handler = mux

	logger.Info().Int("port", settings.Port).Msg("serving MCP over streamable HTTP")
	return streamable.Start(addr)
}

// setupLogger builds the process logger. stdio transport owns stdout, so an
// stdout output is redirected to stderr there.
func setupLogger(config schemamcp.LoggingConfig, stdio bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	switch {
	case config.Output == "stdout" && !stdio:
		output = os.Stdout
	case config.Output != "" && config.Output != "stdout" && config.Output != "stderr":
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
