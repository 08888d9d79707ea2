package schemamcp

// Config is the base configuration used by library mode via New().
type Config struct {
	Connection   ConnectionConfig   `yaml:"connection" json:"connection"`
	Pool         PoolConfig         `yaml:"pool" json:"pool"`
	Query        QueryConfig        `yaml:"query" json:"query"`
	ErrorPrompts []ErrorPromptRule  `yaml:"error_prompts" json:"error_prompts"`
	Sanitization []SanitizationRule `yaml:"sanitization" json:"sanitization"`
	ReadOnly     bool               `yaml:"read_only" json:"read_only"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config     `yaml:",inline"`
	Server     ServerSettings   `yaml:"server" json:"server"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Management ManagementConfig `yaml:"management" json:"management"`
}

// ConnectionConfig holds database connection parameters. Missing host,
// dbname, user or password is reported on first use, not by New.
type ConnectionConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	DBName   string `yaml:"dbname" json:"dbname"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MinConns              int `yaml:"min_conns" json:"min_conns"`
	MaxConns              int `yaml:"max_conns" json:"max_conns"`
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds" json:"connect_timeout_seconds"`
}

// QueryConfig holds catalog query execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds int           `yaml:"default_timeout_seconds" json:"default_timeout_seconds"`
	TimeoutRules          []TimeoutRule `yaml:"timeout_rules" json:"timeout_rules"`
}

// TimeoutRule maps a tool name pattern (e.g. "^functions_") to a timeout.
type TimeoutRule struct {
	Pattern        string `yaml:"pattern" json:"pattern"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// ErrorPromptRule maps an error message pattern or SQLSTATE code to a
// guidance message.
type ErrorPromptRule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Code    string `yaml:"code" json:"code"`
	Message string `yaml:"message" json:"message"`
}

// SanitizableFields are the record fields sanitization rules apply to. Names,
// codes and flags are never rewritten.
var SanitizableFields = []string{
	"action", "arguments", "default", "definition", "definition_preview",
	"return_type", "using", "with_check",
}

// SanitizationRule defines a regex-based redaction applied to the free-text
// fields of catalog results, e.g. secrets embedded in function bodies.
// Columns limits the rule to some of SanitizableFields; empty means all.
type SanitizationRule struct {
	Pattern     string   `yaml:"pattern" json:"pattern"`
	Replacement string   `yaml:"replacement" json:"replacement"`
	Columns     []string `yaml:"columns" json:"columns"`
	Description string   `yaml:"description" json:"description"`
}

// ServerSettings holds MCP transport settings for CLI mode.
type ServerSettings struct {
	Transport          string `yaml:"transport" json:"transport"` // stdio, http
	Port               int    `yaml:"port" json:"port"`
	HealthCheckEnabled bool   `yaml:"health_check_enabled" json:"health_check_enabled"`
	HealthCheckPath    string `yaml:"health_check_path" json:"health_check_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stderr, stdout, or file path
}

// ManagementConfig points at the Supabase Management API. Both fields are
// optional; without them project info is simply not shown.
type ManagementConfig struct {
	ProjectRef     string `yaml:"project_ref" json:"project_ref"`
	ServiceRoleKey string `yaml:"service_role_key" json:"-"`
	BaseURL        string `yaml:"base_url" json:"base_url"`
}

// DefaultConfig returns the library defaults: read-only sessions, a pool of
// 1..5 connections, and 30 second operation timeouts.
func DefaultConfig() Config {
	return Config{
		Connection: ConnectionConfig{
			Port:   5432,
			DBName: "postgres",
		},
		Pool: PoolConfig{
			MinConns:              1,
			MaxConns:              5,
			ConnectTimeoutSeconds: 30,
		},
		Query: QueryConfig{
			DefaultTimeoutSeconds: 30,
		},
		ErrorPrompts: defaultErrorPrompts(),
		ReadOnly:     true,
	}
}
