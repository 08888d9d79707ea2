package configure

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	schemamcp "github.com/rickchristie/supabase-schema-mcp"
)

const (
	// ConfigPathEnv overrides the default YAML config location.
	ConfigPathEnv = "SBSCHEMA_CONFIG_PATH"
	// DefaultConfigPath is optional; a missing file means defaults plus env.
	DefaultConfigPath = ".sbschema/config.yaml"
	// DefaultEnvFile is loaded when present. Real environment variables win.
	DefaultEnvFile = ".env"
)

// Environment variables read on top of the YAML file.
const (
	EnvDBHost         = "SUPABASE_DB_HOST"
	EnvDBPort         = "SUPABASE_DB_PORT"
	EnvDBName         = "SUPABASE_DB_NAME"
	EnvDBUser         = "SUPABASE_DB_USER"
	EnvDBPassword     = "SUPABASE_DB_PASSWORD"
	EnvDBSSLMode      = "SUPABASE_DB_SSLMODE"
	EnvReadOnly       = "DB_READ_ONLY"
	EnvProjectRef     = "SUPABASE_PROJECT_REF"
	EnvServiceRoleKey = "SUPABASE_SERVICE_ROLE_KEY"
)

// EnvKeys lists every variable Load reads, in wizard order.
var EnvKeys = []string{
	EnvDBHost, EnvDBPort, EnvDBName, EnvDBUser, EnvDBPassword, EnvDBSSLMode,
	EnvReadOnly, EnvProjectRef, EnvServiceRoleKey,
}

var (
	transports = []string{"stdio", "http"}
	sslModes   = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// Loaded is the result of Load.
type Loaded struct {
	Config          *schemamcp.ServerConfig
	ConfigPath      string
	ConfigFileFound bool
	EnvFile         string
	EnvFileFound    bool
}

// DefaultServerConfig returns library defaults plus stdio transport and
// info-level text logging to stderr.
func DefaultServerConfig() *schemamcp.ServerConfig {
	return &schemamcp.ServerConfig{
		Config: schemamcp.DefaultConfig(),
		Server: schemamcp.ServerSettings{
			Transport:       "stdio",
			Port:            8080,
			HealthCheckPath: "/healthz",
		},
		Logging: schemamcp.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load builds the server configuration. Sources are applied in order:
// defaults, the env file (godotenv, never overriding real variables), the
// YAML file, then the SUPABASE_* / DB_* environment variables.
//
// An empty configPath falls back to $SBSCHEMA_CONFIG_PATH and then
// DefaultConfigPath. Only an explicitly named config file must exist.
func Load(configPath, envFile string) (*Loaded, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	explicit := configPath != ""
	if configPath == "" {
		configPath = os.Getenv(ConfigPathEnv)
		explicit = configPath != ""
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	loaded := &Loaded{
		Config:     DefaultServerConfig(),
		ConfigPath: configPath,
		EnvFile:    envFile,
	}

	if fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		loaded.EnvFileFound = true
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), loaded.Config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
		loaded.ConfigFileFound = true
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := applyEnv(loaded.Config); err != nil {
		return nil, err
	}
	return loaded, nil
}

func applyEnv(cfg *schemamcp.ServerConfig) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(EnvDBHost, &cfg.Connection.Host)
	setString(EnvDBName, &cfg.Connection.DBName)
	setString(EnvDBUser, &cfg.Connection.User)
	setString(EnvDBPassword, &cfg.Connection.Password)
	setString(EnvDBSSLMode, &cfg.Connection.SSLMode)
	setString(EnvProjectRef, &cfg.Management.ProjectRef)
	setString(EnvServiceRoleKey, &cfg.Management.ServiceRoleKey)

	if v := os.Getenv(EnvDBPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", EnvDBPort, v)
		}
		cfg.Connection.Port = port
	}
	if v := os.Getenv(EnvReadOnly); v != "" {
		readOnly, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReadOnly, err)
		}
		cfg.ReadOnly = readOnly
	}
	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references in the YAML text.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// MissingConnection lists the unset required connection variables.
func MissingConnection(cfg *schemamcp.ServerConfig) []string {
	var missing []string
	if cfg.Connection.Host == "" {
		missing = append(missing, EnvDBHost)
	}
	if cfg.Connection.User == "" {
		missing = append(missing, EnvDBUser)
	}
	if cfg.Connection.Password == "" {
		missing = append(missing, EnvDBPassword)
	}
	if cfg.Connection.DBName == "" {
		missing = append(missing, EnvDBName)
	}
	return missing
}

// Warnings returns the startup warnings shown before serving. The server
// still starts; tools report the configuration error on each call.
func Warnings(cfg *schemamcp.ServerConfig, envFileExists bool) []string {
	missing := MissingConnection(cfg)
	if len(missing) == 0 {
		return nil
	}
	if !envFileExists {
		return []string{
			"No .env file found. Run 'sbschemamcp configure' or create .env and set " +
				"SUPABASE_DB_HOST, SUPABASE_DB_USER, SUPABASE_DB_PASSWORD.",
		}
	}
	return []string{
		".env exists but required database variables are missing or empty: " +
			strings.Join(missing, ", ") + ". Schema tools will fail until these are set.",
	}
}

// Validate reports every setting New would panic on, plus the server-only
// settings New does not see.
func Validate(cfg *schemamcp.ServerConfig) []error {
	var errs []error
	if cfg.Pool.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("pool.max_conns must be > 0"))
	}
	if cfg.Pool.MinConns < 0 || cfg.Pool.MinConns > cfg.Pool.MaxConns {
		errs = append(errs, fmt.Errorf("pool.min_conns must be between 0 and pool.max_conns, got %d", cfg.Pool.MinConns))
	}
	if cfg.Pool.ConnectTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("pool.connect_timeout_seconds must be >= 0"))
	}
	if cfg.Query.DefaultTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("query.default_timeout_seconds must be > 0"))
	}
	if !slices.Contains(transports, cfg.Server.Transport) {
		errs = append(errs, fmt.Errorf("server.transport must be one of %s, got %q", strings.Join(transports, ", "), cfg.Server.Transport))
	}
	if cfg.Server.Transport == "http" && cfg.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0 for http transport"))
	}
	if cfg.Server.HealthCheckEnabled && cfg.Server.HealthCheckPath == "" {
		errs = append(errs, fmt.Errorf("server.health_check_path must be set when health_check_enabled is true"))
	}
	if cfg.Connection.SSLMode != "" && !slices.Contains(sslModes, cfg.Connection.SSLMode) {
		errs = append(errs, fmt.Errorf("connection.sslmode must be one of %s, got %q", strings.Join(sslModes, ", "), cfg.Connection.SSLMode))
	}
	if cfg.Logging.Level != "" && !slices.Contains(logLevels, strings.ToLower(cfg.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %s, got %q", strings.Join(logLevels, ", "), cfg.Logging.Level))
	}
	if cfg.Logging.Format != "" && !slices.Contains(logFormats, cfg.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %s, got %q", strings.Join(logFormats, ", "), cfg.Logging.Format))
	}
	for i, rule := range cfg.ErrorPrompts {
		if rule.Pattern == "" {
			if rule.Code == "" {
				errs = append(errs, fmt.Errorf("error_prompts[%d] needs a pattern or a code", i))
			}
			continue
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("error_prompts[%d] regex: %v", i, err))
		}
	}
	for i, rule := range cfg.Sanitization {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("sanitization[%d] regex: %v", i, err))
		}
		for _, col := range rule.Columns {
			if !slices.Contains(schemamcp.SanitizableFields, col) {
				errs = append(errs, fmt.Errorf("sanitization[%d] column %q must be one of %s", i, col, strings.Join(schemamcp.SanitizableFields, ", ")))
			}
		}
	}
	for i, rule := range cfg.Query.TimeoutRules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("query.timeout_rules[%d] regex: %v", i, err))
		}
		if rule.TimeoutSeconds <= 0 {
			errs = append(errs, fmt.Errorf("query.timeout_rules[%d] timeout_seconds must be > 0", i))
		}
	}
	return errs
}
