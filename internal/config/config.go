package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Host        string   `json:"host" yaml:"host"`
	Port        int      `json:"port" yaml:"port"`
	Environment string   `json:"environment" yaml:"environment"`
	LogLevel    string   `json:"log_level" yaml:"log_level"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	// Database
	DatabaseURL        string   `json:"database_url" yaml:"database_url"`
	DBMinConns         int32    `json:"db_min_conns" yaml:"db_min_conns"`
	DBMaxConns         int32    `json:"db_max_conns" yaml:"db_max_conns"`
	DBConnectTimeout   Duration `json:"db_connect_timeout" yaml:"db_connect_timeout"`
	DBStatementTimeout Duration `json:"db_statement_timeout" yaml:"db_statement_timeout"` // 0 = none
	MaxRows            int      `json:"max_rows" yaml:"max_rows"`

	// LLM
	LLMProvider    string   `json:"llm_provider" yaml:"llm_provider"` // "openai" | "anthropic"
	LLMAPIKey      string   `json:"llm_api_key" yaml:"llm_api_key"`
	LLMBaseURL     string   `json:"llm_base_url" yaml:"llm_base_url"`
	LLMModel       string   `json:"llm_model" yaml:"llm_model"`
	LLMTemperature float64  `json:"llm_temperature" yaml:"llm_temperature"`
	LLMMaxTokens   int      `json:"llm_max_tokens" yaml:"llm_max_tokens"`
	LLMTimeout     Duration `json:"llm_timeout" yaml:"llm_timeout"`

	EnableAuditLogging bool `json:"enable_audit_logging" yaml:"enable_audit_logging"`
}

// Duration reads "30s" style strings from JSON and YAML files
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Duration = v
	return nil
}

// Load applies defaults, then the file named by NL2SQL_CONFIG, then environment
// variables. It does not validate; call Validate before use.
func Load() (*Config, error) {
	cfg := &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		Environment:        DefaultEnvironment,
		LogLevel:           DefaultLogLevel,
		CORSOrigins:        append([]string(nil), DefaultCORSOrigins...),
		DBMinConns:         DefaultDBMinConns,
		DBMaxConns:         DefaultDBMaxConns,
		DBConnectTimeout:   Duration{DefaultDBConnectTimeout},
		MaxRows:            DefaultMaxRows,
		LLMProvider:        DefaultLLMProvider,
		LLMBaseURL:         DefaultLLMBaseURL,
		LLMTemperature:     DefaultLLMTemperature,
		LLMMaxTokens:       DefaultLLMMaxTokens,
		LLMTimeout:         Duration{DefaultLLMTimeout},
		EnableAuditLogging: true,
	}

	if path := getEnv("NL2SQL_CONFIG", ""); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cfg.LLMModel == "" {
		cfg.LLMModel = DefaultLLMModel
		if strings.EqualFold(cfg.LLMProvider, "anthropic") {
			cfg.LLMModel = DefaultAnthropicModel
		}
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := getEnv("NL2SQL_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("NL2SQL_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("NL2SQL_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("NL2SQL_CORS_ORIGINS", ""); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := getEnv("DATABASE_URL", ""); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getEnv("LLM_API_KEY", ""); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := getEnv("LLM_PROVIDER", ""); v != "" {
		cfg.LLMProvider = v
	}
	if v := getEnv("LLM_BASE_URL", ""); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := getEnv("LLM_MODEL", ""); v != "" {
		cfg.LLMModel = v
	}
	if v := getEnv("ENABLE_AUDIT_LOGGING", ""); v != "" {
		cfg.EnableAuditLogging = v == "true" || v == "1"
	}

	var err error
	if cfg.Port, err = envInt("NL2SQL_PORT", cfg.Port); err != nil {
		return err
	}
	if cfg.MaxRows, err = envInt("MAX_ROWS", cfg.MaxRows); err != nil {
		return err
	}
	if cfg.LLMMaxTokens, err = envInt("LLM_MAX_TOKENS", cfg.LLMMaxTokens); err != nil {
		return err
	}
	minConns, err := envInt("DB_MIN_CONNS", int(cfg.DBMinConns))
	if err != nil {
		return err
	}
	maxConns, err := envInt("DB_MAX_CONNS", int(cfg.DBMaxConns))
	if err != nil {
		return err
	}
	cfg.DBMinConns, cfg.DBMaxConns = int32(minConns), int32(maxConns)

	if v := getEnv("LLM_TEMPERATURE", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LLM_TEMPERATURE: %w", err)
		}
		cfg.LLMTemperature = f
	}
	if cfg.LLMTimeout.Duration, err = envDuration("LLM_TIMEOUT", cfg.LLMTimeout.Duration); err != nil {
		return err
	}
	if cfg.DBConnectTimeout.Duration, err = envDuration("DB_CONNECT_TIMEOUT", cfg.DBConnectTimeout.Duration); err != nil {
		return err
	}
	if cfg.DBStatementTimeout.Duration, err = envDuration("DB_STATEMENT_TIMEOUT", cfg.DBStatementTimeout.Duration); err != nil {
		return err
	}
	return nil
}

// Validate reports the first missing or out-of-range setting
func (c *Config) Validate() error {
	switch {
	case c.DatabaseURL == "":
		return fmt.Errorf("DATABASE_URL environment variable is required")
	case c.LLMAPIKey == "":
		return fmt.Errorf("LLM_API_KEY environment variable is required")
	case c.MaxRows <= 0:
		return fmt.Errorf("MAX_ROWS must be greater than 0, got %d", c.MaxRows)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.DBMinConns < 0 || c.DBMaxConns <= 0 || c.DBMinConns > c.DBMaxConns:
		return fmt.Errorf("invalid pool size: min %d, max %d", c.DBMinConns, c.DBMaxConns)
	case c.LLMMaxTokens <= 0:
		return fmt.Errorf("LLM_MAX_TOKENS must be greater than 0, got %d", c.LLMMaxTokens)
	case c.LLMTimeout.Duration <= 0:
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	switch strings.ToLower(c.LLMProvider) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or anthropic, got %q", c.LLMProvider)
	}
	return nil
}

// IsDevelopment selects console log output
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
