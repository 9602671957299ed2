package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Mailbox  MailboxConfig
	Auth     AuthConfig
	Resolve  ResolveConfig
	LogLevel string
}

// DatabaseConfig holds audit-store configuration. An empty DSN selects SQLite.
type DatabaseConfig struct {
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr        string
	HTTPAddr        string
	ShutdownTimeout time.Duration
}

// LLMConfig holds extraction-service configuration
type LLMConfig struct {
	Provider     string // openai | gemini
	Model        string
	APIKey       string
	BaseURL      string
	Temperature  float32
	Timeout      time.Duration
	RatePerSec   float64
	RateBurst    int
	RegistryPath string
}

// MailboxConfig holds mailbox-provider configuration
type MailboxConfig struct {
	BaseURL               string
	APIKey                string
	Timeout               time.Duration
	ScanLimit             int
	PageLimit             int
	AttachmentConcurrency int
}

// AuthConfig holds the static bearer-token table ("token:actor,token2:actor2").
type AuthConfig struct {
	Tokens map[string]string
}

// ResolveConfig holds the registry match scores.
type ResolveConfig struct {
	ExactScore     float64
	AliasScore     float64
	SubstringScore float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("AUDIT_SQLITE_PATH", "./tmp/audit.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:        getEnv("GRPC_ADDR", ":9090"),
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:        getEnv("LLM_MODEL", ""),
			APIKey:       getEnv("LLM_API_KEY", ""),
			BaseURL:      getEnv("LLM_BASE_URL", ""),
			Temperature:  getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
			RatePerSec:   getEnvAsFloat64("LLM_RATE_PER_SEC", 2),
			RateBurst:    getEnvAsInt("LLM_RATE_BURST", 4),
			RegistryPath: getEnv("REGISTRY_PATH", ""),
		},
		Mailbox: MailboxConfig{
			BaseURL:               getEnv("MAILBOX_BASE_URL", ""),
			APIKey:                getEnv("MAILBOX_API_KEY", ""),
			Timeout:               getEnvAsDuration("MAILBOX_TIMEOUT", 30*time.Second),
			ScanLimit:             getEnvAsInt("MAILBOX_SCAN_LIMIT", 100),
			PageLimit:             getEnvAsInt("MAILBOX_PAGE_LIMIT", 20),
			AttachmentConcurrency: getEnvAsInt("ATTACHMENT_CONCURRENCY", 3),
		},
		Auth: AuthConfig{
			Tokens: parseTokens(getEnv("AUTH_TOKENS", "")),
		},
		Resolve: ResolveConfig{
			ExactScore:     getEnvAsFloat64("RESOLVE_SCORE_EXACT", 1.0),
			AliasScore:     getEnvAsFloat64("RESOLVE_SCORE_ALIAS", 0.9),
			SubstringScore: getEnvAsFloat64("RESOLVE_SCORE_SUBSTRING", 0.6),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseTokens reads "token:actor" pairs separated by commas. Malformed pairs are skipped.
func parseTokens(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		tok, actor, ok := strings.Cut(strings.TrimSpace(pair), ":")
		tok, actor = strings.TrimSpace(tok), strings.TrimSpace(actor)
		if !ok || tok == "" || actor == "" {
			continue
		}
		out[tok] = actor
	}
	return out
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "LLM_API_KEY is required", ErrInvalidInput)
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "gemini" {
		return NewAppError(CodeConfig, "LLM_PROVIDER must be openai or gemini", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	if len(c.Auth.Tokens) == 0 {
		return NewAppError(CodeConfig, "AUTH_TOKENS is required", ErrInvalidInput)
	}
	for name, v := range map[string]float64{
		"RESOLVE_SCORE_EXACT":     c.Resolve.ExactScore,
		"RESOLVE_SCORE_ALIAS":     c.Resolve.AliasScore,
		"RESOLVE_SCORE_SUBSTRING": c.Resolve.SubstringScore,
	} {
		if v < 0 || v > 1 {
			return NewAppError(CodeConfig, name+" must be within [0,1]", ErrInvalidInput)
		}
	}
	return nil
}

// NewLogger builds the process JSON logger at the configured level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
