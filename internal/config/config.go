// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, secrets)
//  2. Config file (~/.concierge/config.yaml)
//  3. Default values
//
// Components receive an explicit *Config through their constructors; business
// logic never reads the ambient environment.
//
// Security: sensitive values (WhatsApp access token, Postgres password) are
// masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAccessToken indicates the WhatsApp access token is not set.
	ErrMissingAccessToken = errors.New("missing WhatsApp access token")

	// ErrMissingVerifyToken indicates the webhook verify token is not set.
	ErrMissingVerifyToken = errors.New("missing webhook verify token")

	// ErrMissingPhoneNumberID indicates the WhatsApp phone number ID is not set.
	ErrMissingPhoneNumberID = errors.New("missing WhatsApp phone number ID")

	// ErrMissingAPIKey indicates the model provider API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidTokenBudget indicates the history token budget is out of range.
	ErrInvalidTokenBudget = errors.New("invalid history token budget")

	// ErrInvalidToolIterations indicates the tool iteration cap is out of range.
	ErrInvalidToolIterations = errors.New("invalid tool iteration limit")
)

// Default values for the conversation core. The caps mirror the behavior the
// agent is specified against; they are configurable, not invariants.
const (
	// DefaultHistoryWindow is the number of most-recent raw messages
	// considered before token-based pruning.
	DefaultHistoryWindow = 6

	// DefaultHistoryTokenBudget bounds pruned history size in tokens.
	DefaultHistoryTokenBudget = 1000

	// DefaultMaxToolIterations bounds tool invocations per turn.
	DefaultMaxToolIterations = 3

	// DefaultCitationLimit caps citations collected by the RAG tool per turn.
	DefaultCitationLimit = 2

	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"
)

// WhatsAppConfig holds WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	// Version is the Graph API version, e.g. "v18.0".
	Version string `mapstructure:"version" json:"version"`
	// AccessToken authenticates outbound Graph API calls. SENSITIVE.
	AccessToken string `mapstructure:"access_token" json:"access_token"`
	// PhoneNumberID is the sending phone number resource ID.
	PhoneNumberID string `mapstructure:"phone_number_id" json:"phone_number_id"`
	// VerifyToken is echoed back during webhook subscription verification.
	VerifyToken string `mapstructure:"verify_token" json:"verify_token"`
}

// ScraperConfig holds settings for fetching search-result pages.
type ScraperConfig struct {
	// Parallelism is max concurrent requests per domain.
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is delay between requests in milliseconds.
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is request timeout in milliseconds.
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Conversation core
	HistoryWindow      int `mapstructure:"history_window" json:"history_window"`
	HistoryTokenBudget int `mapstructure:"history_token_budget" json:"history_token_budget"`
	MaxToolIterations  int `mapstructure:"max_tool_iterations" json:"max_tool_iterations"`
	CitationLimit      int `mapstructure:"citation_limit" json:"citation_limit"`
	SearchResultCount  int `mapstructure:"search_result_count" json:"search_result_count"`

	// Webhook delivery gate
	DedupTTLSeconds int `mapstructure:"dedup_ttl_seconds" json:"dedup_ttl_seconds"`
	DedupCapacity   int `mapstructure:"dedup_capacity" json:"dedup_capacity"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Messaging and scraping
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp" json:"whatsapp"`
	Scraper  ScraperConfig  `mapstructure:"scraper" json:"scraper"`

	// HTTP server
	ListenAddr    string  `mapstructure:"listen_addr" json:"listen_addr"`
	TrustProxy    bool    `mapstructure:"trust_proxy" json:"trust_proxy"`
	RatePerSecond float64 `mapstructure:"rate_per_second" json:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".concierge")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("temperature", 0.1)
	viper.SetDefault("max_tokens", 1024)

	// Conversation core
	viper.SetDefault("history_window", DefaultHistoryWindow)
	viper.SetDefault("history_token_budget", DefaultHistoryTokenBudget)
	viper.SetDefault("max_tool_iterations", DefaultMaxToolIterations)
	viper.SetDefault("citation_limit", DefaultCitationLimit)
	viper.SetDefault("search_result_count", 4)

	// Delivery gate
	viper.SetDefault("dedup_ttl_seconds", 300)
	viper.SetDefault("dedup_capacity", 1000)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "concierge")
	viper.SetDefault("postgres_password", "concierge_dev_password")
	viper.SetDefault("postgres_db_name", "concierge")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// WhatsApp
	viper.SetDefault("whatsapp.version", "v18.0")

	// Scraper
	viper.SetDefault("scraper.parallelism", 2)
	viper.SetDefault("scraper.delay_ms", 1000)
	viper.SetDefault("scraper.timeout_ms", 30000)

	// Server
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_per_second", 20)
	viper.SetDefault("rate_burst", 60)
}

// bindEnvVariables binds secrets and deployment overrides explicitly.
//
// GEMINI_API_KEY is read directly by the Genkit plugin, not via viper;
// Validate() only checks its presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("whatsapp.access_token", "WHATSAPP_ACCESS_TOKEN")
	mustBind("whatsapp.verify_token", "WHATSAPP_VERIFY_TOKEN")
	mustBind("whatsapp.phone_number_id", "WHATSAPP_PHONE_NUMBER_ID")
	mustBind("whatsapp.version", "WHATSAPP_VERSION")

	mustBind("model_name", "CONCIERGE_MODEL_NAME")
	mustBind("listen_addr", "CONCIERGE_LISTEN_ADDR")
	mustBind("trust_proxy", "CONCIERGE_TRUST_PROXY")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret returns the mask for non-empty secrets, empty string otherwise,
// so the marshaled form still shows whether a secret was configured.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return maskedValue
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // drop methods to avoid recursion
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.WhatsApp.AccessToken = maskSecret(a.WhatsApp.AccessToken)
	a.WhatsApp.VerifyToken = maskSecret(a.WhatsApp.VerifyToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
