package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrConfigNil indicates the configuration is nil.
var ErrConfigNil = errors.New("configuration is nil")

// Validate validates configuration values. Fail-fast: called from Load()
// before any component is constructed. Returns sentinel errors checkable
// with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Model provider key. Read directly by the Genkit plugin; only presence
	// is checked here.
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required", ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Conversation core bounds.
	if c.HistoryTokenBudget < 1 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenBudget, c.HistoryTokenBudget)
	}
	if c.MaxToolIterations < 1 || c.MaxToolIterations > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidToolIterations, c.MaxToolIterations)
	}

	// PostgreSQL.
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresPassword == "concierge_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password for production deployments")
	}

	return nil
}

// ValidateServe validates the additional settings required by serve mode.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.WhatsApp.AccessToken == "" {
		return ErrMissingAccessToken
	}
	if c.WhatsApp.VerifyToken == "" {
		return ErrMissingVerifyToken
	}
	if c.WhatsApp.PhoneNumberID == "" {
		return ErrMissingPhoneNumberID
	}

	return nil
}
