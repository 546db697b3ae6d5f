package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the server needs. It is built once in main and
// handed to the constructors that need it.
type Config struct {
	Port         string
	BaseURL      string
	AllowOrigins []string

	DBDriver   string
	DBDSN      string
	DBLogLevel string

	JWTSecret         string
	TokenTTL          time.Duration
	AllowRegistration bool

	TaxRate             float64
	DefaultDiscountRate float64
	DefaultSaleStatus   string

	LogLevel  string
	LogFormat string

	SeedOwnerEmail    string
	SeedOwnerPassword string

	GeminiAPIKey string
	GeminiModel  string
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("ALLOW_REGISTRATION", false)
	v.SetDefault("TAX_RATE", 0.16)
	v.SetDefault("DEFAULT_DISCOUNT_RATE", 0.0)
	v.SetDefault("DEFAULT_SALE_STATUS", "completed")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SEED_OWNER_EMAIL", "")
	v.SetDefault("SEED_OWNER_PASSWORD", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash-001")
	return v
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                v.GetString("PORT"),
		BaseURL:             v.GetString("BASE_URL"),
		AllowOrigins:        splitList(v.GetString("ALLOW_ORIGINS")),
		DBDriver:            strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:               v.GetString("DB_DSN"),
		DBLogLevel:          strings.ToLower(v.GetString("DB_LOG_LEVEL")),
		JWTSecret:           v.GetString("JWT_SECRET"),
		TokenTTL:            v.GetDuration("TOKEN_TTL"),
		AllowRegistration:   v.GetBool("ALLOW_REGISTRATION"),
		TaxRate:             v.GetFloat64("TAX_RATE"),
		DefaultDiscountRate: v.GetFloat64("DEFAULT_DISCOUNT_RATE"),
		DefaultSaleStatus:   strings.ToLower(v.GetString("DEFAULT_SALE_STATUS")),
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:           strings.ToLower(v.GetString("LOG_FORMAT")),
		SeedOwnerEmail:      v.GetString("SEED_OWNER_EMAIL"),
		SeedOwnerPassword:   v.GetString("SEED_OWNER_PASSWORD"),
		GeminiAPIKey:        v.GetString("GEMINI_API_KEY"),
		GeminiModel:         v.GetString("GEMINI_MODEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return errors.New("DB_DSN is required")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if len(c.AllowOrigins) == 0 {
		return errors.New("ALLOW_ORIGINS must list at least one origin")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.TaxRate < 0 || c.TaxRate > 1 {
		return fmt.Errorf("TAX_RATE must be within [0,1], got %v", c.TaxRate)
	}
	if c.DefaultDiscountRate < 0 || c.DefaultDiscountRate > 1 {
		return fmt.Errorf("DEFAULT_DISCOUNT_RATE must be within [0,1], got %v", c.DefaultDiscountRate)
	}
	switch c.DefaultSaleStatus {
	case "completed", "pending":
	default:
		return fmt.Errorf("DEFAULT_SALE_STATUS must be completed or pending, got %q", c.DefaultSaleStatus)
	}
	return nil
}

// AssistantEnabled reports whether an API key for the assistant is configured.
func (c *Config) AssistantEnabled() bool {
	return c.GeminiAPIKey != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
