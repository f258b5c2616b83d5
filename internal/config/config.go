package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/psyhead/clinic/internal/platform/authz"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	JWTIssuer      string   `mapstructure:"JWT_ISSUER"`
	TokenTTL       string   `mapstructure:"TOKEN_TTL"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	MigrationsDir  string   `mapstructure:"MIGRATIONS_DIR"`

	// Cross-therapist sharing exception. Empty origin email disables it.
	SharedOriginTherapistEmail string   `mapstructure:"SHARED_ORIGIN_THERAPIST_EMAIL"`
	SharedPatientViewerEmails  []string `mapstructure:"SHARED_PATIENT_VIEWER_EMAILS"`

	// Redaction policies for non-admin accounts, keyed by login email.
	FinanceBlockedEmails        []string `mapstructure:"FINANCE_BLOCKED_EMAILS"`
	SessionPaymentBlockedEmails []string `mapstructure:"SESSION_PAYMENT_BLOCKED_EMAILS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL", "8h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("TOKEN_TTL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("SHARED_ORIGIN_THERAPIST_EMAIL")
	v.BindEnv("SHARED_PATIENT_VIEWER_EMAILS")
	v.BindEnv("FINANCE_BLOCKED_EMAILS")
	v.BindEnv("SESSION_PAYMENT_BLOCKED_EMAILS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitIfFlat(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.SharedPatientViewerEmails = splitIfFlat(cfg.SharedPatientViewerEmails, v.GetString("SHARED_PATIENT_VIEWER_EMAILS"))
	cfg.FinanceBlockedEmails = splitIfFlat(cfg.FinanceBlockedEmails, v.GetString("FINANCE_BLOCKED_EMAILS"))
	cfg.SessionPaymentBlockedEmails = splitIfFlat(cfg.SessionPaymentBlockedEmails, v.GetString("SESSION_PAYMENT_BLOCKED_EMAILS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// splitIfFlat handles env values like "a@x.com,b@y.com" that viper leaves as
// a single string when they come from the environment rather than a file.
func splitIfFlat(parsed []string, raw string) []string {
	if len(parsed) > 0 {
		return parsed
	}
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production, got %d", len(c.JWTSecret))
	}
	if _, err := time.ParseDuration(c.TokenTTL); err != nil {
		return fmt.Errorf("TOKEN_TTL is not a valid duration: %w", err)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %f", c.RateLimitRPS)
	}
	if len(c.SharedPatientViewerEmails) > 0 && c.SharedOriginTherapistEmail == "" {
		return fmt.Errorf("SHARED_PATIENT_VIEWER_EMAILS is set but SHARED_ORIGIN_THERAPIST_EMAIL is empty")
	}
	return nil
}

// ParsedTokenTTL returns TOKEN_TTL as a duration. Call Validate first.
func (c *Config) ParsedTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil {
		return 8 * time.Hour
	}
	return d
}

// SharingException builds the sharing exception config from the environment.
func (c *Config) SharingException() authz.SharingExceptionConfig {
	return authz.SharingExceptionConfig{
		OriginTherapistEmail: c.SharedOriginTherapistEmail,
		AllowedViewerEmails:  c.SharedPatientViewerEmails,
	}
}

// FinanceModulePolicy gates the finance endpoints for specific accounts.
func (c *Config) FinanceModulePolicy() authz.ModulePolicy {
	return authz.ModulePolicy{
		Name:          "finance",
		BlockedEmails: c.FinanceBlockedEmails,
	}
}

// RedactionPolicies builds the field-level redaction policy set.
func (c *Config) RedactionPolicies() []authz.FieldPolicy {
	return []authz.FieldPolicy{
		{
			Name:          "session-payment",
			Kinds:         []authz.PayloadKind{authz.PayloadSession},
			BlockedEmails: c.SessionPaymentBlockedEmails,
			Fields: []authz.FieldRule{
				{Name: "fee_amount", WriteDefault: nil},
				{Name: "payment_status", WriteDefault: "pending"},
			},
		},
		{
			Name:          "dashboard-revenue",
			Kinds:         []authz.PayloadKind{authz.PayloadDashboard},
			BlockedEmails: c.FinanceBlockedEmails,
			Fields: []authz.FieldRule{
				{Name: "monthly_revenue", WriteDefault: nil},
			},
		},
	}
}
