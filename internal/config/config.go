// Package config loads the server settings from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/session"
)

// Config holds the server settings.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DBPath      string `env:"DB_PATH" envDefault:"data/finance.db"`
	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"web/templates"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"web/static"`

	SecureCookie    bool          `env:"SECURE_COOKIE" envDefault:"false"`
	SessionPolicy   string        `env:"SESSION_POLICY" envDefault:"persistent"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"720h"`
	GuestTTL        time.Duration `env:"GUEST_TTL" envDefault:"12h"`

	// An admin account is created on first start when both are set.
	AdminUser     string `env:"ADMIN_USER"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"human"`
}

// Load reads an optional .env file and then parses the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// A missing file is fine; the environment alone is enough.
		_ = godotenv.Load(f)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Policy returns the parsed session policy.
func (c *Config) Policy() session.Policy {
	p, err := session.ParsePolicy(c.SessionPolicy)
	if err != nil {
		return session.PolicyPersistent
	}
	return p
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DBPath) == "" {
		errors = append(errors, "database path cannot be empty")
	}

	if _, err := session.ParsePolicy(c.SessionPolicy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid session policy '%s': must be 'persistent' or 'reload-demotes'", c.SessionPolicy))
	}

	if c.SessionDuration < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session duration %v: must be at least 1 minute", c.SessionDuration))
	}
	if c.GuestTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid guest TTL %v: must be at least 1 minute", c.GuestTTL))
	}

	if (c.AdminUser == "") != (c.AdminPassword == "") {
		errors = append(errors, "ADMIN_USER and ADMIN_PASSWORD must be set together")
	} else if c.AdminUser != "" {
		if msg := auth.ValidateUsername(c.AdminUser); msg != "" {
			errors = append(errors, "invalid ADMIN_USER: "+msg)
		}
		if problems := auth.ValidatePassword(c.AdminPassword, c.AdminPassword); len(problems) > 0 {
			errors = append(errors, "weak ADMIN_PASSWORD: "+strings.Join(problems, " "))
		}
	}

	switch c.LogFormat {
	case "human", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'human' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
