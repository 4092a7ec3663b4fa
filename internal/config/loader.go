package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from the environment and validates it.
//
// In local development a .env file (if present in the working directory) is
// loaded first; existing environment variables always win over dotenv
// values. Validation failures are returned as a single error listing every
// offending field so operators can fix them in one pass.
func Load() (*Config, error) {
	// Best-effort dotenv load. A missing file is not an error; malformed
	// files are, since silently ignoring them hides typos.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("loading .env file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment configuration: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate applies the struct validation tags and renders failures into a
// readable startup error.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validating configuration: %w", err)
		}
		msg := "invalid configuration:"
		for _, fe := range verrs {
			msg += fmt.Sprintf(" %s (rule %q);", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%s", msg)
	}

	if cfg.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("invalid configuration: SCHEDULER_TICK_INTERVAL must be positive")
	}
	if cfg.Scheduler.FailureBackoff <= 0 {
		return fmt.Errorf("invalid configuration: SCHEDULER_FAILURE_BACKOFF must be positive")
	}

	return nil
}
