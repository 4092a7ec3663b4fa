// Package config defines the global configuration for the RentRoll service.
// Configuration is loaded once at process startup and is immutable
// thereafter. It follows 12-Factor principles: values come from the OS
// environment, optionally seeded from a .env file in local development.
// Any missing required value or invalid format fails startup immediately.
package config

import (
	"time"
)

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Ops       OpsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// SchedulerConfig holds the timing parameters of the billing task scheduler.
// The defaults match production behavior: a 60-second poll, rent generation
// at 09:00 local time, status recalculation at 08:00 local time, and a fixed
// one-hour retry window after a task failure.
type SchedulerConfig struct {
	TickInterval       time.Duration `envconfig:"SCHEDULER_TICK_INTERVAL" default:"60s"`
	RentGenerationHour int           `envconfig:"SCHEDULER_RENT_GENERATION_HOUR" default:"9" validate:"gte=0,lte=23"`
	RecalculationHour  int           `envconfig:"SCHEDULER_RECALCULATION_HOUR" default:"8" validate:"gte=0,lte=23"`
	TaskInterval       time.Duration `envconfig:"SCHEDULER_TASK_INTERVAL" default:"24h"`
	FailureBackoff     time.Duration `envconfig:"SCHEDULER_FAILURE_BACKOFF" default:"1h"`
	// Timezone is the IANA zone name used to anchor the daily run hours.
	// Empty means the system local zone.
	Timezone string `envconfig:"SCHEDULER_TIMEZONE"`
}

// OpsConfig holds settings for the optional operations webhook that receives
// scheduler run summaries. An empty URL disables the notifier.
type OpsConfig struct {
	WebhookURL     string        `envconfig:"OPS_WEBHOOK_URL" validate:"omitempty,url"`
	WebhookTimeout time.Duration `envconfig:"OPS_WEBHOOK_TIMEOUT" default:"10s"`
}

// Location resolves the scheduler's timezone, falling back to the system
// local zone when unset or unparseable.
func (c SchedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
