package config

import (
	"github.com/ledgerdesk/aegis/internal/infra/fallback"
	"github.com/ledgerdesk/aegis/internal/infra/probe"
	redisclient "github.com/ledgerdesk/aegis/internal/infra/redis"
	"github.com/ledgerdesk/aegis/internal/infra/report"
	"github.com/ledgerdesk/aegis/internal/resilience/breaker"
	"github.com/ledgerdesk/aegis/internal/resilience/health"
	"github.com/ledgerdesk/aegis/internal/resilience/isolate"
	"github.com/ledgerdesk/aegis/internal/resilience/notify"
	"github.com/ledgerdesk/aegis/internal/resilience/recovery"
	"github.com/ledgerdesk/aegis/internal/resilience/retry"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Logging   LoggingConfig      `yaml:"logging"`
	Breaker   breaker.Config     `yaml:"breaker"`
	Retry     retry.Config       `yaml:"retry"`
	Isolation isolate.Config     `yaml:"isolation"`
	Recovery  recovery.Config    `yaml:"recovery"`
	Health    health.Config      `yaml:"health"`
	Notify    notify.Config      `yaml:"notifications"`
	Fallback  fallback.Config    `yaml:"fallback"`
	Redis     redisclient.Config `yaml:"redis"`
	Report    report.Config      `yaml:"report"`
	Probes    probe.Config       `yaml:"probes"`
}

// ServerConfig holds health endpoint settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
