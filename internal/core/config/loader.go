package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envOverrides are the environment knobs taking precedence over the
// YAML file, named AEGIS_SERVER_PORT, AEGIS_LOG_LEVEL and so on.
type envOverrides struct {
	Port          int    `envconfig:"SERVER_PORT"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	RedisURL      string `envconfig:"REDIS_URL"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	ReportURL     string `envconfig:"REPORT_URL"`
}

// Load reads configuration from a YAML file and applies environment
// overrides on top.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	// Set defaults if necessary. Component defaults are backfilled by
	// their constructors.
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Fallback.Backend == "" {
		cfg.Fallback.Backend = "memory"
	}

	return &cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	var env envOverrides
	if err := envconfig.Process("aegis", &env); err != nil {
		return err
	}

	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	if env.RedisURL != "" {
		cfg.Redis.URL = env.RedisURL
	}
	if env.RedisPassword != "" {
		cfg.Redis.Password = env.RedisPassword
	}
	if env.ReportURL != "" {
		cfg.Report.URL = env.ReportURL
	}
	return nil
}
