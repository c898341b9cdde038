// Package config loads service configuration from an optional YAML file with
// environment-variable overrides. Every field has a sane local-development
// default so the service starts with no configuration at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "30s" style values as well as
// plain nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServiceConfig identifies the service in logs and events.
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	RequestTimeout  Duration `yaml:"request_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL pool settings.
type DatabaseConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	User        string   `yaml:"user"`
	Password    string   `yaml:"password"`
	Database    string   `yaml:"database"`
	SSLMode     string   `yaml:"ssl_mode"`
	MaxConns    int32    `yaml:"max_conns"`
	MinConns    int32    `yaml:"min_conns"`
	MaxConnTime Duration `yaml:"max_conn_time"`
	MaxIdleTime Duration `yaml:"max_idle_time"`
	HealthCheck Duration `yaml:"health_check"`
}

// NATSConfig holds the notification channel settings. An empty URL disables
// publishing entirely.
type NATSConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// AuthConfig holds the JWT verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// Load reads the YAML file named by CONFIG_PATH (if set and present), applies
// environment overrides, then fills remaining defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr(&c.Service.Name, "SERVICE_NAME")
	envStr(&c.Service.Version, "SERVICE_VERSION")
	envStr(&c.Service.Environment, "ENVIRONMENT")

	envInt(&c.Server.Port, "SERVER_PORT")

	envStr(&c.Database.Host, "DB_HOST")
	envInt(&c.Database.Port, "DB_PORT")
	envStr(&c.Database.User, "DB_USER")
	envStr(&c.Database.Password, "DB_PASSWORD")
	envStr(&c.Database.Database, "DB_NAME")
	envStr(&c.Database.SSLMode, "DB_SSL_MODE")

	envStr(&c.NATS.URL, "NATS_URL")
	envStr(&c.Auth.JWTSecret, "JWT_SECRET")
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "be-task-approvals"
	}
	if c.Service.Version == "" {
		c.Service.Version = "dev"
	}
	if c.Service.Environment == "" {
		c.Service.Environment = "development"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8086
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(15 * time.Second)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(60 * time.Second)
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = Duration(30 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.Database == "" {
		c.Database.Database = "task_approvals"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = 2
	}
	if c.Database.MaxConnTime == 0 {
		c.Database.MaxConnTime = Duration(time.Hour)
	}
	if c.Database.MaxIdleTime == 0 {
		c.Database.MaxIdleTime = Duration(30 * time.Minute)
	}
	if c.Database.HealthCheck == 0 {
		c.Database.HealthCheck = Duration(time.Minute)
	}

	if c.NATS.Name == "" {
		c.NATS.Name = c.Service.Name
	}
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
