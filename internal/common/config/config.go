// Package config loads the application configuration from config.yaml with
// BLOSSOM_ environment overrides. Nesting levels are separated by a double
// underscore so keys like max_conns survive: BLOSSOM_DATABASE__MAX_CONNS.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Database struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	SSLMode  string `koanf:"sslmode"`
	MaxConns int    `koanf:"max_conns"`
}

func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RabbitMQ struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	VHost    string `koanf:"vhost"`
}

func (r RabbitMQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}

type Server struct {
	APIPort     int `koanf:"api_port"`
	GatewayPort int `koanf:"gateway_port"`
}

type Operator struct {
	Username     string `koanf:"username"`
	PasswordHash string `koanf:"password_hash"` // bcrypt
}

type Auth struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Operators []Operator    `koanf:"operators"`
}

type Dashboard struct {
	APIBaseURL   string        `koanf:"api_base_url"`
	WSURL        string        `koanf:"ws_url"`
	PollInterval time.Duration `koanf:"poll_interval"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json | console
}

type Config struct {
	Database  Database  `koanf:"database"`
	RabbitMQ  RabbitMQ  `koanf:"rabbitmq"`
	Server    Server    `koanf:"server"`
	Auth      Auth      `koanf:"auth"`
	Dashboard Dashboard `koanf:"dashboard"`
	Log       Log       `koanf:"log"`
}

const envPrefix = "BLOSSOM_"

func defaults() map[string]any {
	return map[string]any{
		"database.port":           5432,
		"database.sslmode":        "disable",
		"database.max_conns":      10,
		"rabbitmq.port":           5672,
		"rabbitmq.vhost":          "/",
		"server.api_port":         3000,
		"server.gateway_port":     3001,
		"auth.token_ttl":          "15m",
		"dashboard.api_base_url":  "http://localhost:3000",
		"dashboard.ws_url":        "ws://localhost:3001/ws",
		"dashboard.poll_interval": "30s",
		"dashboard.fetch_timeout": "6s",
		"dashboard.cache_ttl":     "5s",
		"log.level":               "info",
		"log.format":              "json",
	}
}

// Load reads path (optional, may not exist) and applies env overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("config defaults: %w", err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.RabbitMQ.Host == "" || c.RabbitMQ.User == "" {
		return fmt.Errorf("rabbitmq config incomplete")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}
