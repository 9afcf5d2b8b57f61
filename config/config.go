// Package config loads server configuration from code defaults, an optional
// YAML file and PERSONA_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "PERSONA_"

type Config struct {
	Debug    bool           `yaml:"debug" env:"DEBUG"`
	HTTP     HTTPConfig     `yaml:"http" envPrefix:"HTTP_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Sessions SessionsConfig `yaml:"sessions" envPrefix:"SESSIONS_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Storage  StorageConfig  `yaml:"storage" envPrefix:"STORAGE_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
	// comma separated, used by the /api CORS middleware
	AllowOrigins  string        `yaml:"allow_origins" env:"ALLOW_ORIGINS"`
	PublicURL     string        `yaml:"public_url" env:"PUBLIC_URL"`
	BodyLimit     int           `yaml:"body_limit" env:"BODY_LIMIT"`
	ClientIdleTTL time.Duration `yaml:"client_idle_ttl" env:"CLIENT_IDLE_TTL"`
	SecureCookie  bool          `yaml:"secure_cookie" env:"SECURE_COOKIE"`
}

type DatabaseConfig struct {
	// postgres://... or sqlite:<file>
	DSN     string `yaml:"dsn" env:"DSN"`
	Verbose bool   `yaml:"verbose" env:"VERBOSE"`
}

type SessionsConfig struct {
	// buntdb file, ":memory:" keeps grants in memory only
	Path string `yaml:"path" env:"PATH"`
}

type AuthConfig struct {
	JWTSecret           string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	AccessTTL           time.Duration `yaml:"access_ttl" env:"ACCESS_TTL"`
	RefreshTTL          time.Duration `yaml:"refresh_ttl" env:"REFRESH_TTL"`
	RequireConfirmation bool          `yaml:"require_confirmation" env:"REQUIRE_CONFIRMATION"`
}

type StorageConfig struct {
	Dir       string `yaml:"dir" env:"DIR"`
	PublicURL string `yaml:"public_url" env:"PUBLIC_URL"`
}

type LogConfig struct {
	Syslog bool `yaml:"syslog" env:"SYSLOG"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:          ":8080",
			AllowOrigins:  "http://localhost:8080",
			PublicURL:     "http://localhost:8080",
			BodyLimit:     4 * 1024 * 1024,
			ClientIdleTTL: 2 * time.Hour,
		},
		Database: DatabaseConfig{DSN: "sqlite:persona.db"},
		Sessions: SessionsConfig{Path: "sessions.db"},
		Auth: AuthConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Storage: StorageConfig{
			Dir:       "storage",
			PublicURL: "http://localhost:8080/storage",
		},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
// ${VAR_NAME} references in the file are replaced by environment values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable value, or an empty
// string when unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.HTTP),
		validation.Field(&c.Database),
		validation.Field(&c.Sessions),
		validation.Field(&c.Auth),
		validation.Field(&c.Storage),
	)
}

func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.PublicURL, validation.Required, is.URL),
		validation.Field(&c.BodyLimit, validation.Min(1)),
		validation.Field(&c.ClientIdleTTL, validation.Required),
	)
}

func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DSN, validation.Required,
			validation.Match(regexp.MustCompile(`^(postgres|postgresql)://|^(sqlite|file):`)).
				Error("must start with postgres://, postgresql://, sqlite: or file:")),
	)
}

func (c SessionsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.Required),
	)
}

func (c AuthConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.AccessTTL, validation.Required),
		validation.Field(&c.RefreshTTL, validation.Required),
	)
}

func (c StorageConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.PublicURL, validation.Required, is.URL),
	)
}
