// Package config provides unified configuration for the timesync server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (TIMESYNC_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the timesync server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Registry      RegistryConfig      `yaml:"registry"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8000
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 30s
}

// AuthConfig holds authentication and token issuance settings.
type AuthConfig struct {
	// InstanceName becomes the issuer claim of every minted token.
	// Required; tokens from other instances are rejected.
	InstanceName string `yaml:"instance_name"`

	Secret     string `yaml:"secret"`      // token signing secret, required
	SecretFile string `yaml:"secret_file"` // _file variant for secret

	// MaxTokenAge bounds token validity, in seconds (default: 1800).
	MaxTokenAge int `yaml:"max_token_age"`

	// Types lists the enabled primary credential types
	// ("password", "ldap"). Default: ["password"].
	Types []string `yaml:"types"`

	LDAP LDAPConfig `yaml:"ldap"`
}

// MaxAge returns the token max age as a duration.
func (a AuthConfig) MaxAge() time.Duration {
	return time.Duration(a.MaxTokenAge) * time.Second
}

// TypeEnabled reports whether a primary credential type is enabled.
func (a AuthConfig) TypeEnabled(credType string) bool {
	for _, t := range a.Types {
		if t == credType {
			return true
		}
	}
	return false
}

// LDAPConfig holds directory-service verifier settings, used when the
// "ldap" credential type is enabled.
type LDAPConfig struct {
	URL      string `yaml:"url"`       // ldap:// or ldaps://
	BindDN   string `yaml:"bind_dn"`   // template with %s for the username
	StartTLS bool   `yaml:"start_tls"` // upgrade plain connections
}

// RegistryConfig holds token registry settings.
type RegistryConfig struct {
	Type  string      `yaml:"type"` // "memory" or "redis", default: "memory"
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis-specific registry settings.
type RedisConfig struct {
	Addr         string `yaml:"addr"` // host:port, required for type=redis
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
	DB           int    `yaml:"db"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			MaxTokenAge: 1800,
			Types:       []string{"password"},
		},
		Registry: RegistryConfig{
			Type: "memory",
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
