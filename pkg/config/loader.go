package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, TIMESYNC_CONFIG env, ./config.yaml, /etc/timesync/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. TIMESYNC_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/timesync/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check TIMESYNC_CONFIG env var.
	if envPath := os.Getenv("TIMESYNC_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/timesync/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps TIMESYNC_* environment variables to config fields.
// Env vars win over YAML values so deployments can override a shared file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TIMESYNC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TIMESYNC_INSTANCE_NAME"); v != "" {
		cfg.Auth.InstanceName = v
	}
	if v := os.Getenv("TIMESYNC_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("TIMESYNC_MAX_TOKEN_AGE"); v != "" {
		if age, err := strconv.Atoi(v); err == nil {
			cfg.Auth.MaxTokenAge = age
		}
	}
	if v := os.Getenv("TIMESYNC_AUTH_TYPES"); v != "" {
		cfg.Auth.Types = strings.Split(v, ",")
	}
	if v := os.Getenv("TIMESYNC_LDAP_URL"); v != "" {
		cfg.Auth.LDAP.URL = v
	}
	if v := os.Getenv("TIMESYNC_LDAP_BIND_DN"); v != "" {
		cfg.Auth.LDAP.BindDN = v
	}
	if v := os.Getenv("TIMESYNC_REGISTRY"); v != "" {
		cfg.Registry.Type = v
	}
	if v := os.Getenv("TIMESYNC_REDIS_ADDR"); v != "" {
		cfg.Registry.Redis.Addr = v
	}
	if v := os.Getenv("TIMESYNC_REDIS_PASSWORD"); v != "" {
		cfg.Registry.Redis.Password = v
	}
	if v := os.Getenv("TIMESYNC_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("TIMESYNC_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// auth.secret_file -> auth.secret
	if cfg.Auth.SecretFile != "" && cfg.Auth.Secret == "" {
		val, err := readSecretFile(cfg.Auth.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.secret_file: %w", err)
		}
		cfg.Auth.Secret = val
	}

	// registry.redis.password_file -> registry.redis.password
	if cfg.Registry.Redis.PasswordFile != "" && cfg.Registry.Redis.Password == "" {
		val, err := readSecretFile(cfg.Registry.Redis.PasswordFile)
		if err != nil {
			return fmt.Errorf("registry.redis.password_file: %w", err)
		}
		cfg.Registry.Redis.Password = val
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
