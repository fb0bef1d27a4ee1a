package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure. A missing
// instance name or signing secret is deliberately fatal at startup: a
// server that cannot mint or verify tokens must not serve requests.
func (c *Config) Validate() error {
	var errs []error

	// auth.instance_name is required; it is the token issuer claim.
	if c.Auth.InstanceName == "" {
		errs = append(errs, fmt.Errorf("auth.instance_name is required"))
	}

	// auth.secret or auth.secret_file is required.
	if c.Auth.Secret == "" && c.Auth.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.secret or auth.secret_file is required"))
	}

	// auth.max_token_age must be positive.
	if c.Auth.MaxTokenAge <= 0 {
		errs = append(errs, fmt.Errorf("auth.max_token_age must be > 0, got %d", c.Auth.MaxTokenAge))
	}

	// auth.types entries must be known primary credential types.
	for _, t := range c.Auth.Types {
		switch t {
		case "password", "ldap":
			// valid
		default:
			errs = append(errs, fmt.Errorf("auth.types entries must be \"password\" or \"ldap\", got %q", t))
		}
	}

	// ldap settings are required when the ldap type is enabled.
	if c.Auth.TypeEnabled("ldap") {
		if c.Auth.LDAP.URL == "" {
			errs = append(errs, fmt.Errorf("auth.ldap.url is required when the ldap type is enabled"))
		}
		if c.Auth.LDAP.BindDN == "" {
			errs = append(errs, fmt.Errorf("auth.ldap.bind_dn is required when the ldap type is enabled"))
		}
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// registry.type must be a known value.
	switch c.Registry.Type {
	case "memory", "redis":
		// valid
	default:
		errs = append(errs, fmt.Errorf("registry.type must be \"memory\" or \"redis\", got %q", c.Registry.Type))
	}

	// If registry.type is "redis", an address must be set.
	if c.Registry.Type == "redis" && c.Registry.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("registry.redis.addr is required when registry.type is \"redis\""))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	return errors.Join(errs...)
}
