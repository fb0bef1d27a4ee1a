// Command server runs the timesync API.
//
// Configuration is read from a YAML file plus TIMESYNC_* environment
// overrides; see pkg/config. The config file path comes from -config,
// TIMESYNC_CONFIG, ./config.yaml, or /etc/timesync/config.yaml, in that
// order.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/osuosl/timesync/pkg/auth"
	"github.com/osuosl/timesync/pkg/auth/ldap"
	"github.com/osuosl/timesync/pkg/config"
	"github.com/osuosl/timesync/pkg/debug"
	"github.com/osuosl/timesync/pkg/registry"
	"github.com/osuosl/timesync/pkg/storage"
	"github.com/osuosl/timesync/pkg/storage/memory"
	"github.com/osuosl/timesync/pkg/storage/postgres"
	"github.com/osuosl/timesync/pkg/token"
	"github.com/osuosl/timesync/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	debug.Init()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := context.Background()

	reg, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := reg.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	codec := token.NewCodec([]byte(cfg.Auth.Secret))
	issuer := token.NewIssuer(codec, reg, cfg.Auth.InstanceName, cfg.Auth.MaxAge())
	verifier := token.NewVerifier(codec, reg, store.Users(), cfg.Auth.InstanceName, cfg.Auth.MaxAge())

	gate := auth.NewGate(verifier)
	if cfg.Auth.TypeEnabled(auth.TypePassword) {
		gate.EnablePrimary(auth.TypePassword, auth.NewPasswords(store.Users()))
	}
	if cfg.Auth.TypeEnabled(auth.TypeLDAP) {
		gate.EnablePrimary(auth.TypeLDAP, ldap.New(ldap.Config{
			URL:      cfg.Auth.LDAP.URL,
			BindDN:   cfg.Auth.LDAP.BindDN,
			StartTLS: cfg.Auth.LDAP.StartTLS,
		}, store.Users()))
	}
	slog.Info("authentication configured",
		"instance", cfg.Auth.InstanceName,
		"types", cfg.Auth.Types,
		"max_token_age", cfg.Auth.MaxAge(),
	)

	var opts []transport.Option
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transport.WithMetrics(cfg.Observability.Metrics.Path))
	}
	handler := transport.NewHandler(store, gate, issuer, reg, opts...)

	srv := transport.NewServer(handler.Routes(), transport.ServerConfig{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       slog.Default(),
	})
	return srv.ListenAndServe()
}

func buildRegistry(ctx context.Context, cfg *config.Config) (registry.Registry, error) {
	switch cfg.Registry.Type {
	case "redis":
		reg, err := registry.NewRedis(ctx, registry.RedisConfig{
			Addr:     cfg.Registry.Redis.Addr,
			Password: cfg.Registry.Redis.Password,
			DB:       cfg.Registry.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("creating token registry: %w", err)
		}
		slog.Info("token registry ready", "type", "redis", "addr", cfg.Registry.Redis.Addr)
		return reg, nil
	default:
		slog.Info("token registry ready", "type", "memory")
		return registry.NewMemory(), nil
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating store: %w", err)
		}
		slog.Info("store ready", "type", "postgres")
		return store, nil
	default:
		slog.Info("store ready", "type", "memory")
		return memory.New(), nil
	}
}
