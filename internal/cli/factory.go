// Package cli assembles the assistant from configuration and hosts the
// long-running command modes (HTTP server, chat REPL).
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ashwinibhardwaj/sqlassist"
	"github.com/ashwinibhardwaj/sqlassist/internal/config"
	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/duckdb"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/llm"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/memory"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/postgres"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/redis"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/sqldb"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/uploads"
	"github.com/ashwinibhardwaj/sqlassist/pkg/observability"
	"github.com/ashwinibhardwaj/sqlassist/pkg/persistence/middleware"
	"github.com/ashwinibhardwaj/sqlassist/pkg/ports"
	"github.com/ashwinibhardwaj/sqlassist/pkg/session"
)

// App is a fully wired assistant plus the resources that must be closed with it.
type App struct {
	Assistant *sqlassist.Assistant
	Config    config.Config
	Logger    *slog.Logger
	Registry  *prometheus.Registry

	closers []func() error
}

// NewApp builds the assistant described by cfg.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	provisioner, err := newProvisioner(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := newUploadStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	completer, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	datasets, locker, closer, err := newDatasetStore(cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	if datasets, err = secureStore(datasets, cfg.Store); err != nil {
		_ = app.Close()
		return nil, err
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}

	db := sqldb.New(sqldb.WithMaxRows(cfg.MaxRows), sqldb.WithLogger(logger))
	metrics := observability.NewMetrics(app.Registry)

	assistant, err := sqlassist.New(sqlassist.Components{
		Uploads:      store,
		Provisioner:  provisioner,
		Introspector: db,
		Executor:     db,
		SQL:          llm.NewSQLGenerator(completer, cfg.Dialect()),
		Answers:      llm.NewReasoner(completer),
	},
		sqlassist.WithDatasetStore(datasets),
		sqlassist.WithSessionManager(session.NewManager(sessionOpts...)),
		sqlassist.WithMaxRetries(cfg.MaxRetries),
		sqlassist.WithLifecycleHooks(observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger))),
		sqlassist.WithLogger(logger),
	)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Assistant = assistant
	return app, nil
}

// Close releases connections held by the app. Scratch databases are left in place.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newProvisioner(cfg config.Config, logger *slog.Logger) (ports.Provisioner, error) {
	switch cfg.Driver {
	case config.DriverDuckDB:
		return duckdb.New(cfg.DuckDB.Dir, duckdb.WithLogger(logger))
	case config.DriverPostgres:
		return postgres.New(cfg.Postgres, postgres.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

func newUploadStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.UploadStore, error) {
	dir, err := uploads.NewDir(cfg.Uploads.Dir)
	if err != nil {
		return nil, err
	}
	if cfg.Uploads.S3 == nil {
		return dir, nil
	}
	return uploads.NewMirror(ctx, dir, *cfg.Uploads.S3, logger)
}

// newDatasetStore returns the dataset cache and, for shared backends, the
// distributed locker that keeps replicas from provisioning the same dump at once.
func newDatasetStore(cfg config.Config) (ports.DatasetStore, ports.DistributedLocker, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		return memory.NewStore(), nil, nil, nil
	case config.BackendRedis:
		var opts []redis.Option
		if cfg.Store.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Store.TTL))
		}
		if cfg.Store.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Store.Prefix))
		}
		store := redis.New(cfg.Store.Addr, cfg.Store.Password, cfg.Store.DB, opts...)
		prefix := cfg.Store.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		return store, redis.NewLocker(store.Client(), prefix), store.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// secureStore encrypts cached credentials when an encryption key is configured.
func secureStore(store ports.DatasetStore, cfg config.StoreConfig) (ports.DatasetStore, error) {
	if cfg.EncryptionKey == "" {
		return store, nil
	}
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	mw, err := middleware.NewEncryptionMiddleware(enc)
	if err != nil {
		return nil, err
	}
	return middleware.Chain(store, mw), nil
}
