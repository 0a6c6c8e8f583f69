// Package postgres provisions scratch PostgreSQL databases from SQL dumps.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/dump"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// Provisioner implements ports.Provisioner against a PostgreSQL server.
// One database is created per dump identifier; re-provisioning resets its public schema.
type Provisioner struct {
	admin          domain.DBConfig
	connectRetries uint64
	logger         *slog.Logger
}

// Option configures the Provisioner.
type Option func(*Provisioner)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithConnectRetries sets how many times a failed connection is retried with exponential backoff.
func WithConnectRetries(n uint64) Option {
	return func(p *Provisioner) {
		p.connectRetries = n
	}
}

// New creates a Provisioner. admin must point at a maintenance database (usually "postgres")
// with a role allowed to create and drop databases.
func New(admin domain.DBConfig, opts ...Option) (*Provisioner, error) {
	if admin.Host == "" {
		return nil, errors.New("postgres: admin host is required")
	}
	admin.Driver = domain.DriverPostgres
	if admin.Database == "" {
		admin.Database = "postgres"
	}
	if admin.Port == 0 {
		admin.Port = 5432
	}

	p := &Provisioner{
		admin:          admin,
		connectRetries: 3,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Provision creates (or resets) the database for the dump and imports it.
func (p *Provisioner) Provision(ctx context.Context, dumpPath string) (domain.DBConfig, error) {
	chunks, err := dump.Load(dumpPath)
	if err != nil {
		return domain.DBConfig{}, err
	}

	name := dump.Identifier(dumpPath)
	existed, err := p.ensureDatabase(ctx, name)
	if err != nil {
		return domain.DBConfig{}, err
	}

	target := p.admin
	target.Database = name

	conn, err := p.connect(ctx, target)
	if err != nil {
		return domain.DBConfig{}, err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	if existed {
		p.logger.InfoContext(ctx, "reusing database", "database", name)
		if _, err := conn.PgConn().Exec(ctx, "DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public").ReadAll(); err != nil {
			return domain.DBConfig{}, fmt.Errorf("reset database %s: %w", name, err)
		}
	} else {
		p.logger.InfoContext(ctx, "created database", "database", name)
	}

	start := time.Now()
	for i, c := range chunks {
		if err := importChunk(ctx, conn, c); err != nil {
			return domain.DBConfig{}, fmt.Errorf("import %s (chunk %d): %w", name, i+1, err)
		}
	}
	p.logger.InfoContext(ctx, "dump imported", "database", name, "chunks", len(chunks), "duration", time.Since(start))

	return target, nil
}

// Release drops the database. A missing database is not an error.
func (p *Provisioner) Release(ctx context.Context, database string) error {
	if database == "" {
		return nil
	}

	conn, err := p.connect(ctx, p.admin)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	stmt := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{database}.Sanitize())
	if _, err := conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("drop database %s: %w", database, err)
	}
	p.logger.InfoContext(ctx, "dropped database", "database", database)
	return nil
}

// Ping verifies the admin connection.
func (p *Provisioner) Ping(ctx context.Context) error {
	conn, err := p.connect(ctx, p.admin)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()
	return conn.Ping(ctx)
}

func (p *Provisioner) ensureDatabase(ctx context.Context, name string) (bool, error) {
	conn, err := p.connect(ctx, p.admin)
	if err != nil {
		return false, err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database %s: %w", name, err)
	}
	if exists {
		return true, nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %s: %w", name, err)
	}
	return false, nil
}

func (p *Provisioner) connect(ctx context.Context, cfg domain.DBConfig) (*pgx.Conn, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.connectRetries), ctx)
	conn, err := backoff.RetryNotifyWithData(func() (*pgx.Conn, error) {
		return pgx.ConnectConfig(ctx, connCfg)
	}, bo, func(err error, wait time.Duration) {
		p.logger.WarnContext(ctx, "postgres connect failed, retrying", "database", cfg.Database, "in", wait, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.String(), err)
	}
	return conn, nil
}

func importChunk(ctx context.Context, conn *pgx.Conn, c dump.Chunk) error {
	if c.IsCopy {
		_, err := conn.PgConn().CopyFrom(ctx, strings.NewReader(c.CopyData), c.SQL)
		return err
	}
	_, err := conn.PgConn().Exec(ctx, c.SQL).ReadAll()
	return err
}
