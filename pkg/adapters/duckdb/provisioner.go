// Package duckdb provisions scratch DuckDB database files from SQL dumps.
// It needs no server, which makes it the default backend for local use.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/dump"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// Provisioner implements ports.Provisioner with one database file per dump identifier.
type Provisioner struct {
	dir    string
	logger *slog.Logger
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

// New creates a Provisioner storing database files under dir.
func New(dir string, opts ...Option) (*Provisioner, error) {
	if dir == "" {
		return nil, errors.New("duckdb: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("duckdb: create data directory: %w", err)
	}

	p := &Provisioner{dir: dir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Path returns the database file used for an identifier.
func (p *Provisioner) Path(database string) string {
	return filepath.Join(p.dir, database+".duckdb")
}

// Provision imports the dump into a fresh database file. An existing file for the
// same identifier is replaced.
func (p *Provisioner) Provision(ctx context.Context, dumpPath string) (domain.DBConfig, error) {
	chunks, err := dump.Load(dumpPath)
	if err != nil {
		return domain.DBConfig{}, err
	}

	name := dump.Identifier(dumpPath)
	path := p.Path(name)
	if err := removeDatabase(path); err != nil {
		return domain.DBConfig{}, err
	}

	db, err := sql.Open(domain.DriverDuckDB, path)
	if err != nil {
		return domain.DBConfig{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	for i, c := range chunks {
		if c.IsCopy {
			return domain.DBConfig{}, fmt.Errorf("import %s (chunk %d): COPY FROM stdin is not supported by duckdb", name, i+1)
		}
		if _, err := db.ExecContext(ctx, c.SQL); err != nil {
			return domain.DBConfig{}, fmt.Errorf("import %s (chunk %d): %w", name, i+1, err)
		}
	}

	p.logger.InfoContext(ctx, "dump imported", "database", name, "path", path, "chunks", len(chunks))
	return domain.DBConfig{
		Driver:   domain.DriverDuckDB,
		Database: name,
		Path:     path,
	}, nil
}

// Release removes the database file. A missing file is not an error.
func (p *Provisioner) Release(ctx context.Context, database string) error {
	if database == "" {
		return nil
	}
	if err := removeDatabase(p.Path(database)); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "dropped database", "database", database)
	return nil
}

func removeDatabase(path string) error {
	for _, f := range []string{path, path + ".wal"} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("duckdb: remove %s: %w", f, err)
		}
	}
	return nil
}
