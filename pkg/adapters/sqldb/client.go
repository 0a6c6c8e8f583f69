// Package sqldb runs generated SQL and introspects schemas over database/sql.
// It serves both PostgreSQL (pgx stdlib driver) and DuckDB datasets.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// OpenFunc opens a database handle for a driver name and DSN.
type OpenFunc func(ctx context.Context, driver, dsn string) (*sql.DB, error)

// Client implements ports.Executor and ports.Introspector.
type Client struct {
	open    OpenFunc
	maxRows int
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithOpener replaces the function used to open database handles.
func WithOpener(open OpenFunc) Option {
	return func(c *Client) {
		c.open = open
	}
}

// WithMaxRows caps the rows returned by Execute. Zero means unlimited.
func WithMaxRows(n int) Option {
	return func(c *Client) {
		c.maxRows = max(n, 0)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client that opens a short-lived handle per call.
func New(opts ...Option) *Client {
	c := &Client{
		open:    Open,
		maxRows: 1000,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open opens a handle and verifies connectivity.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return db, nil
}

func (c *Client) connect(ctx context.Context, cfg domain.DBConfig) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = domain.DriverPostgres
	}
	return c.open(ctx, driver, cfg.DSN())
}

func schemaFor(driver string) string {
	if driver == domain.DriverDuckDB {
		return "main"
	}
	return "public"
}
