package ports

import (
	"context"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// SQLSynthesizer turns a schema and a question into a SQL query.
// The question may embed a prior failure when the workflow is repairing a query.
type SQLSynthesizer interface {
	GenerateSQL(ctx context.Context, tables map[string][]string, question string) (string, error)
}

// AnswerSynthesizer turns a question and its query result into a natural-language answer.
type AnswerSynthesizer interface {
	Answer(ctx context.Context, question string, rows []domain.Row) (string, error)
}

// Provisioner creates and tears down ephemeral databases from SQL dumps.
type Provisioner interface {
	// Provision imports the dump and returns credentials for it. Calling it again for
	// the same dump filename reuses the same database and overwrites its contents.
	Provision(ctx context.Context, dumpPath string) (domain.DBConfig, error)

	// Release drops the database. A missing database is not an error.
	Release(ctx context.Context, database string) error
}

// Introspector describes the tables and columns of a live database.
type Introspector interface {
	Introspect(ctx context.Context, cfg domain.DBConfig) (map[string][]string, error)
}

// Executor runs a SQL statement against a live database.
type Executor interface {
	// Execute returns the rows produced by the statement. Statements that produce no
	// row set return a single row reporting the affected-row count.
	Execute(ctx context.Context, cfg domain.DBConfig, sql string) ([]domain.Row, error)
}
