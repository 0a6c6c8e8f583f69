package domain

import (
	"fmt"
	"maps"
	"net"
	"net/url"
	"slices"
	"strconv"
	"time"
)

// Database drivers understood by the executor and provisioners.
const (
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"
)

// Row is a single result row keyed by column name.
type Row = map[string]any

// DBConfig holds connection credentials for a provisioned database.
type DBConfig struct {
	Driver   string `json:"driver" yaml:"driver"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`

	// Database is the sanitized identifier. For DuckDB it names a file.
	Database string `json:"database" yaml:"database"`

	// Path is the database file location for file-backed drivers.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// DSN renders a connection string suitable for database/sql.Open with Driver.
func (c DBConfig) DSN() string {
	switch c.Driver {
	case DriverDuckDB:
		return c.Path
	default:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:   "/" + c.Database,
		}
		q := u.Query()
		q.Set("sslmode", "disable")
		u.RawQuery = q.Encode()
		return u.String()
	}
}

// Redacted returns a copy without the password, safe for logging and API responses.
func (c DBConfig) Redacted() DBConfig {
	if c.Password != "" {
		c.Password = "****"
	}
	return c
}

// String implements fmt.Stringer without leaking the password.
func (c DBConfig) String() string {
	if c.Driver == DriverDuckDB {
		return fmt.Sprintf("duckdb:%s", c.Path)
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

// Schema describes a dataset as seen by the SQL synthesizer.
type Schema struct {
	Filename string `json:"filename"`

	// Tables maps table names to ordered "column (type)" descriptors.
	Tables map[string][]string `json:"schema"`

	DBConfig DBConfig `json:"db_config"`
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	next := s
	if s.Tables != nil {
		next.Tables = make(map[string][]string, len(s.Tables))
		for table, cols := range s.Tables {
			next.Tables[table] = slices.Clone(cols)
		}
	}
	return next
}

// TableNames returns the table names in lexical order.
func (s Schema) TableNames() []string {
	return slices.Sorted(maps.Keys(s.Tables))
}

// Dataset is the cached view of an uploaded dump: its schema and live credentials.
type Dataset struct {
	Schema
	LoadedAt time.Time `json:"loaded_at"`
}
