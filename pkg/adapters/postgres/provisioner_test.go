package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

func TestNew(t *testing.T) {
	_, err := New(domain.DBConfig{})
	assert.Error(t, err)

	p, err := New(domain.DBConfig{Host: "db", User: "root"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", p.admin.Database)
	assert.Equal(t, 5432, p.admin.Port)
	assert.Equal(t, domain.DriverPostgres, p.admin.Driver)
}

func TestProvision_MissingDump(t *testing.T) {
	p, err := New(domain.DBConfig{Host: "db"})
	require.NoError(t, err)

	_, err = p.Provision(t.Context(), "/does/not/exist.sql")
	assert.ErrorIs(t, err, domain.ErrSourceMissing)
}
