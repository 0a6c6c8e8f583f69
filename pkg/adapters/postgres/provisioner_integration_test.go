//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/sqldb"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

func TestProvisioner_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pgContainer)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	p, err := New(domain.DBConfig{Host: host, Port: portNum, User: "testuser", Password: "testpass"})
	require.NoError(t, err)
	require.NoError(t, p.Ping(ctx))

	dump := filepath.Join(t.TempDir(), "orders.sql")
	require.NoError(t, os.WriteFile(dump, []byte(`USE orders;
CREATE TABLE orders (id int, amount int);
COPY orders (id, amount) FROM stdin;
1	40
2	2
\.
`), 0o644))

	first, err := p.Provision(ctx, dump)
	require.NoError(t, err)
	require.Equal(t, "orders", first.Database)

	// Re-provisioning reuses the database and overwrites its contents.
	second, err := p.Provision(ctx, dump)
	require.NoError(t, err)
	require.Equal(t, first.Database, second.Database)

	client := sqldb.New()
	rows, err := client.Execute(ctx, second, "SELECT SUM(amount) AS sum FROM orders")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 42, rows[0]["sum"])

	tables, err := client.Introspect(ctx, second)
	require.NoError(t, err)
	require.Equal(t, []string{"id (integer)", "amount (integer)"}, tables["orders"])

	require.NoError(t, p.Release(ctx, second.Database))
	// Releasing twice is a no-op.
	require.NoError(t, p.Release(ctx, second.Database))
}
