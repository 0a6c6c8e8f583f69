package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/redis"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/ashwinibhardwaj/sqlassist/pkg/ports"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunDatasetStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	dataset := domain.Dataset{Schema: domain.Schema{
		Filename: "orders.sql",
		Tables:   map[string][]string{"orders": {"id (integer)"}},
	}}
	require.NoError(t, store.Save(ctx, dataset))

	names, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, names, "orders.sql")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "orders.sql")
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)

	// The index is pruned against wall-clock time, not miniredis time.
	time.Sleep(1200 * time.Millisecond)

	names, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, names)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Dataset{Schema: domain.Schema{Filename: "sales.sql"}}))

	assert.True(t, mr.Exists("custom:app:sales.sql"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	names, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"sales.sql"}, names)
}

func TestRedisStore_RoundTripsCredentials(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	cfg := domain.DBConfig{Driver: domain.DriverPostgres, Host: "db", User: "u", Password: "p", Port: 5432, Database: "sales"}
	require.NoError(t, store.Save(ctx, domain.Dataset{Schema: domain.Schema{Filename: "sales.sql", DBConfig: cfg}}))

	loaded, err := store.Load(ctx, "sales.sql")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded.DBConfig)
	assert.NoError(t, store.Ping(ctx))
}
