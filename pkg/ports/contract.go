package ports

import (
	"context"
	"testing"
	"time"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDatasetStoreContract runs a suite of tests to verify that a DatasetStore implementation
// adheres to the defined interface contract.
func RunDatasetStoreContract(t *testing.T, store DatasetStore) {
	ctx := context.Background()
	filename := "contract-" + time.Now().Format("20060102150405") + ".sql"

	t.Run("Save and Load", func(t *testing.T) {
		dataset := domain.Dataset{
			Schema: domain.Schema{
				Filename: filename,
				Tables: map[string][]string{
					"orders": {"id (integer)", "amount (numeric)"},
				},
				DBConfig: domain.DBConfig{Driver: domain.DriverPostgres, Host: "db", Port: 5432, Database: "contract"},
			},
			LoadedAt: time.Now().UTC().Truncate(time.Second),
		}

		require.NoError(t, store.Save(ctx, dataset), "Save should not return error")

		loaded, err := store.Load(ctx, filename)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, filename, loaded.Filename)
		assert.Equal(t, []string{"id (integer)", "amount (numeric)"}, loaded.Tables["orders"])
		assert.Equal(t, "contract", loaded.DBConfig.Database)
		assert.True(t, dataset.LoadedAt.Equal(loaded.LoadedAt))
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, filename)
		require.NoError(t, err)
		loaded.Tables["orders"][0] = "mutated"

		again, err := store.Load(ctx, filename)
		require.NoError(t, err)
		assert.Equal(t, "id (integer)", again.Tables["orders"][0])
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, filename)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, filename))

		_, err := store.Load(ctx, filename)
		assert.ErrorIs(t, err, domain.ErrDatasetNotFound)

		// Idempotent
		assert.NoError(t, store.Delete(ctx, filename))
	})

	t.Run("Load missing", func(t *testing.T) {
		_, err := store.Load(ctx, "does-not-exist.sql")
		assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
	})
}
