package dump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/uploads/orders.sql", "orders"},
		{"uploads/my-shop.v2.sql", "my_shop_v2"},
		{"Sales Data.sql", "sales_data"},
		{"/tmp/.sql", "dataset"},
		{strings.Repeat("a", 80) + ".sql", strings.Repeat("a", 63)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Identifier(tt.path), tt.path)
	}
}

func TestIdentifier_SameFileSameDatabase(t *testing.T) {
	assert.Equal(t, Identifier("/a/orders.sql"), Identifier("/b/orders.sql"))
}

// Distinct filenames can share a database; callers must lock and deduplicate by Identifier.
func TestIdentifier_DistinctNamesCanCollide(t *testing.T) {
	assert.Equal(t, Identifier("Sales.sql"), Identifier("sales.sql"))
	assert.Equal(t, Identifier("a-b.sql"), Identifier("a_b.sql"))
	assert.NotEqual(t, Identifier("sales.sql"), Identifier("sales2.sql"))
}

func TestSplitDump(t *testing.T) {
	dump := `-- dump
USE shop;
\connect shop
CREATE TABLE orders (id int, amount int);
INSERT INTO orders VALUES (1, 40);
COPY public.orders (id, amount) FROM stdin;
2	2
3	0
\.
CREATE INDEX orders_amount ON orders (amount);
`
	chunks, err := Split(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.False(t, chunks[0].IsCopy)
	assert.NotContains(t, chunks[0].SQL, "USE shop")
	assert.NotContains(t, chunks[0].SQL, `\connect`)
	assert.Contains(t, chunks[0].SQL, "CREATE TABLE orders")
	assert.Contains(t, chunks[0].SQL, "INSERT INTO orders")

	assert.True(t, chunks[1].IsCopy)
	assert.Equal(t, "COPY public.orders (id, amount) FROM stdin", chunks[1].SQL)
	assert.Equal(t, "2\t2\n3\t0\n", chunks[1].CopyData)

	assert.Equal(t, "CREATE INDEX orders_amount ON orders (amount);", chunks[2].SQL)
}

func TestSplitDump_UseVariants(t *testing.T) {
	dump := "use `shop`;\n  USE \"shop\" ;\nSELECT 1;\n-- CAUSE x;\n"
	chunks, err := Split(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "SELECT 1;\n-- CAUSE x;", chunks[0].SQL)
}

func TestSplitDump_UnterminatedCopy(t *testing.T) {
	_, err := Split(strings.NewReader("COPY t (a) FROM stdin;\n1\n"))
	assert.Error(t, err)
}

func TestSplitDump_Empty(t *testing.T) {
	chunks, err := Split(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load("/does/not/exist.sql")
	assert.ErrorIs(t, err, domain.ErrSourceMissing)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE orders (id int);\n"), 0o644))

	chunks, err := Load(path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "CREATE TABLE orders (id int);", chunks[0].SQL)
}
