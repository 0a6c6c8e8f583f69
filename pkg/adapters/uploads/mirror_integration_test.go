//go:build integration

package uploads

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/ashwinibhardwaj/sqlassist/pkg/ports/tests"
)

func TestMirrorAgainstMinIO(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcminio.Run(ctx, "minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := S3Config{
		Endpoint:         strings.Replace(endpoint, "localhost", "127.0.0.1", 1),
		Region:           "us-east-1",
		Bucket:           "sqlassist-it",
		AccessKeyID:      "minioadmin",
		SecretAccessKey:  "minioadmin",
		Prefix:           "integration",
		AutoCreateBucket: true,
	}

	first, err := NewDir(t.TempDir())
	require.NoError(t, err)
	mirror, err := NewMirror(ctx, first, cfg, nil)
	require.NoError(t, err)

	tests.UploadStoreContractTest(t, mirror)

	// A second replica sees dumps saved by the first.
	_, err = mirror.Save(ctx, "shared.sql", strings.NewReader("SELECT 42;"))
	require.NoError(t, err)

	second, err := NewDir(t.TempDir())
	require.NoError(t, err)
	replica, err := NewMirror(ctx, second, cfg, nil)
	require.NoError(t, err)

	path, err := replica.Resolve(ctx, "shared.sql")
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "SELECT 42;", string(content))

	require.NoError(t, replica.Delete(ctx, "shared.sql"))
}
