package ports

import (
	"context"
	"io"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// DatasetStore caches provisioned datasets (schema + credentials) keyed by dump filename.
// Implementations must be safe for concurrent use.
type DatasetStore interface {
	// Save persists the dataset under its filename.
	Save(ctx context.Context, dataset domain.Dataset) error

	// Load retrieves a dataset by filename.
	// Returns domain.ErrDatasetNotFound if it is not cached.
	Load(ctx context.Context, filename string) (domain.Dataset, error)

	// Delete evicts a dataset. Deleting a missing dataset is not an error.
	Delete(ctx context.Context, filename string) error

	// List returns the cached filenames.
	List(ctx context.Context) ([]string, error)
}

// UploadStore holds uploaded dump files addressed by sanitized filename.
type UploadStore interface {
	// Save stores the content under the sanitized form of filename and returns that name.
	Save(ctx context.Context, filename string, content io.Reader) (string, error)

	// Resolve returns a local filesystem path for the dump.
	// Returns domain.ErrSourceMissing if the dump does not exist.
	Resolve(ctx context.Context, filename string) (string, error)

	// List returns the stored dump filenames in lexical order.
	List(ctx context.Context) ([]string, error)

	// Delete removes the dump. Deleting a missing dump is not an error.
	Delete(ctx context.Context, filename string) error
}
