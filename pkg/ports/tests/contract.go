package tests

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/ashwinibhardwaj/sqlassist/pkg/ports"
)

// UploadStoreContractTest is a reusable test suite that verifies if an adapter complies with ports.UploadStore.
func UploadStoreContractTest(t *testing.T, store ports.UploadStore) {
	t.Helper()
	ctx := context.Background()
	dump := "CREATE TABLE orders (id INT, amount INT);\nINSERT INTO orders VALUES (1, 42);\n"

	var saved string

	// 1. Save sanitizes the name
	t.Run("Save", func(t *testing.T) {
		name, err := store.Save(ctx, "../my shop.sql", strings.NewReader(dump))
		if err != nil {
			t.Fatalf("unexpected error saving dump: %v", err)
		}
		if name != "my_shop.sql" {
			t.Fatalf("expected sanitized name my_shop.sql, got %q", name)
		}
		saved = name
	})

	// 2. Resolve returns a readable local path
	t.Run("Resolve", func(t *testing.T) {
		path, err := store.Resolve(ctx, saved)
		if err != nil {
			t.Fatalf("unexpected error resolving dump: %v", err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("resolved path is not readable: %v", err)
		}
		if string(content) != dump {
			t.Errorf("content mismatch. got %q, want %q", content, dump)
		}
	})

	// 3. Resolve (Missing)
	t.Run("Resolve_Missing", func(t *testing.T) {
		_, err := store.Resolve(ctx, "missing.sql")
		if !errors.Is(err, domain.ErrSourceMissing) {
			t.Errorf("expected ErrSourceMissing, got %v", err)
		}
	})

	// 4. Reject non-dump files
	t.Run("Save_InvalidExtension", func(t *testing.T) {
		_, err := store.Save(ctx, "notes.txt", strings.NewReader("hello"))
		if !errors.Is(err, domain.ErrInvalidFilename) {
			t.Errorf("expected ErrInvalidFilename, got %v", err)
		}
	})

	// 5. List
	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing dumps: %v", err)
		}
		if len(names) != 1 || names[0] != saved {
			t.Errorf("expected [%s], got %v", saved, names)
		}
	})

	// 6. Delete (idempotent)
	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, saved); err != nil {
			t.Fatalf("unexpected error deleting dump: %v", err)
		}
		if _, err := store.Resolve(ctx, saved); !errors.Is(err, domain.ErrSourceMissing) {
			t.Errorf("expected ErrSourceMissing after delete, got %v", err)
		}
		if err := store.Delete(ctx, saved); err != nil {
			t.Errorf("second delete should be a no-op, got %v", err)
		}
	})
}
