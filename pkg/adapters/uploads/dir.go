package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// Dir implements ports.UploadStore on a local directory.
type Dir struct {
	root string
}

// NewDir creates the upload directory if needed.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("uploads: directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the upload directory.
func (d *Dir) Root() string {
	return d.root
}

// Save writes content to a temp file and renames it into place, so a reader never sees a partial dump.
func (d *Dir) Save(ctx context.Context, filename string, content io.Reader) (string, error) {
	name, err := ValidateFilename(filename)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("uploads: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("uploads: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("uploads: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.root, name)); err != nil {
		return "", fmt.Errorf("uploads: store %s: %w", name, err)
	}
	return name, nil
}

func (d *Dir) Resolve(ctx context.Context, filename string) (string, error) {
	path := d.path(filename)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrSourceMissing, filename)
		}
		return "", fmt.Errorf("uploads: stat %s: %w", filename, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrSourceMissing, filename)
	}
	return path, nil
}

func (d *Dir) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("uploads: list: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), AllowedExtension) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) Delete(ctx context.Context, filename string) error {
	if err := os.Remove(d.path(filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("uploads: delete %s: %w", filename, err)
	}
	return nil
}

// path maps a filename into the root, never outside it.
func (d *Dir) path(filename string) string {
	return filepath.Join(d.root, SecureFilename(filename))
}
