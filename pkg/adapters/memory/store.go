package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// Store implements ports.DatasetStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Dataset
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Dataset),
	}
}

// Save records the dataset under its filename, replacing any previous entry.
func (s *Store) Save(ctx context.Context, dataset domain.Dataset) error {
	copied := dataset
	copied.Schema = dataset.Schema.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[dataset.Filename] = copied
	return nil
}

// Load returns a copy so callers cannot mutate the cached schema.
func (s *Store) Load(ctx context.Context, filename string) (domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dataset, ok := s.data[filename]
	if !ok {
		return domain.Dataset{}, domain.ErrDatasetNotFound
	}
	ret := dataset
	ret.Schema = dataset.Schema.Clone()
	return ret, nil
}

// Delete removes the dataset. Missing entries are ignored.
func (s *Store) Delete(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, filename)
	return nil
}

// List returns cached dataset filenames in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
