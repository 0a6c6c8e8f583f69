package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// DefaultPrefix namespaces dataset keys.
const DefaultPrefix = "sqlassist:dataset:"

// Store implements ports.DatasetStore using Redis, so replicas share loaded datasets.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for cached datasets.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for datasets.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying connection so a Locker can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(filename string) string {
	return s.prefix + filename
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes the dataset as JSON and indexes it in a sorted set scored by expiry.
func (s *Store) Save(ctx context.Context, dataset domain.Dataset) error {
	data, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(dataset.Filename), data, s.ttl)

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: dataset.Filename,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, filename string) (domain.Dataset, error) {
	val, err := s.client.Get(ctx, s.key(filename)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Dataset{}, domain.ErrDatasetNotFound
		}
		return domain.Dataset{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var dataset domain.Dataset
	if err := json.Unmarshal(val, &dataset); err != nil {
		return domain.Dataset{}, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	return dataset, nil
}

func (s *Store) Delete(ctx context.Context, filename string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(filename))
	pipe.ZRem(ctx, s.indexKey(), filename)

	_, err := pipe.Exec(ctx)
	return err
}

// List prunes expired index entries before returning the live filenames.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired datasets: %w", err)
	}

	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return names, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
