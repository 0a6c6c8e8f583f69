package sqlassist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/internal/runtime"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/dump"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/memory"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/uploads"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/ashwinibhardwaj/sqlassist/pkg/ports"
	"github.com/ashwinibhardwaj/sqlassist/pkg/runner"
	"github.com/ashwinibhardwaj/sqlassist/pkg/session"
)

// Components are the adapters an Assistant is assembled from.
type Components struct {
	Uploads      ports.UploadStore
	Provisioner  ports.Provisioner
	Introspector ports.Introspector
	Executor     ports.Executor
	SQL          ports.SQLSynthesizer
	Answers      ports.AnswerSynthesizer
}

// Assistant is the high-level entry point: it manages uploaded dumps, their
// scratch databases and cached schemas, and answers questions through the
// query-repair workflow.
type Assistant struct {
	engine       *runtime.Engine
	uploads      ports.UploadStore
	provisioner  ports.Provisioner
	introspector ports.Introspector
	datasets     ports.DatasetStore
	sessions     *session.Manager

	maxRetries int
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

// Option defines a functional option for configuring the Assistant.
type Option func(*Assistant)

// WithDatasetStore replaces the default in-memory dataset cache.
func WithDatasetStore(store ports.DatasetStore) Option {
	return func(a *Assistant) {
		a.datasets = store
	}
}

// WithSessionManager shares a lock manager, e.g. one backed by a distributed locker.
func WithSessionManager(m *session.Manager) Option {
	return func(a *Assistant) {
		a.sessions = m
	}
}

// WithMaxRetries sets the repair budget of every question session.
func WithMaxRetries(n int) Option {
	return func(a *Assistant) {
		a.maxRetries = n
	}
}

// WithLifecycleHooks registers observability hooks on the workflow engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Assistant) {
		a.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// New assembles an Assistant.
func New(c Components, opts ...Option) (*Assistant, error) {
	a := &Assistant{
		uploads:      c.Uploads,
		provisioner:  c.Provisioner,
		introspector: c.Introspector,
		maxRetries:   runtime.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(a)
	}

	if c.Introspector == nil {
		return nil, errors.New("sqlassist: introspector is required")
	}
	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.datasets == nil {
		a.datasets = memory.NewStore()
	}
	if a.sessions == nil {
		a.sessions = session.NewManager(session.WithLogger(a.logger))
	}

	engine, err := runtime.NewEngine(runtime.Deps{
		Uploads:     c.Uploads,
		Provisioner: c.Provisioner,
		SQL:         c.SQL,
		Executor:    c.Executor,
		Answers:     c.Answers,
	},
		runtime.WithMaxRetries(a.maxRetries),
		runtime.WithLogger(a.logger),
		runtime.WithLifecycleHooks(a.hooks),
	)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	return a, nil
}

// Upload stores a dump, provisions its database and caches the schema.
// The returned dataset is keyed by the sanitized filename. A dump whose database
// identifier already belongs to another uploaded dump is rejected with ErrDatasetConflict.
func (a *Assistant) Upload(ctx context.Context, filename string, content io.Reader) (domain.Dataset, error) {
	name, err := uploads.ValidateFilename(filename)
	if err != nil {
		return domain.Dataset{}, err
	}

	var dataset domain.Dataset
	err = a.sessions.WithLock(ctx, lockKey(name), func(ctx context.Context) error {
		if err := a.checkConflict(ctx, name); err != nil {
			return err
		}
		if _, err := a.uploads.Save(ctx, name, content); err != nil {
			return err
		}
		dataset, err = a.provisionAndCache(ctx, name)
		return err
	})
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("process %s: %w", name, err)
	}
	a.logger.InfoContext(ctx, "dataset uploaded", "dataset", name, "tables", len(dataset.Tables))
	return dataset, nil
}

// LoadSchema returns the cached schema of an uploaded dump, provisioning
// and introspecting its database when nothing usable is cached.
func (a *Assistant) LoadSchema(ctx context.Context, filename string) (domain.Dataset, error) {
	name := key(filename)
	var dataset domain.Dataset
	err := a.sessions.WithLock(ctx, lockKey(name), func(ctx context.Context) error {
		var err error
		dataset, err = a.loadLocked(ctx, name)
		return err
	})
	return dataset, err
}

// Ask answers a question about an uploaded dump. The final workflow state is
// returned even when the session fails, so callers can show the last SQL and error.
func (a *Assistant) Ask(ctx context.Context, filename, question string) (domain.WorkflowState, error) {
	question, err := runner.SanitizeInput(question)
	if err != nil {
		return domain.WorkflowState{}, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.WorkflowState{}, domain.ErrEmptyQuestion
	}

	name := key(filename)
	var final domain.WorkflowState
	err = a.sessions.WithLock(ctx, lockKey(name), func(ctx context.Context) error {
		dataset, err := a.cachedSchema(ctx, name)
		if err != nil {
			return err
		}
		final, err = a.engine.Run(ctx, a.engine.Start(question, dataset.Schema))
		return err
	})
	return final, err
}

// Datasets lists uploaded dumps.
func (a *Assistant) Datasets(ctx context.Context) ([]string, error) {
	return a.uploads.List(ctx)
}

// Loaded lists datasets with a cached schema.
func (a *Assistant) Loaded(ctx context.Context) ([]string, error) {
	return a.datasets.List(ctx)
}

// DeleteDataset removes the dump, drops its database and evicts the cached schema.
// A database that fails to drop is logged, not returned.
func (a *Assistant) DeleteDataset(ctx context.Context, filename string) error {
	name := key(filename)
	return a.sessions.WithLock(ctx, lockKey(name), func(ctx context.Context) error {
		if err := a.uploads.Delete(ctx, name); err != nil {
			return err
		}

		database := dump.Identifier(name)
		if cached, err := a.datasets.Load(ctx, name); err == nil && cached.DBConfig.Database != "" {
			database = cached.DBConfig.Database
		}
		if err := a.provisioner.Release(ctx, database); err != nil {
			a.logger.WarnContext(ctx, "failed to drop dataset database", "dataset", name, "database", database, "err", err)
		}
		return a.datasets.Delete(ctx, name)
	})
}

// Cleanup drops the database of every cached dataset and clears the cache.
// Uploaded dumps are kept. Individual failures are joined into the returned error.
func (a *Assistant) Cleanup(ctx context.Context) (int, error) {
	names, err := a.datasets.List(ctx)
	if err != nil {
		return 0, err
	}

	var (
		dropped int
		errs    []error
	)
	for _, name := range names {
		err := a.sessions.WithLock(ctx, lockKey(name), func(ctx context.Context) error {
			dataset, err := a.datasets.Load(ctx, name)
			if errors.Is(err, domain.ErrDatasetNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := a.provisioner.Release(ctx, dataset.DBConfig.Database); err != nil {
				return fmt.Errorf("drop %s: %w", name, err)
			}
			dropped++
			return a.datasets.Delete(ctx, name)
		})
		if err != nil {
			a.logger.WarnContext(ctx, "cleanup failed", "dataset", name, "err", err)
			errs = append(errs, err)
		}
	}
	return dropped, errors.Join(errs...)
}

// Inspect returns the workflow graph.
func (a *Assistant) Inspect() []domain.Transition {
	return a.engine.Inspect()
}

// MaxRetries reports the repair budget in effect.
func (a *Assistant) MaxRetries() int {
	return a.engine.MaxRetries()
}

// cachedSchema returns the cached dataset as is. The workflow's CreateDatabase
// step imports the dump, so a cached schema needs no database of its own here.
// Must run under the dataset's lock.
func (a *Assistant) cachedSchema(ctx context.Context, name string) (domain.Dataset, error) {
	cached, err := a.datasets.Load(ctx, name)
	if err == nil && len(cached.Tables) > 0 {
		return cached, nil
	}
	if err != nil && !errors.Is(err, domain.ErrDatasetNotFound) {
		return domain.Dataset{}, err
	}
	return a.loadLocked(ctx, name)
}

// checkConflict rejects name when another uploaded dump maps to the same database.
func (a *Assistant) checkConflict(ctx context.Context, name string) error {
	existing, err := a.uploads.List(ctx)
	if err != nil {
		return err
	}
	database := dump.Identifier(name)
	for _, other := range existing {
		if other != name && dump.Identifier(other) == database {
			return fmt.Errorf("%w: %s and %s both use database %q", domain.ErrDatasetConflict, name, other, database)
		}
	}
	return nil
}

// loadLocked must run under the dataset's lock.
func (a *Assistant) loadLocked(ctx context.Context, name string) (domain.Dataset, error) {
	cached, err := a.datasets.Load(ctx, name)
	switch {
	case err == nil:
		tables, ierr := a.introspector.Introspect(ctx, cached.DBConfig)
		if ierr == nil && len(tables) > 0 {
			cached.Tables = tables
			return cached, nil
		}
		a.logger.DebugContext(ctx, "cached database unusable, provisioning again", "dataset", name, "err", ierr)
	case !errors.Is(err, domain.ErrDatasetNotFound):
		return domain.Dataset{}, err
	}
	return a.provisionAndCache(ctx, name)
}

func (a *Assistant) provisionAndCache(ctx context.Context, name string) (domain.Dataset, error) {
	path, err := a.uploads.Resolve(ctx, name)
	if err != nil {
		return domain.Dataset{}, err
	}
	cfg, err := a.provisioner.Provision(ctx, path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("provision: %w", err)
	}
	tables, err := a.introspector.Introspect(ctx, cfg)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("introspect: %w", err)
	}

	dataset := domain.Dataset{
		Schema:   domain.Schema{Filename: name, Tables: tables, DBConfig: cfg},
		LoadedAt: time.Now().UTC(),
	}
	if err := a.datasets.Save(ctx, dataset); err != nil {
		return domain.Dataset{}, fmt.Errorf("cache schema: %w", err)
	}
	return dataset, nil
}

func key(filename string) string {
	return uploads.SecureFilename(filename)
}

// lockKey serializes work on one scratch database. Dumps are locked by the
// database they import into, not by filename.
func lockKey(name string) string {
	return "db:" + dump.Identifier(name)
}
