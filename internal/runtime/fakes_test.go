package runtime_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/ashwinibhardwaj/sqlassist/internal/runtime"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

type fakeUploads struct {
	files map[string]string
}

func (f *fakeUploads) Save(_ context.Context, filename string, _ io.Reader) (string, error) {
	f.files[filename] = "/uploads/" + filename
	return filename, nil
}

func (f *fakeUploads) Resolve(_ context.Context, filename string) (string, error) {
	path, ok := f.files[filename]
	if !ok {
		return "", domain.ErrSourceMissing
	}
	return path, nil
}

func (f *fakeUploads) List(context.Context) ([]string, error) { return nil, nil }

func (f *fakeUploads) Delete(_ context.Context, filename string) error {
	delete(f.files, filename)
	return nil
}

type fakeProvisioner struct {
	mu         sync.Mutex
	provisions []string
	releases   []string
	releaseErr error
}

func (f *fakeProvisioner) Provision(_ context.Context, dumpPath string) (domain.DBConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisions = append(f.provisions, dumpPath)
	return domain.DBConfig{Driver: domain.DriverPostgres, Host: "localhost", Port: 5432, User: "test", Database: "orders"}, nil
}

func (f *fakeProvisioner) Release(_ context.Context, database string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, database)
	return f.releaseErr
}

// scriptedSQL returns its replies in order and records every question it saw.
type scriptedSQL struct {
	replies   []reply
	questions []string
}

type reply struct {
	text string
	err  error
}

func (s *scriptedSQL) GenerateSQL(_ context.Context, _ map[string][]string, question string) (string, error) {
	s.questions = append(s.questions, question)
	if len(s.questions) > len(s.replies) {
		return "SELECT 1", nil
	}
	r := s.replies[len(s.questions)-1]
	return r.text, r.err
}

type execReply struct {
	rows []domain.Row
	err  error
}

// scriptedExecutor returns its replies in order, then repeats the last one.
type scriptedExecutor struct {
	replies []execReply
	queries []string
}

func (s *scriptedExecutor) Execute(_ context.Context, _ domain.DBConfig, sql string) ([]domain.Row, error) {
	s.queries = append(s.queries, sql)
	idx := min(len(s.queries), len(s.replies)) - 1
	r := s.replies[idx]
	return r.rows, r.err
}

type fakeAnswers struct {
	answer   string
	err      error
	question string
	rows     []domain.Row
	calls    int
}

func (f *fakeAnswers) Answer(_ context.Context, question string, rows []domain.Row) (string, error) {
	f.calls++
	f.question = question
	f.rows = rows
	return f.answer, f.err
}

type harness struct {
	uploads     *fakeUploads
	provisioner *fakeProvisioner
	sql         *scriptedSQL
	executor    *scriptedExecutor
	answers     *fakeAnswers
}

func newHarness() *harness {
	return &harness{
		uploads:     &fakeUploads{files: map[string]string{"orders.sql": "/uploads/orders.sql"}},
		provisioner: &fakeProvisioner{},
		sql:         &scriptedSQL{},
		executor:    &scriptedExecutor{replies: []execReply{{rows: []domain.Row{{"ok": 1}}}}},
		answers:     &fakeAnswers{answer: "done"},
	}
}

func (h *harness) engine(opts ...runtime.EngineOption) *runtime.Engine {
	e, err := runtime.NewEngine(runtime.Deps{
		Uploads:     h.uploads,
		Provisioner: h.provisioner,
		SQL:         h.sql,
		Executor:    h.executor,
		Answers:     h.answers,
	}, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func ordersSchema() domain.Schema {
	return domain.Schema{
		Filename: "orders.sql",
		Tables: map[string][]string{
			"orders": {"id (int)", "amount (int)"},
		},
	}
}

var errUnknownColumn = errors.New("Unknown column 'total' in 'field list'")
