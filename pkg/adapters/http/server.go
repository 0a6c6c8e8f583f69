package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/internal/presentation/graph"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/ashwinibhardwaj/sqlassist/pkg/runner"
)

// DefaultMaxUploadSize caps multipart dump uploads at 64MB.
const DefaultMaxUploadSize = 64 << 20

// Assistant is the application surface the HTTP API exposes.
type Assistant interface {
	Upload(ctx context.Context, filename string, content io.Reader) (domain.Dataset, error)
	LoadSchema(ctx context.Context, filename string) (domain.Dataset, error)
	Ask(ctx context.Context, filename, question string) (domain.WorkflowState, error)
	Datasets(ctx context.Context) ([]string, error)
	DeleteDataset(ctx context.Context, filename string) error
	Cleanup(ctx context.Context) (int, error)
	Inspect() []domain.Transition
}

// Server serves the JSON API.
type Server struct {
	Assistant Assistant

	logger        *slog.Logger
	maxUploadSize int64
	origins       []string
	metrics       http.Handler
	middlewares   []func(http.Handler) http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxUploadSize bounds the multipart body of POST /upload.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMiddleware adds router middleware, e.g. request metrics.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, mw...)
	}
}

// NewHandler creates the HTTP handler for the assistant.
func NewHandler(assistant Assistant, opts ...Option) http.Handler {
	s := &Server{
		Assistant:     assistant,
		logger:        logging.NewNop(),
		maxUploadSize: DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.middlewares...)
	if len(s.origins) > 0 {
		r.Use(s.enableCORS)
	}

	r.Get("/health", s.Health)
	r.Get("/datasets", s.ListDatasets)
	r.Post("/upload", s.Upload)
	r.Post("/load_schema", s.LoadSchema)
	r.Post("/chat", s.Chat)
	r.Post("/cleanup_db", s.CleanupDB)
	r.Post("/delete_dataset", s.DeleteDataset)
	r.Get("/graph", s.Graph)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

type filenameRequest struct {
	Filename string `json:"filename"`
}

type chatRequest struct {
	Query    string `json:"query"`
	Filename string `json:"filename"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Dataset    string       `json:"dataset"`
	SQL        string       `json:"sql"`
	Result     []domain.Row `json:"result"`
	Answer     string       `json:"answer"`
	RetryCount int          `json:"retry_count"`
	RunID      string       `json:"run_id"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	Dataset    string `json:"dataset,omitempty"`
	SQL        string `json:"sql,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	RetryCount int    `json:"retry_count,omitempty"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListDatasets handles GET /datasets.
func (s *Server) ListDatasets(w http.ResponseWriter, r *http.Request) {
	names, err := s.Assistant.Datasets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"datasets": names})
}

// Upload handles POST /upload with a multipart "file" field.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File too large."})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No file uploaded."})
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No file selected."})
		return
	}

	dataset, err := s.Assistant.Upload(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFilename) {
			s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid file type. Only .sql allowed."})
			return
		}
		s.writeError(w, r, fmt.Errorf("process upload: %w", err))
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message":  fmt.Sprintf("File '%s' uploaded and schema loaded successfully.", dataset.Filename),
		"filename": dataset.Filename,
		"schema":   dataset.Tables,
	})
}

// LoadSchema handles POST /load_schema.
func (s *Server) LoadSchema(w http.ResponseWriter, r *http.Request) {
	var body filenameRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Filename == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No filename provided"})
		return
	}

	dataset, err := s.Assistant.LoadSchema(r.Context(), body.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Loaded schema for %s", dataset.Filename),
		"schema":  dataset.Tables,
	})
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing query"})
		return
	}
	if body.Filename == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing filename"})
		return
	}

	state, err := s.Assistant.Ask(r.Context(), body.Filename, body.Query)
	if err != nil {
		if errors.Is(err, domain.ErrRetryBudgetExhausted) {
			s.writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:      err.Error(),
				Dataset:    body.Filename,
				SQL:        state.GeneratedSQL,
				LastError:  state.Error,
				RetryCount: state.RetryCount,
			})
			return
		}
		s.writeError(w, r, err)
		return
	}

	result := state.Result
	if result == nil {
		result = []domain.Row{}
	}
	s.writeJSON(w, http.StatusOK, ChatResponse{
		Dataset:    state.Schema.Filename,
		SQL:        state.GeneratedSQL,
		Result:     result,
		Answer:     state.Answer,
		RetryCount: state.RetryCount,
		RunID:      state.RunID,
	})
}

// CleanupDB handles POST /cleanup_db. Failures to drop individual databases
// are reported alongside the count, not as a request failure.
func (s *Server) CleanupDB(w http.ResponseWriter, r *http.Request) {
	dropped, err := s.Assistant.Cleanup(r.Context())
	resp := map[string]any{
		"message": "All temporary databases dropped.",
		"dropped": dropped,
	}
	if err != nil {
		s.logger.WarnContext(r.Context(), "cleanup incomplete", "err", err)
		resp["errors"] = strings.Split(err.Error(), "\n")
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// DeleteDataset handles POST /delete_dataset.
func (s *Server) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	var body filenameRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Filename == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No filename provided"})
		return
	}
	if err := s.Assistant.DeleteDataset(r.Context(), body.Filename); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s and its temporary database deleted successfully.", body.Filename),
	})
}

// Graph handles GET /graph, returning the workflow as a Mermaid flowchart.
func (s *Server) Graph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(s.Assistant.Inspect(), nil))
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range s.origins {
			if allowed == "*" || allowed == origin {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
				break
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.WarnContext(r.Context(), "invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSourceMissing), errors.Is(err, domain.ErrDatasetNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDatasetConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRetryBudgetExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidFilename),
		errors.Is(err, domain.ErrEmptyQuestion),
		errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
