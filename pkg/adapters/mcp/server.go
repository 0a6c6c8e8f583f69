// Package mcp exposes the assistant as Model Context Protocol tools, so agents
// can list datasets, inspect their schemas and ask questions.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/ashwinibhardwaj/sqlassist"
	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/internal/presentation/graph"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

const graphURI = "sqlassist://graph"

// Assistant is the subset of the assistant the MCP tools call.
type Assistant interface {
	LoadSchema(ctx context.Context, filename string) (domain.Dataset, error)
	Ask(ctx context.Context, filename, question string) (domain.WorkflowState, error)
	Datasets(ctx context.Context) ([]string, error)
	DeleteDataset(ctx context.Context, filename string) error
	Inspect() []domain.Transition
}

// AskResponse is the structured result of the ask tool.
type AskResponse struct {
	Dataset    string       `json:"dataset" jsonschema_description:"The dataset the question was asked against"`
	SQL        string       `json:"sql" jsonschema_description:"The last SQL query that was executed"`
	Result     []domain.Row `json:"result" jsonschema_description:"Rows returned by the query"`
	Answer     string       `json:"answer" jsonschema_description:"Natural-language answer"`
	RetryCount int          `json:"retry_count" jsonschema_description:"Number of repair attempts"`
	Status     string       `json:"status" jsonschema_description:"done or failed"`
	Error      string       `json:"error,omitempty" jsonschema_description:"Last database error when the repair budget ran out"`
	RunID      string       `json:"run_id"`
}

// SchemaResponse is the structured result of the load_schema tool.
type SchemaResponse struct {
	Filename string              `json:"filename"`
	Tables   map[string][]string `json:"tables" jsonschema_description:"Table name to ordered column descriptors"`
}

type filenameArgs struct {
	Filename string `mapstructure:"filename"`
}

type askArgs struct {
	Filename string `mapstructure:"filename"`
	Question string `mapstructure:"question"`
}

// Server wraps an Assistant and exposes it as an MCP server.
type Server struct {
	assistant Assistant
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger. It must not write to stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(assistant Assistant, opts ...Option) *Server {
	s := &Server{
		assistant: assistant,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("sqlassist-mcp", strings.TrimSpace(sqlassist.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_datasets",
		mcp.WithDescription("List the uploaded SQL dumps that can be queried."),
	), s.handleListDatasets)

	s.mcpServer.AddTool(mcp.NewTool("load_schema",
		mcp.WithDescription("Load a dataset into a scratch database and return its tables and columns."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Dump filename, e.g. sales.sql")),
		mcp.WithOutputSchema[SchemaResponse](),
	), mcp.NewStructuredToolHandler(s.handleLoadSchema))

	s.mcpServer.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a natural-language question about a dataset. Failed queries are repaired automatically."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Dump filename")),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
		mcp.WithOutputSchema[AskResponse](),
	), mcp.NewStructuredToolHandler(s.handleAsk))

	s.mcpServer.AddTool(mcp.NewTool("delete_dataset",
		mcp.WithDescription("Delete an uploaded dump and drop its scratch database."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Dump filename")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.handleDelete)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the query-repair workflow as a Mermaid flowchart."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(graph.GenerateMermaid(s.assistant.Inspect(), nil)), nil
	})
}

func (s *Server) handleListDatasets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.assistant.Datasets(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list datasets: %v", err)), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("No datasets uploaded."), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) handleLoadSchema(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SchemaResponse, error) {
	var in filenameArgs
	if err := decodeArgs(args, &in); err != nil {
		return SchemaResponse{}, err
	}
	if in.Filename == "" {
		return SchemaResponse{}, errors.New("filename is required")
	}

	dataset, err := s.assistant.LoadSchema(ctx, in.Filename)
	if err != nil {
		return SchemaResponse{}, fmt.Errorf("load schema: %w", err)
	}
	return SchemaResponse{Filename: dataset.Filename, Tables: dataset.Tables}, nil
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (AskResponse, error) {
	var in askArgs
	if err := decodeArgs(args, &in); err != nil {
		return AskResponse{}, err
	}
	if in.Filename == "" {
		return AskResponse{}, errors.New("filename is required")
	}

	state, err := s.assistant.Ask(ctx, in.Filename, in.Question)
	resp := AskResponse{
		Dataset:    in.Filename,
		SQL:        state.GeneratedSQL,
		Result:     state.Result,
		Answer:     state.Answer,
		RetryCount: state.RetryCount,
		Status:     string(state.Status),
		RunID:      state.RunID,
	}
	if err != nil {
		// An exhausted repair budget is a normal outcome for the agent, not a tool failure.
		if errors.Is(err, domain.ErrRetryBudgetExhausted) {
			s.logger.WarnContext(ctx, "ask gave up", "dataset", in.Filename, "retry_count", state.RetryCount)
			resp.Error = state.Error
			return resp, nil
		}
		s.logger.ErrorContext(ctx, "ask failed", "dataset", in.Filename, "err", err)
		return AskResponse{}, fmt.Errorf("ask: %w", err)
	}
	if resp.Result == nil {
		resp.Result = []domain.Row{}
	}
	return resp, nil
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in filenameArgs
	if err := decodeArgs(request.GetArguments(), &in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Filename == "" {
		return mcp.NewToolResultError("filename is required"), nil
	}
	if err := s.assistant.DeleteDataset(ctx, in.Filename); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete %s: %v", in.Filename, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %s.", in.Filename)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Query-repair workflow",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.assistant.Inspect())
		if err != nil {
			return nil, fmt.Errorf("encode workflow: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func decodeArgs(args map[string]interface{}, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

