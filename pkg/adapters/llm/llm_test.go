package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

type recordingCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (r *recordingCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	r.system, r.user = systemPrompt, userPrompt
	return r.reply, r.err
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{name: "raw", response: "SELECT SUM(amount) FROM orders;", want: "SELECT SUM(amount) FROM orders"},
		{name: "sql fence", response: "Here you go:\n```sql\nSELECT 1;\n```\nDone.", want: "SELECT 1"},
		{name: "plain fence", response: "```\nSELECT 2\n```", want: "SELECT 2"},
		{name: "postgres tagged fence", response: "```postgresql\nSELECT 3\n```", want: "SELECT 3"},
		{name: "json", response: `{"sql": "SELECT 4;", "explanation": "x"}`, want: "SELECT 4"},
		{name: "label", response: "SQL: WITH x AS (SELECT 1) SELECT * FROM x", want: "WITH x AS (SELECT 1) SELECT * FROM x"},
		{name: "prose", response: "I cannot answer that.", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSQL(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLGenerator(t *testing.T) {
	llm := &recordingCompleter{reply: "```sql\nSELECT SUM(amount) FROM orders\n```"}
	gen := NewSQLGenerator(llm, "DuckDB")

	sql, err := gen.GenerateSQL(context.Background(), map[string][]string{
		"users":  {"id (integer)"},
		"orders": {"id (integer)", "amount (integer)"},
	}, "total amount")
	require.NoError(t, err)
	assert.Equal(t, "SELECT SUM(amount) FROM orders", sql)

	assert.Contains(t, llm.system, "DuckDB")
	assert.Contains(t, llm.user, "orders(id (integer), amount (integer))\nusers(id (integer))")
	assert.Contains(t, llm.user, "Question:\ntotal amount")
}

func TestSQLGenerator_Error(t *testing.T) {
	boom := errors.New("overloaded")
	gen := NewSQLGenerator(&recordingCompleter{err: boom}, "")

	_, err := gen.GenerateSQL(context.Background(), nil, "q")
	assert.ErrorIs(t, err, boom)
}

func TestReasoner(t *testing.T) {
	llm := &recordingCompleter{reply: "  The total amount is 42.\n"}
	r := NewReasoner(llm)

	answer, err := r.Answer(context.Background(), "total amount", []domain.Row{{"sum": 42}})
	require.NoError(t, err)
	assert.Equal(t, "The total amount is 42.", answer)
	assert.Contains(t, llm.user, "The user asked: total amount")
	assert.Contains(t, llm.user, "Columns: sum")
	assert.Contains(t, llm.user, "42")
}

func TestFormatRows(t *testing.T) {
	assert.Equal(t, "Query returned no results.", FormatRows(nil))

	out := FormatRows([]domain.Row{{"b": 1.5, "a": nil}, {"b": 2.0, "a": "x"}})
	assert.Equal(t, "Columns: a, b\nRows (2 total):\nNULL | 1.50\nx | 2\n", out)

	many := make([]domain.Row, 60)
	for i := range many {
		many[i] = domain.Row{"n": i}
	}
	out = FormatRows(many)
	assert.Contains(t, out, "... and 10 more rows")
	assert.Equal(t, 50+3, strings.Count(out, "\n"))
}

func TestAnthropic_Complete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "SELECT 1"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`))
	}))
	defer srv.Close()

	client := NewAnthropic(Config{APIKey: "test", BaseURL: srv.URL, Model: "claude-test", MaxTokens: 64}, option.WithMaxRetries(0))
	text, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)

	assert.Equal(t, "claude-test", gotBody["model"])
	assert.EqualValues(t, 64, gotBody["max_tokens"])
}

func TestAnthropic_CompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`))
	}))
	defer srv.Close()

	client := NewAnthropic(Config{APIKey: "test", BaseURL: srv.URL, MaxTokens: 64}, option.WithMaxRetries(0))
	_, err := client.Complete(context.Background(), "system", "user")
	assert.ErrorContains(t, err, "anthropic API error")
}

func TestGemini_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "The total amount is 42."}]}}]
		}`))
	}))
	defer srv.Close()

	client, err := NewGemini(context.Background(), Config{APIKey: "test", BaseURL: srv.URL, Model: "gemini-test", MaxTokens: 64})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "The total amount is 42.", text)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "hal9000"})
	assert.Error(t, err)
}
