package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// JSONHandler implements IOHandler over JSON Lines.
//
// Each input line is either a JSON object {"question": "..."}, a JSON string,
// or raw text. Each reply is one Reply object per line.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// Reply is the JSON shape of one answered (or failed) question.
type Reply struct {
	RunID      string       `json:"run_id,omitempty"`
	SQL        string       `json:"sql,omitempty"`
	Result     []domain.Row `json:"result,omitempty"`
	Answer     string       `json:"answer,omitempty"`
	RetryCount int          `json:"retry_count"`
	Status     string       `json:"status,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// NewReply builds a Reply from a final workflow state and session error.
func NewReply(state domain.WorkflowState, err error) Reply {
	reply := Reply{
		RunID:      state.RunID,
		SQL:        state.GeneratedSQL,
		Result:     state.Result,
		Answer:     state.Answer,
		RetryCount: state.RetryCount,
		Status:     string(state.Status),
	}
	if err != nil {
		reply.Error = err.Error()
	}
	return reply
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.Reader.ReadString('\n')
	text = strings.TrimSpace(text)
	if text == "" {
		if err != nil {
			return "", err
		}
		return "", nil
	}

	var req struct {
		Question string `json:"question"`
	}
	if json.Unmarshal([]byte(text), &req) == nil && req.Question != "" {
		return req.Question, nil
	}
	var val string
	if json.Unmarshal([]byte(text), &val) == nil {
		return val, nil
	}
	return text, nil
}

func (h *JSONHandler) Output(ctx context.Context, state domain.WorkflowState, err error) error {
	return h.Encoder.Encode(NewReply(state, err))
}
