package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

const answerSystemPrompt = `You are a data analysis assistant.
Answer only the question that was asked, without excessive detail.`

const answerUserPrompt = `The user asked: %s
Here is the query result:
%s
Give a concise answer to the user's question.`

const maxPromptRows = 50

// Reasoner implements ports.AnswerSynthesizer.
type Reasoner struct {
	llm Completer
}

// NewReasoner creates an answer synthesizer.
func NewReasoner(llm Completer) *Reasoner {
	return &Reasoner{llm: llm}
}

func (r *Reasoner) Answer(ctx context.Context, question string, rows []domain.Row) (string, error) {
	reply, err := r.llm.Complete(ctx, answerSystemPrompt, fmt.Sprintf(answerUserPrompt, question, FormatRows(rows)))
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// FormatRows renders rows as a pipe-separated table for a prompt, capped at 50 rows.
func FormatRows(rows []domain.Row) string {
	if len(rows) == 0 {
		return "Query returned no results."
	}

	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(columns, ", ")))
	sb.WriteString(fmt.Sprintf("Rows (%d total):\n", len(rows)))

	for i := 0; i < len(rows) && i < maxPromptRows; i++ {
		values := make([]string, len(columns))
		for j, col := range columns {
			values[j] = formatValueForLLM(rows[i][col])
		}
		sb.WriteString(strings.Join(values, " | ") + "\n")
	}

	if len(rows) > maxPromptRows {
		sb.WriteString(fmt.Sprintf("... and %d more rows\n", len(rows)-maxPromptRows))
	}
	return sb.String()
}

func formatValueForLLM(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case float32:
		if val == float32(int32(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case nil:
		return "NULL"
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 100 {
			s = s[:97] + "..."
		}
		return s
	}
}
