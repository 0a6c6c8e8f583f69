package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const sqlSystemPrompt = `You are an expert SQL assistant.
Given a database schema and a user question, write one valid %s query that answers it.
Reply with the SQL only, without commentary.`

const sqlUserPrompt = `Schema:
%s
Question:
%s
SQL:`

// SQLGenerator implements ports.SQLSynthesizer.
type SQLGenerator struct {
	llm     Completer
	dialect string
}

// NewSQLGenerator creates a generator writing queries in the given SQL dialect.
func NewSQLGenerator(llm Completer, dialect string) *SQLGenerator {
	if dialect == "" {
		dialect = "PostgreSQL"
	}
	return &SQLGenerator{llm: llm, dialect: dialect}
}

// GenerateSQL asks the model for a query and extracts it from the reply.
func (g *SQLGenerator) GenerateSQL(ctx context.Context, tables map[string][]string, question string) (string, error) {
	reply, err := g.llm.Complete(ctx,
		fmt.Sprintf(sqlSystemPrompt, g.dialect),
		fmt.Sprintf(sqlUserPrompt, FormatSchema(tables), question))
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	return ExtractSQL(reply)
}

// FormatSchema renders tables one per line as "table(col (type), ...)", sorted by name.
func FormatSchema(tables map[string][]string) string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name + "(" + strings.Join(tables[name], ", ") + ")\n")
	}
	return sb.String()
}

type sqlReply struct {
	SQL string `json:"sql"`
}

// ExtractSQL pulls a query out of a model reply: a JSON {"sql": ...} object,
// a fenced code block, or the raw text when it looks like SQL.
func ExtractSQL(response string) (string, error) {
	response = strings.TrimSpace(response)

	if jsonStr := extractJSON(response); jsonStr != "" {
		var parsed sqlReply
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err == nil && parsed.SQL != "" {
			return cleanSQL(parsed.SQL), nil
		}
	}

	if sql := extractSQLFromCodeBlocks(response); sql != "" {
		return sql, nil
	}

	// Some models prefix the query with a label.
	for _, prefix := range []string{"SQL:", "sql:", "Query:"} {
		response = strings.TrimSpace(strings.TrimPrefix(response, prefix))
	}
	if looksLikeSQL(response) {
		return cleanSQL(response), nil
	}

	return "", fmt.Errorf("could not extract SQL from response")
}

func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return ""
	}
	return response[start : end+1]
}

func extractSQLFromCodeBlocks(response string) string {
	if start := strings.Index(response, "```sql"); start != -1 {
		start += len("```sql")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return cleanSQL(response[start : start+end])
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			block := response[start : start+end]
			// Drop a language tag on the opening fence line.
			if nl := strings.IndexByte(block, '\n'); nl != -1 && !looksLikeSQL(block[:nl]) {
				block = block[nl+1:]
			}
			if looksLikeSQL(block) {
				return cleanSQL(block)
			}
		}
	}
	return ""
}

func looksLikeSQL(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	sqlKeywords := []string{"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "CREATE", "ALTER", "DROP", "SHOW", "EXPLAIN"}
	for _, kw := range sqlKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// cleanSQL normalizes SQL by trimming whitespace and removing trailing semicolons.
func cleanSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}
