package sqldb

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// rowKeywords lead statements that produce a row set.
var rowKeywords = map[string]bool{
	"SELECT":    true,
	"WITH":      true,
	"SHOW":      true,
	"EXPLAIN":   true,
	"VALUES":    true,
	"TABLE":     true,
	"DESCRIBE":  true,
	"PRAGMA":    true,
	"SUMMARIZE": true,
}

// Execute runs one statement. Statements without a row set yield a single row
// reporting how many rows they affected.
func (c *Client) Execute(ctx context.Context, cfg domain.DBConfig, query string) ([]domain.Row, error) {
	query = stripTrailingSemicolons(query)
	if query == "" {
		return nil, errors.New("sql is required")
	}

	db, err := c.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	if !returnsRows(query) {
		res, err := db.ExecContext(ctx, query)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		return []domain.Row{{
			"message":       fmt.Sprintf("%d rows affected.", n),
			"rows_affected": n,
		}}, nil
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	result := make([]domain.Row, 0)
	for rows.Next() {
		if c.maxRows > 0 && len(result) >= c.maxRows {
			c.logger.DebugContext(ctx, "result truncated", "max_rows", c.maxRows)
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case *big.Int:
		// DuckDB HUGEINT aggregates.
		if typed.IsInt64() {
			return typed.Int64()
		}
		return typed.String()
	default:
		return typed
	}
}

// returnsRows classifies a statement by its leading keyword.
// DML with a RETURNING clause also produces rows.
func returnsRows(query string) bool {
	text := stripLeadingComments(query)
	text = strings.TrimLeft(text, "( \t\r\n")
	keyword := strings.ToUpper(firstWord(text))
	if rowKeywords[keyword] {
		return true
	}
	return strings.Contains(strings.ToUpper(text), " RETURNING ")
}

func stripLeadingComments(query string) string {
	text := strings.TrimSpace(query)
	for {
		switch {
		case strings.HasPrefix(text, "--"):
			idx := strings.IndexByte(text, '\n')
			if idx < 0 {
				return ""
			}
			text = strings.TrimSpace(text[idx+1:])
		case strings.HasPrefix(text, "/*"):
			idx := strings.Index(text, "*/")
			if idx < 0 {
				return ""
			}
			text = strings.TrimSpace(text[idx+2:])
		default:
			return text
		}
	}
}

func firstWord(text string) string {
	end := strings.IndexFunc(text, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		return text
	}
	return text[:end]
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
