package sqldb

import (
	"context"
	"fmt"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

const columnsQuery = `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`

// Introspect lists every table with its columns rendered as "column (type)", in ordinal order.
func (c *Client) Introspect(ctx context.Context, cfg domain.DBConfig) (map[string][]string, error) {
	db, err := c.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, columnsQuery, schemaFor(cfg.Driver))
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make(map[string][]string)
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		tables[table] = append(tables[table], fmt.Sprintf("%s (%s)", column, dataType))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	c.logger.DebugContext(ctx, "schema introspected", "database", cfg.Database, "tables", len(tables))
	return tables, nil
}
