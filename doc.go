/*
Package sqlassist answers natural-language questions about uploaded SQL dumps.

Each dump is imported into its own scratch database. A question runs through a small
workflow graph: the schema is read, a language model writes SQL, the SQL is executed,
failing queries are sent back to the model together with the database error for repair,
and the final rows are turned into a plain-language answer.

# Workflow

	create_database -> generate_sql -> execute_sql -> reason -> done
	                        |              |   ^
	                        v              v   |
	                        +-----------> fix_sql -> failed (retry budget exhausted)

Repairs are bounded by a retry budget (two by default). When it runs out the session
ends with Status "failed", the last SQL and the last database error are kept in the
returned state, and the error wraps domain.ErrRetryBudgetExhausted.

# Usage

Assemble an Assistant from adapters and ask questions against an uploaded dump:

	package main

	import (
		"context"
		"fmt"
		"log"
		"os"

		"github.com/ashwinibhardwaj/sqlassist"
		"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/duckdb"
		"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/llm"
		"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/sqldb"
		"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/uploads"
	)

	func main() {
		ctx := context.Background()

		dir, _ := uploads.NewDir("uploads")
		prov, _ := duckdb.New("data")
		db := sqldb.New()
		model, err := llm.New(ctx, llm.Config{Provider: llm.ProviderAnthropic, APIKey: os.Getenv("ANTHROPIC_API_KEY")})
		if err != nil {
			log.Fatal(err)
		}

		assistant, err := sqlassist.New(sqlassist.Components{
			Uploads:      dir,
			Provisioner:  prov,
			Introspector: db,
			Executor:     db,
			SQL:          llm.NewSQLGenerator(model, "DuckDB"),
			Answers:      llm.NewReasoner(model),
		})
		if err != nil {
			log.Fatal(err)
		}

		f, _ := os.Open("sales.sql")
		defer f.Close()
		if _, err := assistant.Upload(ctx, "sales.sql", f); err != nil {
			log.Fatal(err)
		}

		state, err := assistant.Ask(ctx, "sales.sql", "What was the total revenue in March?")
		if err != nil {
			log.Fatalf("%v (last SQL: %s)", err, state.GeneratedSQL)
		}
		fmt.Println(state.Answer)
	}

# Adapters

  - pkg/adapters/postgres, pkg/adapters/duckdb: scratch database provisioners.
  - pkg/adapters/sqldb: query executor and schema introspector over database/sql.
  - pkg/adapters/llm: Anthropic and Gemini backed SQL and answer synthesizers.
  - pkg/adapters/uploads: dump storage on local disk, optionally mirrored to S3.
  - pkg/adapters/memory, pkg/adapters/redis: dataset caches; redis also provides a distributed lock.
  - pkg/adapters/http, pkg/adapters/mcp: the JSON API and the MCP tool server.
*/
package sqlassist
