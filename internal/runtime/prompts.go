package runtime

import (
	"fmt"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// repairPrompt embeds the failure, the failing query, the schema and the original
// question into the text handed to the SQL synthesizer as its question.
func repairPrompt(state domain.WorkflowState) string {
	var b strings.Builder
	b.WriteString("The previous SQL query failed.\n\n")
	fmt.Fprintf(&b, "Error:\n%s\n\n", state.Error)
	fmt.Fprintf(&b, "Previous query:\n%s\n\n", state.GeneratedSQL)
	b.WriteString("Schema:\n")
	b.WriteString(RenderSchema(state.Schema.Tables))
	fmt.Fprintf(&b, "\nOriginal question:\n%s\n\n", state.UserQuery)
	b.WriteString("Return only a corrected SQL query that answers the original question.")
	return b.String()
}

// RenderSchema formats tables as one "table: col (type), ..." line each, sorted by table name.
func RenderSchema(tables map[string][]string) string {
	names := domain.Schema{Tables: tables}.TableNames()
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, strings.Join(tables[name], ", "))
	}
	return b.String()
}
