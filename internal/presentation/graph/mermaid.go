package graph

import (
	"fmt"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	Visited []domain.Step
	Current domain.Step
	Failed  bool
}

// OverlayFromState marks the steps a session went through. The last visited
// step is current; a failed session points at the failed sink instead.
func OverlayFromState(state domain.WorkflowState) *GraphOverlay {
	o := &GraphOverlay{Visited: state.History}
	switch state.Status {
	case domain.StatusDone:
		o.Current = domain.StepDone
	case domain.StatusFailed:
		o.Current = domain.StepFailed
		o.Failed = true
	default:
		if n := len(state.History); n > 0 {
			o.Current = state.History[n-1]
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart from the workflow's transition table.
// Shapes:
// - Entry step: ((Circle))
// - Repair step: [[Subroutine]]
// - Sinks: ([Stadium])
// - Default: [Rectangle]
// Proceed edges are solid; retry and fail edges are dotted and labelled.
func GenerateMermaid(transitions []domain.Transition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := make(map[domain.Step]bool)
	declare := func(step domain.Step) {
		if seen[step] {
			return
		}
		seen[step] = true
		opener, closer := shape(step)
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", step, opener, step, closer))
	}

	for _, t := range transitions {
		declare(t.From)
		declare(t.To)
	}
	for _, t := range transitions {
		arrow := "-->"
		if t.On != domain.OutcomeProceed {
			arrow = fmt.Sprintf("-. %s .->", t.On)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", t.From, arrow, t.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps labels readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		styled := make(map[domain.Step]bool)
		for _, step := range overlay.Visited {
			if seen[step] && !styled[step] {
				styled[step] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", step))
			}
		}
		if overlay.Current != "" {
			class := "current"
			if overlay.Failed {
				class = "failed"
			}
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", overlay.Current, class))
		}
	}

	return sb.String()
}

func shape(step domain.Step) (string, string) {
	switch {
	case step == domain.StepCreateDatabase:
		return "((", "))"
	case step == domain.StepFixSQL:
		return "[[", "]]"
	case step.IsSink():
		return "([", "])"
	default:
		return "[", "]"
	}
}
