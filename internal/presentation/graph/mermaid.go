package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/weave/internal/validator"
	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// GraphOverlay contains run state to visualize on the graph.
type GraphOverlay struct {
	VisitedSteps []string
	CurrentStep  string
}

// GenerateMermaid produces a Mermaid flowchart of doc.
// It applies semantic styling:
// - Entry: ((Circle))
// - Provider and sub-workflow steps: [[Subroutine]]
// - Input steps: [/Parallelogram/]
// - Decide: {Rhombus}
// - Default: [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(doc *document.Document, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := doc.EntryStepID()
	usesExit := false

	for _, step := range doc.Steps() {
		id, _ := document.StepID(step)
		typ, _ := document.StepType(step)
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == entry:
			opener, closer = "((", "))"
		case typ == domain.StepDecide:
			opener, closer = "{", "}"
		case typ == domain.StepCIAnalyze, typ == domain.StepCIPresent, typ == domain.StepWorkflowCall:
			opener, closer = "[[", "]]"
		case isInputStep(typ):
			opener, closer = "[/", "/]"
		}

		label := id
		if typ != "" {
			label = fmt.Sprintf("%s <br/> %s", id, typ)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, e := range validator.Edges(doc) {
		if e.To == domain.ExitStepID {
			usesExit = true
		}
		from, to := sanitizeMermaidID(e.From), sanitizeMermaidID(e.To)
		switch {
		case e.Via == "on_error":
			fmt.Fprintf(&sb, "    %s -. \"on_error\" .-> %s\n", from, to)
		case e.Via == document.FieldNextStep:
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
		default:
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, strings.ReplaceAll(e.Via, "\"", "'"), to)
		}
	}
	if usesExit {
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", domain.ExitStepID, domain.ExitStepID)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentStep != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep))
		}
	}

	return sb.String()
}

// OverlayFromCheckpoint marks the checkpoint's previous step as visited and
// its current step as current.
func OverlayFromCheckpoint(cp *domain.Checkpoint) *GraphOverlay {
	o := &GraphOverlay{CurrentStep: cp.CurrentStepID}
	if cp.PreviousStepID != "" {
		o.VisitedSteps = []string{cp.PreviousStepID}
	}
	return o
}

func isInputStep(typ string) bool {
	switch typ {
	case domain.StepUserAsk, domain.StepUserInputAlias, domain.StepUserChoose,
		domain.StepCIAsk, domain.StepCIAskSeries, domain.StepUserCIChat:
		return true
	}
	return false
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
