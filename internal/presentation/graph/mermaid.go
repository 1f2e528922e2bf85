package graph

import (
	"fmt"
	"strings"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// GenerateMermaid renders a flow's step graph as a Mermaid flowchart.
// Shapes follow step semantics:
//   - player_input / player_choice: [/Parallelogram/]
//   - dice and table rolls: [[Subroutine]]
//   - conditional: {Diamond}
//   - completion: ((Circle))
//   - everything else: [Rectangle]
//
// Solid arrows follow sequence order or next_step; dotted arrows are
// conditional and choice redirects. Resume points are drawn dashed.
func GenerateMermaid(flow *domain.FlowDefinition) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i := range flow.Steps {
		step := &flow.Steps[i]
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch step.Type {
		case domain.StepPlayerInput, domain.StepPlayerChoice:
			opener, closer = "[/", "/]"
		case domain.StepDiceRoll, domain.StepDiceSequence, domain.StepTableRoll:
			opener, closer = "[[", "]]"
		case domain.StepConditional:
			opener, closer = "{", "}"
		case domain.StepCompletion:
			opener, closer = "((", "))"
		}

		label := step.Name
		if label == "" {
			label = step.ID
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(label), closer))

		if step.NextStep != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(step.NextStep)))
		} else if i+1 < len(flow.Steps) {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(flow.Steps[i+1].ID)))
		}

		for _, e := range redirectEdges(step) {
			sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", safeID, escapeLabel(e.label), sanitizeMermaidID(e.target)))
		}
	}

	if len(flow.ResumePoints) > 0 {
		sb.WriteString("\n    %% Resume Points\n")
		sb.WriteString("    classDef resume stroke-dasharray: 5 5,stroke-width:2px;\n")
		for _, id := range flow.ResumePoints {
			sb.WriteString(fmt.Sprintf("    class %s resume;\n", sanitizeMermaidID(id)))
		}
	}

	return sb.String()
}

type edge struct {
	label  string
	target string
}

// redirectEdges collects the control-flow exits that bypass sequence
// order: conditional then/else redirects and per-choice next_step.
func redirectEdges(step *domain.FlowStep) []edge {
	var edges []edge

	switch step.Type {
	case domain.StepConditional:
		if t := clauseNextStep(step.Config["then"]); t != "" {
			edges = append(edges, edge{label: "then", target: t})
		}
		if t := clauseNextStep(step.Config["else"]); t != "" {
			edges = append(edges, edge{label: "else", target: t})
		}
	case domain.StepPlayerChoice:
		choices, _ := step.Config["choices"].([]any)
		for _, c := range choices {
			m, ok := c.(map[string]any)
			if !ok {
				continue
			}
			target, _ := m["next_step"].(string)
			if target == "" {
				continue
			}
			label, _ := m["label"].(string)
			if label == "" {
				label, _ = m["id"].(string)
			}
			edges = append(edges, edge{label: label, target: target})
		}
	}
	return edges
}

func clauseNextStep(clause any) string {
	m, ok := clause.(map[string]any)
	if !ok {
		return ""
	}
	t, _ := m["next_step"].(string)
	return t
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
