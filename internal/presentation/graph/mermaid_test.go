package graph_test

import (
	"strings"
	"testing"

	"github.com/wyrdbound/grimoire/internal/presentation/graph"
	"github.com/wyrdbound/grimoire/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		flow     *domain.FlowDefinition
		contains []string
	}{
		{
			name: "Step Shapes",
			flow: &domain.FlowDefinition{
				Steps: []domain.FlowStep{
					{ID: "ask", Type: domain.StepPlayerInput},
					{ID: "roll", Type: domain.StepDiceRoll},
					{ID: "branch", Type: domain.StepConditional},
					{ID: "done", Type: domain.StepCompletion},
				},
			},
			contains: []string{
				`ask[/"ask"/]`,
				`roll[["roll"]]`,
				`branch{"branch"}`,
				`done(("done"))`,
			},
		},
		{
			name: "Sequence And Explicit Next Step",
			flow: &domain.FlowDefinition{
				Steps: []domain.FlowStep{
					{ID: "first", Type: domain.StepCompletion, NextStep: "last"},
					{ID: "skipped", Type: domain.StepCompletion},
					{ID: "last", Type: domain.StepCompletion},
				},
			},
			contains: []string{
				"first --> last",
				"skipped --> last",
			},
		},
		{
			name: "ID Sanitization",
			flow: &domain.FlowDefinition{
				Steps: []domain.FlowStep{
					{ID: "roll-hp", Type: domain.StepDiceRoll},
					{ID: "pick.trait", Type: domain.StepTableRoll},
				},
			},
			contains: []string{
				`roll_hp[["roll-hp"]]`,
				`pick_trait[["pick.trait"]]`,
			},
		},
		{
			name: "Conditional Redirects",
			flow: &domain.FlowDefinition{
				Steps: []domain.FlowStep{
					{
						ID:   "check",
						Type: domain.StepConditional,
						Config: map[string]any{
							"if":   "outputs.hp > 3",
							"then": map[string]any{"next_step": "sturdy"},
							"else": map[string]any{"next_step": "frail"},
						},
					},
					{ID: "sturdy", Type: domain.StepCompletion},
					{ID: "frail", Type: domain.StepCompletion},
				},
			},
			contains: []string{
				`check -. "then" .-> sturdy`,
				`check -. "else" .-> frail`,
			},
		},
		{
			name: "Choice Redirects Use Labels",
			flow: &domain.FlowDefinition{
				Steps: []domain.FlowStep{
					{
						ID:   "pick",
						Type: domain.StepPlayerChoice,
						Config: map[string]any{
							"choices": []any{
								map[string]any{"id": "fight", "label": "Stand and fight", "next_step": "battle"},
								map[string]any{"id": "flee", "next_step": "escape"},
							},
						},
					},
					{ID: "battle", Type: domain.StepCompletion},
					{ID: "escape", Type: domain.StepCompletion},
				},
			},
			contains: []string{
				`pick -. "Stand and fight" .-> battle`,
				`pick -. "flee" .-> escape`,
			},
		},
		{
			name: "Resume Points Are Styled",
			flow: &domain.FlowDefinition{
				ResumePoints: []string{"roll-hp"},
				Steps: []domain.FlowStep{
					{ID: "roll-hp", Type: domain.StepDiceRoll},
				},
			},
			contains: []string{
				"classDef resume",
				"class roll_hp resume;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.flow)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}
}
