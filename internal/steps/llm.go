package steps

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
)

// execLLMGeneration formats a named prompt template with resolved variables
// and hands it to the prompt executor port.
func execLLMGeneration(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	promptID, _ := step.Config["prompt_id"].(string)
	if promptID == "" {
		return fc, fmt.Errorf("llm_generation step '%s' missing 'prompt_id' field", step.ID)
	}
	def, err := env.System.Prompt(promptID)
	if err != nil {
		return fc, err
	}
	if env.Prompts == nil {
		return fc, fmt.Errorf("llm_generation step '%s' requires a prompt executor", step.ID)
	}

	vars := map[string]any{}
	for k, v := range def.Variables {
		vars[k] = v
	}
	if data, ok := step.Config["prompt_data"].(map[string]any); ok {
		resolved, err := fc.ResolveMap(data)
		if err != nil {
			return fc, err
		}
		for k, v := range resolved {
			vars[k] = v
		}
	}

	prompt, err := formatPrompt(def.Template, vars)
	if err != nil {
		return fc, err
	}

	settings := map[string]any{}
	for k, v := range def.LLMSettings {
		settings[k] = v
	}
	if overrides, ok := step.Config["llm_settings"].(map[string]any); ok {
		for k, v := range overrides {
			settings[k] = v
		}
	}

	env.logger().Info("executing prompt", "step", step.ID, "prompt", promptID)

	res, err := env.Prompts.Execute(ctx, domain.PromptRequest{
		Prompt:    prompt,
		Variables: vars,
		Settings:  settings,
	})
	if err != nil {
		return fc, err
	}
	return fc.Set(ns+".result", res.Map()), nil
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// formatPrompt substitutes {name} slots in a prompt template. Every slot
// must be covered by the supplied variables.
func formatPrompt(template string, vars map[string]any) (string, error) {
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if _, ok := vars[match[1]]; !ok {
			return "", fmt.Errorf("Missing prompt variable: %s", match[1])
		}
	}
	out := placeholderPattern.ReplaceAllStringFunc(template, func(slot string) string {
		return fmt.Sprint(vars[slot[1:len(slot)-1]])
	})
	return out, nil
}
