package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
)

type choiceSource struct {
	Table           string `mapstructure:"table"`
	TableFromValues string `mapstructure:"table_from_values"`
	SelectionCount  int    `mapstructure:"selection_count"`
	DisplayFormat   string `mapstructure:"display_format"`
}

type playerChoiceConfig struct {
	ChoiceSource *choiceSource   `mapstructure:"choice_source"`
	Choices      []domain.Choice `mapstructure:"choices"`
}

// execPlayerChoice presents options and records the selection. Options come
// from a literal list or are generated from a table or from context values;
// table-backed selections hydrate into full objects.
func execPlayerChoice(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	if env.Interact == nil {
		return fc, fmt.Errorf("player_choice step '%s' requires an interaction handler: %w",
			step.ID, domain.ErrNoInteraction)
	}

	var cfg playerChoiceConfig
	if err := mapstructure.Decode(step.Config, &cfg); err != nil {
		return fc, fmt.Errorf("invalid player_choice config: %w", err)
	}

	options := cfg.Choices
	if cfg.ChoiceSource != nil {
		var err error
		options, err = dynamicChoices(env, fc, cfg.ChoiceSource)
		if err != nil {
			return fc, err
		}
	}
	if len(options) == 0 {
		return fc, fmt.Errorf("player_choice step '%s' has no choices", step.ID)
	}

	prompt, err := resolveString(fc, step.Prompt)
	if err != nil {
		return fc, err
	}

	count := 1
	if cfg.ChoiceSource != nil && cfg.ChoiceSource.SelectionCount > 1 {
		count = cfg.ChoiceSource.SelectionCount
	}

	if count > 1 {
		return execMultiChoice(ctx, env, step, ns, fc, cfg.ChoiceSource, options, prompt, count)
	}

	idx, err := env.Interact.PromptChoice(ctx, domain.ChoiceRequest{
		StepID:  step.ID,
		Prompt:  prompt,
		Options: options,
		Count:   1,
	})
	if err != nil {
		return fc, err
	}
	if idx < 0 || idx >= len(options) {
		return fc, fmt.Errorf("choice index %d out of range for step '%s'", idx, step.ID)
	}
	selected := options[idx]

	processed, err := processSelection(env, cfg.ChoiceSource, selected.ID)
	if err != nil {
		return fc, err
	}
	fc = fc.Set(ns+".result", processed)

	if len(selected.Actions) > 0 {
		// The choice's own result is visible to its actions as {{ result }}.
		fc = fc.Set("result", processed)
		fc, err = env.runActions(fc, selected.Actions)
		if err != nil {
			return fc, err
		}
	}
	if selected.NextStep != "" {
		fc = fc.Set(ns+".next_step_override", selected.NextStep)
	}

	env.logger().Info("player choice", "step", step.ID, "choice", selected.ID)
	return fc, nil
}

// execMultiChoice collects several distinct selections, removing each pick
// from the option list before asking again.
func execMultiChoice(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context, cs *choiceSource, options []domain.Choice, prompt string, count int) (flowctx.Context, error) {
	if count > len(options) {
		return fc, fmt.Errorf("Expected %d selections, got %d options", count, len(options))
	}

	remaining := make([]domain.Choice, len(options))
	copy(remaining, options)

	processed := make([]any, 0, count)
	for i := 0; i < count; i++ {
		idx, err := env.Interact.PromptChoice(ctx, domain.ChoiceRequest{
			StepID:  step.ID,
			Prompt:  prompt,
			Options: remaining,
			Count:   count - i,
		})
		if err != nil {
			return fc, err
		}
		if idx < 0 || idx >= len(remaining) {
			return fc, fmt.Errorf("choice index %d out of range for step '%s'", idx, step.ID)
		}

		pick := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		value, err := processSelection(env, cs, pick.ID)
		if err != nil {
			return fc, err
		}
		processed = append(processed, value)
	}

	fc = fc.Set(ns+".results", processed).Set("results", processed)
	fc = fc.Set(ns+".result", processed[0])

	env.logger().Info("player choices", "step", step.ID, "count", count)
	return fc, nil
}

// processSelection turns a choice id into its final value: verbatim for
// static and literal-table choices, a hydrated object for model tables.
func processSelection(env *Env, cs *choiceSource, id string) (any, error) {
	if cs == nil || cs.Table == "" || env.Objects == nil {
		return id, nil
	}
	return env.Objects.ResolveTableEntry(cs.Table, id)
}

// dynamicChoices builds the option list from a choice_source.
func dynamicChoices(env *Env, fc flowctx.Context, cs *choiceSource) ([]domain.Choice, error) {
	format := cs.DisplayFormat
	if format == "" {
		format = "{{ title(entry) }}"
	}

	switch {
	case cs.Table != "":
		table, err := env.System.Table(cs.Table)
		if err != nil {
			return nil, err
		}
		options := make([]domain.Choice, 0, len(table.Entries))
		for _, entry := range table.Entries {
			if entry.Value == nil {
				continue
			}
			id := fmt.Sprint(entry.Value)
			label := id
			if v, err := fc.Set("entry", entry.Value).Resolve(format); err == nil && v != nil {
				label = fmt.Sprint(v)
			}
			options = append(options, domain.Choice{ID: id, Label: label})
		}
		return options, nil

	case cs.TableFromValues != "":
		data, err := fc.Resolve("{{ " + cs.TableFromValues + " }}")
		if err != nil {
			return nil, err
		}
		m, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("Data at '%s' is not a dictionary", cs.TableFromValues)
		}

		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		options := make([]domain.Choice, 0, len(keys))
		for _, key := range keys {
			label := key
			if v, err := fc.Set("key", key).Set("value", m[key]).Resolve(format); err == nil && v != nil {
				label = fmt.Sprint(v)
			}
			options = append(options, domain.Choice{ID: key, Label: label})
		}
		return options, nil

	default:
		return nil, fmt.Errorf("choice_source requires either 'table' or 'table_from_values' field")
	}
}
