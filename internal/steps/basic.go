package steps

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
	"github.com/wyrdbound/grimoire/pkg/schema"
)

// execCompletion marks the flow as done. Messages belong to the step's
// prompt and actions, not to the executor.
func execCompletion(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	env.logger().Debug("completion step reached", "step", step.ID)
	return fc.Set(ns+".result", map[string]any{"completed": true}), nil
}

// execDiceRoll rolls one expression through the dice port.
func execDiceRoll(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	raw, ok := step.Config["roll"]
	if !ok || raw == "" {
		return fc, fmt.Errorf("dice_roll step '%s' missing 'roll' field", step.ID)
	}
	expr, err := resolveString(fc, fmt.Sprint(raw))
	if err != nil {
		return fc, err
	}
	if env.Dice == nil {
		return fc, fmt.Errorf("dice_roll step '%s' requires a dice roller", step.ID)
	}

	env.logger().Debug("rolling dice", "step", step.ID, "expression", expr)
	res, err := env.Dice.Roll(ctx, expr)
	if err != nil {
		return fc, err
	}

	env.logger().Info("dice roll result", "step", step.ID, "total", res.Total)
	return fc.Set(ns+".result", rollMap(res)), nil
}

// rollMap renders a roll result the way step namespaces store it. "detail"
// duplicates the description under the name table actions historically use.
func rollMap(res domain.RollResult) map[string]any {
	m := res.Map()
	m["detail"] = res.Description
	return m
}

type playerInputConfig struct {
	Type    string `mapstructure:"type"`
	Default string `mapstructure:"default"`
	Output  string `mapstructure:"output"`
}

// execPlayerInput collects one value from the player through the
// interaction port, coercing it to the configured type.
func execPlayerInput(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	if env.Interact == nil {
		return fc, fmt.Errorf("player_input step '%s' requires an interaction handler: %w",
			step.ID, domain.ErrNoInteraction)
	}

	var cfg playerInputConfig
	if err := mapstructure.Decode(step.Config, &cfg); err != nil {
		return fc, fmt.Errorf("invalid player_input config: %w", err)
	}

	prompt, err := resolveString(fc, step.Prompt)
	if err != nil {
		return fc, err
	}

	value, err := env.Interact.PromptInput(ctx, domain.InputRequest{
		StepID:  step.ID,
		Prompt:  prompt,
		Type:    cfg.Type,
		Default: cfg.Default,
	})
	if err != nil {
		return fc, err
	}

	if cfg.Type != "" && schema.IsPrimitive(cfg.Type) {
		value, err = schema.Coerce(value, cfg.Type, "input")
		if err != nil {
			return fc, err
		}
	}

	fc = fc.Set(ns+".result", value)
	if cfg.Output != "" {
		path, err := resolveString(fc, cfg.Output)
		if err != nil {
			return fc, err
		}
		fc = fc.Set(path, value)
	}

	env.logger().Info("player input received", "step", step.ID)
	return fc, nil
}

type diceSequenceConfig struct {
	Sequence struct {
		Items   []any            `mapstructure:"items"`
		Roll    string           `mapstructure:"roll"`
		Actions []map[string]any `mapstructure:"actions"`
	} `mapstructure:"sequence"`
}

// execDiceSequence rolls once per item, exposing each item and roll result
// to the per-item actions.
func execDiceSequence(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	var cfg diceSequenceConfig
	if err := mapstructure.Decode(step.Config, &cfg); err != nil {
		return fc, fmt.Errorf("invalid dice_sequence config: %w", err)
	}
	if len(cfg.Sequence.Items) == 0 {
		return fc, fmt.Errorf("dice_sequence step '%s' missing 'items' in sequence", step.ID)
	}
	if cfg.Sequence.Roll == "" {
		return fc, fmt.Errorf("dice_sequence step '%s' missing 'roll' in sequence", step.ID)
	}
	if env.Dice == nil {
		return fc, fmt.Errorf("dice_sequence step '%s' requires a dice roller", step.ID)
	}

	env.logger().Debug("rolling dice sequence", "step", step.ID, "items", len(cfg.Sequence.Items))

	for _, item := range cfg.Sequence.Items {
		if err := ctx.Err(); err != nil {
			return fc, err
		}

		fc = fc.Set(ns+".item", item).Set("item", item)

		expr, err := resolveString(fc, cfg.Sequence.Roll)
		if err != nil {
			return fc, err
		}
		res, err := env.Dice.Roll(ctx, expr)
		if err != nil {
			return fc, err
		}

		result := rollMap(res)
		fc = fc.Set(ns+".result", result).Set("result", result)

		fc, err = env.runActions(fc, cfg.Sequence.Actions)
		if err != nil {
			return fc, err
		}
	}
	return fc, nil
}

type nameGenerationConfig struct {
	Settings struct {
		MaxLength int    `mapstructure:"max_length"`
		Corpus    string `mapstructure:"corpus"`
		Segmenter string `mapstructure:"segmenter"`
		Algorithm string `mapstructure:"algorithm"`
	} `mapstructure:"settings"`
}

// execNameGeneration produces a name through the generator port.
func execNameGeneration(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	if env.Names == nil {
		return fc, fmt.Errorf("name_generation step '%s' requires a name generator", step.ID)
	}

	var cfg nameGenerationConfig
	if err := mapstructure.Decode(step.Config, &cfg); err != nil {
		return fc, fmt.Errorf("invalid name_generation config: %w", err)
	}
	if cfg.Settings.MaxLength == 0 {
		cfg.Settings.MaxLength = 15
	}
	if cfg.Settings.Corpus == "" {
		cfg.Settings.Corpus = "generic-fantasy"
	}
	if cfg.Settings.Segmenter == "" {
		cfg.Settings.Segmenter = "fantasy"
	}
	if cfg.Settings.Algorithm == "" {
		cfg.Settings.Algorithm = "bayesian"
	}

	name, err := env.Names.Generate(ctx, domain.NameRequest{
		Corpus:    cfg.Settings.Corpus,
		Segmenter: cfg.Settings.Segmenter,
		Algorithm: cfg.Settings.Algorithm,
		MaxLength: cfg.Settings.MaxLength,
	})
	if err != nil {
		return fc, err
	}

	env.logger().Info("name generated", "step", step.ID, "name", name)
	return fc.Set(ns+".result", map[string]any{"name": name}), nil
}
