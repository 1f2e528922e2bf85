package steps

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
)

type tableRollConfig struct {
	Tables []struct {
		Table   string           `mapstructure:"table"`
		Actions []map[string]any `mapstructure:"actions"`
	} `mapstructure:"tables"`
}

// execTableRoll rolls each configured table's dice expression, matches the
// total against entry ranges and hydrates the selected entry. Per-table
// actions run with the roll bound to {{ result }}.
func execTableRoll(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	var cfg tableRollConfig
	if err := mapstructure.Decode(step.Config, &cfg); err != nil {
		return fc, fmt.Errorf("invalid table_roll config: %w", err)
	}
	if len(cfg.Tables) == 0 {
		return fc, fmt.Errorf("table_roll step '%s' missing 'tables' field", step.ID)
	}
	if env.Dice == nil {
		return fc, fmt.Errorf("table_roll step '%s' requires a dice roller", step.ID)
	}

	env.logger().Debug("rolling on tables", "step", step.ID, "tables", len(cfg.Tables))

	for _, tc := range cfg.Tables {
		if err := ctx.Err(); err != nil {
			return fc, err
		}
		if tc.Table == "" {
			return fc, fmt.Errorf("table_roll step '%s' has table config without 'table' field", step.ID)
		}

		table, err := env.System.Table(tc.Table)
		if err != nil {
			return fc, err
		}
		if table.Roll == "" {
			return fc, fmt.Errorf("Table '%s' has no roll expression defined", tc.Table)
		}

		res, err := env.Dice.Roll(ctx, table.Roll)
		if err != nil {
			return fc, err
		}

		var value any
		if entry, ok := table.EntryForRoll(res.Total); ok {
			value, err = hydrate(env, table, entry.Value)
			if err != nil {
				return fc, err
			}
		} else {
			env.logger().Warn("no matching entry for roll", "table", tc.Table, "total", res.Total)
			value = fmt.Sprintf("<no match for %d>", res.Total)
		}

		result := map[string]any{
			"entry":       value,
			"roll_result": rollMap(res),
		}
		fc = fc.Set(ns+".result", result).Set("result", result)

		fc, err = env.runActions(fc, tc.Actions)
		if err != nil {
			return fc, err
		}
	}
	return fc, nil
}

func hydrate(env *Env, table *domain.TableDefinition, value any) (any, error) {
	if env.Objects == nil {
		return value, nil
	}
	return env.Objects.HydrateEntryValue(table, value)
}
