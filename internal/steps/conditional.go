package steps

import (
	"context"
	"fmt"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
)

// execConditional evaluates an if/then/else tree. Branches carry actions, a
// next_step redirect, or a nested conditional under else.
func execConditional(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	ifExpr, _ := step.Config["if"].(string)
	if ifExpr == "" {
		return fc, fmt.Errorf("conditional_branch step '%s' missing 'if' condition", step.ID)
	}
	return evalConditional(env, fc, ns, ifExpr, step.Config["then"], step.Config["else"])
}

func evalConditional(env *Env, fc flowctx.Context, ns, ifExpr string, thenClause, elseClause any) (flowctx.Context, error) {
	ok, err := fc.EvaluateBool(ifExpr)
	if err != nil {
		return fc, fmt.Errorf("Failed to evaluate conditional '%s': %v", ifExpr, err)
	}
	env.logger().Debug("condition evaluated", "condition", ifExpr, "result", ok)

	if ok {
		if thenClause == nil {
			return fc, nil
		}
		return runBranch(env, fc, ns, thenClause, false)
	}
	if elseClause == nil {
		return fc, nil
	}
	return runBranch(env, fc, ns, elseClause, true)
}

// runBranch executes one side of a conditional. A list is a list of
// actions; a mapping is either a nested conditional (has "if") or a branch
// body with "actions" and/or "next_step".
func runBranch(env *Env, fc flowctx.Context, ns string, clause any, isElse bool) (flowctx.Context, error) {
	switch c := clause.(type) {
	case []any:
		return env.runActions(fc, toActionList(c))

	case []map[string]any:
		return env.runActions(fc, c)

	case map[string]any:
		if nested, ok := c["if"].(string); ok {
			if nested == "" {
				return fc, fmt.Errorf("Nested conditional missing 'if' condition")
			}
			return evalConditional(env, fc, ns, nested, c["then"], c["else"])
		}

		acts, hasActions := c["actions"]
		next, hasNext := c["next_step"].(string)
		if !hasActions && !hasNext {
			return fc, fmt.Errorf("Invalid else clause structure: expected actions, next_step or a nested conditional")
		}
		if hasActions {
			var err error
			fc, err = env.runActions(fc, toActionList(acts))
			if err != nil {
				return fc, err
			}
		}
		if hasNext && next != "" {
			fc = fc.Set(ns+".next_step_override", next)
		}
		return fc, nil

	default:
		kind := "then"
		if isElse {
			kind = "else"
		}
		return fc, fmt.Errorf("Invalid %s clause type: %T. Expected list of actions or dict", kind, clause)
	}
}
