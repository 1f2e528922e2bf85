package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
)

// execFlowCall runs a named sub-flow with resolved inputs and maps its
// outputs back into the caller's context. Errors already carry the step id,
// so the registry leaves them unwrapped.
func execFlowCall(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	flowID, _ := step.Config["flow_id"].(string)
	if flowID == "" {
		return fc, fmt.Errorf("Step %s: 'flow_id' field is required in step_config", step.ID)
	}
	if env.System != nil {
		if _, err := env.System.Flow(flowID); err != nil {
			return fc, fmt.Errorf("Step %s: Flow '%s' not found", step.ID, flowID)
		}
	}
	if env.RunFlow == nil {
		return fc, fmt.Errorf("Step %s: flow execution unavailable", step.ID)
	}

	inputs := map[string]any{}
	if raw, ok := step.Config["inputs"].(map[string]any); ok {
		for _, key := range sortedKeys(raw) {
			v, err := resolveIfTemplate(fc, raw[key])
			if err != nil {
				return fc, fmt.Errorf("Step %s: %w", step.ID, err)
			}
			inputs[key] = v
		}
	}

	env.logger().Info("calling sub-flow", "step", step.ID, "flow", flowID)

	outputs, err := env.RunFlow(ctx, flowID, inputs)
	if err != nil {
		return fc, fmt.Errorf("Step %s: %w", step.ID, err)
	}
	fc = fc.Set(ns+".result", outputs)

	// Optional outputs mapping copies named sub-flow outputs to caller paths.
	if mapping, ok := step.Config["outputs"].(map[string]any); ok {
		for _, key := range sortedKeys(mapping) {
			target, ok := mapping[key].(string)
			if !ok || target == "" {
				continue
			}
			value, present := outputs[key]
			if !present {
				env.logger().Warn("sub-flow did not produce mapped output", "step", step.ID, "output", key)
				continue
			}
			fc = fc.Set(target, value)
		}
	}
	return fc, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
