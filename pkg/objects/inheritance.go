package objects

import (
	"fmt"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// resolvedModel is a model with its inheritance flattened: the effective
// attribute set and validation rules after the depth-first, child-wins merge
// over extends.
type resolvedModel struct {
	def         *domain.ModelDefinition
	attributes  map[string]domain.AttributeDefinition
	validations []domain.ValidationRule
}

// buildRegistry linearizes every model in the system once. Unknown parents
// and inheritance cycles fail the whole registry.
func buildRegistry(system *domain.CompleteSystem) (map[string]*resolvedModel, error) {
	memo := make(map[string]*resolvedModel, len(system.Models))
	for _, id := range system.ModelIDs() {
		if _, err := resolveModel(system, id, nil, memo); err != nil {
			return nil, err
		}
	}
	return memo, nil
}

// resolveModel merges parent attributes depth-first in declaration order.
// Later parents override earlier ones; the child overrides everything.
func resolveModel(system *domain.CompleteSystem, id string, path []string, memo map[string]*resolvedModel) (*resolvedModel, error) {
	if rm, ok := memo[id]; ok {
		return rm, nil
	}
	for _, seen := range path {
		if seen == id {
			return nil, fmt.Errorf("model '%s' has an inheritance cycle: %v", id, append(path, id))
		}
	}

	def := system.Models[id]
	attrs := make(map[string]domain.AttributeDefinition, len(def.Attributes))
	var validations []domain.ValidationRule

	for _, parentID := range def.Extends {
		if _, ok := system.Models[parentID]; !ok {
			return nil, fmt.Errorf("model '%s' extends unknown model '%s'", id, parentID)
		}
		parent, err := resolveModel(system, parentID, append(path, id), memo)
		if err != nil {
			return nil, err
		}
		for k, v := range parent.attributes {
			attrs[k] = v
		}
		validations = appendRules(validations, parent.validations)
	}

	for k, v := range def.Attributes {
		attrs[k] = v
	}
	validations = appendRules(validations, def.Validations)

	rm := &resolvedModel{def: def, attributes: attrs, validations: validations}
	memo[id] = rm
	return rm, nil
}

// appendRules concatenates validation rules, skipping exact duplicates so
// diamond inheritance does not report the same rule twice.
func appendRules(dst, src []domain.ValidationRule) []domain.ValidationRule {
	for _, rule := range src {
		dup := false
		for _, have := range dst {
			if have == rule {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, rule)
		}
	}
	return dst
}
