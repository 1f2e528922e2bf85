package objects

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/schema"
)

// FlowInputs hydrates the provided input values against the flow's declared
// input slots. Required slots must be present; primitives are coerced to
// their declared type; model-typed mappings become draft objects so partial
// inputs can be filled in by the flow itself.
func (s *Service) FlowInputs(flow *domain.FlowDefinition, provided map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(flow.Inputs))
	for _, slot := range flow.Inputs {
		value, present := provided[slot.ID]
		if !present {
			if slot.Required {
				return nil, fmt.Errorf("Failed to instantiate flow inputs: %w",
					&domain.MissingFieldError{Field: slot.ID, Slot: "input"})
			}
			continue
		}
		hydrated, err := s.hydrateSlot(slot, value, "input")
		if err != nil {
			return nil, fmt.Errorf("Failed to instantiate flow inputs: %w", err)
		}
		out[slot.ID] = hydrated
	}
	return out, nil
}

// FlowOutput hydrates one produced output value against its declared slot.
// Slots with Validate set go through full object validation; the rest are
// drafts. Callers wrap the error with their own phase context.
func (s *Service) FlowOutput(slot domain.FlowInputOutput, value any) (any, error) {
	return s.hydrateSlot(slot, value, "output")
}

func (s *Service) hydrateSlot(slot domain.FlowInputOutput, value any, kind string) (any, error) {
	switch {
	case schema.IsPrimitive(slot.Type):
		return schema.Coerce(value, slot.Type, fmt.Sprintf("%s '%s'", kind, slot.ID))

	case s.isModel(slot.Type):
		data, ok := value.(map[string]any)
		if !ok {
			// Already-built objects and scalars pass through untouched.
			return value, nil
		}
		if _, has := data["model"]; !has {
			data = withModel(data, slot.Type)
		}
		var (
			inst *Instance
			err  error
		)
		if slot.Validate {
			inst, err = s.Create(data)
		} else {
			inst, err = s.CreateDraft(data)
		}
		if err != nil {
			return nil, err
		}
		return inst.ToMap(), nil

	default:
		s.logger.Warn("unknown slot type, passing value through", "slot", slot.ID, "type", slot.Type)
		return value, nil
	}
}

func (s *Service) isModel(typ string) bool {
	_, ok := s.models[typ]
	return ok
}

// ExpectedType reports the declared type at a flow context path such as
// "outputs.character.stats.strength", walking model attributes for nested
// parts and list element types for numeric segments. The second return is
// false when the path leaves declared territory.
func (s *Service) ExpectedType(flow *domain.FlowDefinition, path string) (string, bool) {
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return "", false
	}

	var base string
	switch parts[0] {
	case "inputs":
		for _, slot := range flow.Inputs {
			if slot.ID == parts[1] {
				base = slot.Type
			}
		}
	case "outputs":
		for _, slot := range flow.Outputs {
			if slot.ID == parts[1] {
				base = slot.Type
			}
		}
	case "variables":
		for _, v := range flow.Variables {
			if v.ID == parts[1] {
				base = v.Type
			}
		}
	default:
		return "", false
	}
	if base == "" {
		return "", false
	}

	cur := base
	var listElem string
	for _, part := range parts[2:] {
		if _, err := strconv.Atoi(part); err == nil && cur == "list" {
			if listElem == "" {
				return "", false
			}
			cur = listElem
			listElem = ""
			continue
		}
		rm, ok := s.models[cur]
		if !ok {
			return "", false
		}
		attr, ok := rm.attributes[part]
		if !ok {
			return "", false
		}
		cur = attr.Type
		listElem = attr.Of
	}
	return cur, true
}

// CoerceToType bends a value toward a declared type before it lands in the
// flow context. Primitive coercion failures are reported; model
// instantiation failures fall back to the raw value so validation can
// happen later, once the object is complete.
func (s *Service) CoerceToType(value any, typ string) (any, error) {
	switch {
	case typ == "" || typ == "any":
		return value, nil

	case schema.IsPrimitive(typ):
		return schema.Coerce(value, typ, "")

	case s.isModel(typ):
		data, ok := value.(map[string]any)
		if !ok {
			return value, nil
		}
		if _, has := data["model"]; !has {
			data = withModel(data, typ)
		}
		inst, err := s.Create(data)
		if err != nil {
			s.logger.Debug("deferring model validation", "type", typ, "err", err)
			return value, nil
		}
		return inst.ToMap(), nil

	default:
		return value, nil
	}
}
