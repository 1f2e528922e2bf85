package objects

import (
	"fmt"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/schema"
)

// SlotSchema describes flow input or output slots as an attribute schema.
// Primitive and list slots map to their schema types; model-typed slots
// keep the model id as the type name and validate as objects or compendium
// references. The HTTP and MCP surfaces serialize the result for clients.
func SlotSchema(slots []domain.FlowInputOutput) schema.Schema {
	if len(slots) == 0 {
		return nil
	}
	out := make(schema.Schema, len(slots))
	for _, slot := range slots {
		out[slot.ID] = slotType(slot.Type)
	}
	return out
}

// ValidateInputs checks provided flow inputs against the declared slots
// before a run starts: required slots must be present, provided values
// must fit their slot's type. All problems are reported together.
func ValidateInputs(flow *domain.FlowDefinition, provided map[string]any) error {
	gate := make(schema.Schema)
	for _, slot := range flow.Inputs {
		_, present := provided[slot.ID]
		if present || slot.Required {
			gate[slot.ID] = slotType(slot.Type)
		}
	}
	return schema.Validate(gate, provided)
}

func slotType(typ string) schema.Type {
	if t, err := schema.ParseType(typ); err == nil {
		return t
	}
	// Model slots take either an attribute mapping or a compendium entry
	// id; already-built objects hydrate downstream.
	return schema.Custom(typ, func(v any) error {
		switch v.(type) {
		case map[string]any, string:
			return nil
		default:
			return fmt.Errorf("expected %s object or entry id, got %T", typ, v)
		}
	})
}
