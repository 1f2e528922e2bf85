package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Definition kinds recognized by ParseDocument.
const (
	KindSystem     = "system"
	KindModel      = "model"
	KindFlow       = "flow"
	KindTable      = "table"
	KindCompendium = "compendium"
	KindPrompt     = "prompt"
	KindSource     = "source"
)

// KnownKinds enumerates every document kind a loader can encounter.
func KnownKinds() []string {
	return []string{KindSystem, KindModel, KindFlow, KindTable, KindCompendium, KindPrompt, KindSource}
}

// ParseDocument decodes one raw YAML mapping into its typed definition,
// dispatching on the "kind" field. The returned value is a pointer to one
// of the *Definition types.
func ParseDocument(raw map[string]any) (string, any, error) {
	kindVal, ok := raw["kind"]
	if !ok {
		return "", nil, NewInputError("document missing 'kind' field")
	}
	kind, ok := kindVal.(string)
	if !ok {
		return "", nil, NewInputError("document 'kind' must be a string, got %T", kindVal)
	}

	var (
		def any
		err error
	)
	switch kind {
	case KindSystem:
		def, err = ParseSystem(raw)
	case KindModel:
		def, err = ParseModel(raw)
	case KindFlow:
		def, err = ParseFlow(raw)
	case KindTable:
		def, err = ParseTable(raw)
	case KindCompendium:
		def, err = ParseCompendium(raw)
	case KindPrompt:
		def, err = ParsePrompt(raw)
	case KindSource:
		def, err = ParseSource(raw)
	default:
		return "", nil, &UnknownReferenceError{
			Kind:      "kind",
			ID:        kind,
			Detail:    fmt.Sprintf("unknown document kind '%s'", kind),
			Available: KnownKinds(),
		}
	}
	if err != nil {
		return "", nil, err
	}
	return kind, def, nil
}

// ParseSystem decodes a system definition.
func ParseSystem(raw map[string]any) (*SystemDefinition, error) {
	var def SystemDefinition
	if err := decode(raw, &def); err != nil {
		return nil, NewInputError("invalid system definition: %v", err)
	}
	return &def, requireID(KindSystem, def.ID)
}

// ParseModel decodes a model definition. Attribute shorthand ("name: str")
// is normalized into a full AttributeDefinition.
func ParseModel(raw map[string]any) (*ModelDefinition, error) {
	raw = normalizeAttributes(raw)
	var def ModelDefinition
	if err := decode(raw, &def); err != nil {
		return nil, NewInputError("invalid model definition: %v", err)
	}
	return &def, requireID(KindModel, def.ID)
}

// ParseFlow decodes a flow definition. Non-standard step keys land in each
// step's Config map.
func ParseFlow(raw map[string]any) (*FlowDefinition, error) {
	var def FlowDefinition
	if err := decode(raw, &def); err != nil {
		return nil, NewInputError("invalid flow definition: %v", err)
	}
	return &def, requireID(KindFlow, def.ID)
}

// ParseTable decodes a table definition. "dice" is accepted as an alias for
// "roll"; entry_type defaults to "str".
func ParseTable(raw map[string]any) (*TableDefinition, error) {
	raw = aliasKey(raw, "dice", "roll")
	var def TableDefinition
	if err := decode(raw, &def); err != nil {
		return nil, NewInputError("invalid table definition: %v", err)
	}
	if def.EntryType == "" {
		def.EntryType = "str"
	}
	return &def, requireID(KindTable, def.ID)
}

// ParseCompendium decodes a compendium definition.
func ParseCompendium(raw map[string]any) (*CompendiumDefinition, error) {
	var def CompendiumDefinition
	if err := decode(raw, &def); err != nil {
		return nil, NewInputError("invalid compendium definition: %v", err)
	}
	return &def, requireID(KindCompendium, def.ID)
}

// ParsePrompt decodes a prompt definition. "prompt_template" is accepted as
// an alias for "template".
func ParsePrompt(raw map[string]any) (*PromptDefinition, error) {
	raw = aliasKey(raw, "prompt_template", "template")
	var def PromptDefinition
	if err := decode(raw, &def); err != nil {
		return nil, NewInputError("invalid prompt definition: %v", err)
	}
	return &def, requireID(KindPrompt, def.ID)
}

// ParseSource decodes a source definition.
func ParseSource(raw map[string]any) (*SourceDefinition, error) {
	var def SourceDefinition
	if err := decode(raw, &def); err != nil {
		return nil, NewInputError("invalid source definition: %v", err)
	}
	return &def, requireID(KindSource, def.ID)
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func requireID(kind, id string) error {
	if id == "" {
		return NewInputError("%s definition missing 'id' field", kind)
	}
	return nil
}

// aliasKey copies src to dst when dst is absent, leaving the original map
// untouched.
func aliasKey(raw map[string]any, src, dst string) map[string]any {
	v, ok := raw[src]
	if !ok {
		return raw
	}
	if _, exists := raw[dst]; exists {
		return raw
	}
	out := make(map[string]any, len(raw))
	for k, val := range raw {
		out[k] = val
	}
	out[dst] = v
	return out
}

// normalizeAttributes rewrites shorthand attribute declarations. A bare
// string value is the attribute's type; nested "attributes" blocks keep
// whatever structure they have.
func normalizeAttributes(raw map[string]any) map[string]any {
	attrsVal, ok := raw["attributes"]
	if !ok {
		return raw
	}
	attrs, ok := attrsVal.(map[string]any)
	if !ok {
		return raw
	}

	normalized := make(map[string]any, len(attrs))
	changed := false
	for name, v := range attrs {
		if typeName, isStr := v.(string); isStr {
			normalized[name] = map[string]any{"type": typeName}
			changed = true
			continue
		}
		normalized[name] = v
	}
	if !changed {
		return raw
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	out["attributes"] = normalized
	return out
}
