package objects

import (
	"fmt"
	"sort"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// ResolveTableEntry looks up a selected entry in a table and hydrates it
// according to the table's entry type. Literal tables return the value
// itself; model-typed tables resolve the entry id through the system's
// compendiums into a full object.
func (s *Service) ResolveTableEntry(tableID, entryID string) (any, error) {
	table, err := s.system.Table(tableID)
	if err != nil {
		return nil, err
	}
	entry, ok := table.Entry(entryID)
	if !ok {
		return nil, &domain.UnknownReferenceError{
			Kind:      "entry",
			ID:        entryID,
			Available: table.EntryIDs(),
			Detail:    fmt.Sprintf("Selected entry '%s' not found in table '%s'", entryID, tableID),
		}
	}
	return s.HydrateEntryValue(table, entry.Value)
}

// HydrateEntryValue turns one table entry value into its final form. With a
// model entry type, string values are compendium ids; entries missing from
// every compendium still become minimal objects carrying the model's
// defaults, so sparse content packs degrade instead of failing.
func (s *Service) HydrateEntryValue(table *domain.TableDefinition, value any) (any, error) {
	entryType := table.EntryType
	if entryType == "" || entryType == "str" || !s.isModel(entryType) {
		return value, nil
	}

	var data map[string]any
	switch v := value.(type) {
	case string:
		data = map[string]any{"model": entryType, "id": v}
		if found, ok := s.lookupCompendiumEntry(entryType, v); ok {
			for k, val := range found {
				data[k] = deepCopy(val)
			}
			data["model"] = entryType
		} else {
			s.logger.Warn("table entry not in any compendium, building from defaults",
				"table", table.ID, "entry", v, "model", entryType)
		}
	case map[string]any:
		data = v
		if _, has := data["model"]; !has {
			data = withModel(data, entryType)
		}
	default:
		return value, nil
	}

	inst, err := s.CreateDraft(data)
	if err != nil {
		return nil, fmt.Errorf("Failed to create %s object from table selection: %w", entryType, err)
	}
	return inst.ToMap(), nil
}

// lookupCompendiumEntry searches every compendium of the given model, in id
// order, for an entry.
func (s *Service) lookupCompendiumEntry(modelID, entryID string) (map[string]any, bool) {
	ids := make([]string, 0, len(s.system.Compendiums))
	for id := range s.system.Compendiums {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		comp := s.system.Compendiums[id]
		if comp.Model != modelID {
			continue
		}
		if data, ok := comp.Entries[entryID]; ok {
			return data, true
		}
	}
	return nil, false
}
