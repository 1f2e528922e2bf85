package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TableDefinition is an ordered, range-indexed set of selectable entries.
//
// EntryType decides how entry values are interpreted: "str" means values are
// literals returned verbatim; a model id means values are compendium entry
// ids that must be hydrated into full objects on selection. There is no
// schema-level marker beyond this string, which makes mistyped EntryType an
// authoring footgun; validation can only catch ids that match no model.
type TableDefinition struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Version     int    `json:"version,omitempty" mapstructure:"version"`

	// Roll is the dice expression used by table_roll steps. The YAML key
	// "dice" is accepted as an alias.
	Roll string `json:"roll,omitempty" mapstructure:"roll"`

	// EntryType is "str" for literal values or a model id for compendium
	// references. Defaults to "str".
	EntryType string `json:"entry_type,omitempty" mapstructure:"entry_type"`

	Entries []TableEntry `json:"entries,omitempty" mapstructure:"entries"`
}

// TableEntry is one row: a range expression matched against a roll result
// and the value selected when it matches.
type TableEntry struct {
	// Range is "low-high", a single number, or empty for sequential tables.
	Range string `json:"range,omitempty" mapstructure:"range"`
	Value any    `json:"value" mapstructure:"value"`
}

// EntryIDs returns the string form of every entry value, used to key
// selections and in error messages that enumerate what a table contains.
func (t *TableDefinition) EntryIDs() []string {
	ids := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Value == nil {
			continue
		}
		ids = append(ids, fmt.Sprint(e.Value))
	}
	return ids
}

// Entry returns the entry whose value's string form equals the given id.
// Non-string values match their rendered form, so numeric tables are
// selectable too.
func (t *TableDefinition) Entry(id string) (TableEntry, bool) {
	for _, e := range t.Entries {
		if e.Value == nil {
			continue
		}
		if fmt.Sprint(e.Value) == id {
			return e, true
		}
	}
	return TableEntry{}, false
}

// EntryForRoll returns the entry whose range covers the roll total.
// Ranges are "low-high" spans or single numbers; entries without a range
// match positionally, first entry for a roll of 1.
func (t *TableDefinition) EntryForRoll(total int) (TableEntry, bool) {
	for i, e := range t.Entries {
		if e.Range == "" {
			if total == i+1 {
				return e, true
			}
			continue
		}
		if lo, hi, ok := parseSpan(e.Range); ok && total >= lo && total <= hi {
			return e, true
		}
	}
	return TableEntry{}, false
}

func parseSpan(s string) (lo, hi int, ok bool) {
	if before, after, found := strings.Cut(s, "-"); found {
		l, err1 := strconv.Atoi(strings.TrimSpace(before))
		h, err2 := strconv.Atoi(strings.TrimSpace(after))
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return l, h, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}
