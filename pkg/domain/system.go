package domain

// SystemDefinition is the top-level descriptor of a game system.
type SystemDefinition struct {
	ID            string    `json:"id" mapstructure:"id"`
	Kind          string    `json:"kind" mapstructure:"kind"`
	Name          string    `json:"name" mapstructure:"name"`
	Description   string    `json:"description,omitempty" mapstructure:"description"`
	Version       int       `json:"version,omitempty" mapstructure:"version"`
	DefaultSource string    `json:"default_source,omitempty" mapstructure:"default_source"`
	Currency      *Currency `json:"currency,omitempty" mapstructure:"currency"`
	Credits       *Credits  `json:"credits,omitempty" mapstructure:"credits"`
}

// Currency describes the money system used by a game system.
type Currency struct {
	BaseUnit      string         `json:"base_unit,omitempty" mapstructure:"base_unit"`
	Denominations []Denomination `json:"denominations,omitempty" mapstructure:"denominations"`
}

// Denomination is a single coin or unit within a Currency.
type Denomination struct {
	ID     string `json:"id" mapstructure:"id"`
	Name   string `json:"name,omitempty" mapstructure:"name"`
	Symbol string `json:"symbol,omitempty" mapstructure:"symbol"`
	Value  int    `json:"value,omitempty" mapstructure:"value"`
}

// Credits attributes the system to its creators.
type Credits struct {
	Author    string `json:"author,omitempty" mapstructure:"author"`
	License   string `json:"license,omitempty" mapstructure:"license"`
	Publisher string `json:"publisher,omitempty" mapstructure:"publisher"`
	URL       string `json:"url,omitempty" mapstructure:"url"`
}

// SourceDefinition references a published book, site or document that
// definitions in the system cite as their origin.
type SourceDefinition struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Version     int    `json:"version,omitempty" mapstructure:"version"`
	Type        string `json:"type,omitempty" mapstructure:"type"`
	Author      string `json:"author,omitempty" mapstructure:"author"`
	Publisher   string `json:"publisher,omitempty" mapstructure:"publisher"`
	Year        int    `json:"year,omitempty" mapstructure:"year"`
	URL         string `json:"url,omitempty" mapstructure:"url"`
	ISBN        string `json:"isbn,omitempty" mapstructure:"isbn"`
}
