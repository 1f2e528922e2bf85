package domain

// CompendiumDefinition is a named collection of full object data keyed by
// entry id. It is the source of truth tables reference when their entry
// values are ids rather than literals.
type CompendiumDefinition struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Version     int    `json:"version,omitempty" mapstructure:"version"`

	// Model is the id of the model every entry conforms to.
	Model string `json:"model" mapstructure:"model"`

	// Entries maps entry id to raw attribute data.
	Entries map[string]map[string]any `json:"entries,omitempty" mapstructure:"entries"`
}
