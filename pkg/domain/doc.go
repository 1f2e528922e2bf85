/*
Package domain contains the core definition model for the Grimoire engine.

It defines the entities a game system is authored from, such as Models,
Flows, Tables and Compendiums, plus the error taxonomy shared by every
layer. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - ModelDefinition: A schema (attributes + inheritance) for domain objects.
  - FlowDefinition: A declarative procedure of typed steps.
  - TableDefinition: A range-indexed set of selectable entries.
  - CompendiumDefinition: Full object data keyed by entry id.
  - CompleteSystem: The root aggregate owning all definitions of a system.
  - Session: The persistable snapshot of a running flow.
*/
package domain
