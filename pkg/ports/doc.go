/*
Package ports defines the driven ports (interfaces) for the grimoire engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various system sources, persistence backends, random
collaborators and user-facing frontends.

# Key Interfaces

  - SystemSource: loads a CompleteSystem (models, flows, tables, compendiums).
  - StateStore: persists and reloads flow Sessions for stop & resume.
  - TemplateResolver: expands {{ ... }} expressions against context data.
  - DiceRoller, NameGenerator, PromptExecutor: external collaborators a flow
    may call into.
  - Interaction, EventSink: the user-facing side of flow execution.
  - DistributedLocker: coordinates concurrent access to one session across
    replicas.
*/
package ports
