/*
Package grimoire is a flow execution engine for tabletop RPG systems.

A game system is a directory of YAML documents: models describing the
shape of game objects, flows describing multi-step procedures (character
creation, downtime, treasure generation), tables and compendiums holding
rollable and referencable content, and prompts for LLM-assisted steps.
The engine loads a system, then interprets its flows step by step,
threading an immutable context through dice rolls, table lookups, player
interaction and object instantiation.

The architecture is hexagonal: the runtime only talks to ports (dice,
names, prompts, interaction, persistence), and adapters plug concrete
implementations in. That keeps the engine embeddable in a CLI, an HTTP
service or an MCP server without changes.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/wyrdbound/grimoire"
	)

	func main() {
		eng, err := grimoire.New("./systems/knave")
		if err != nil {
			log.Fatal(err)
		}

		result, err := eng.RunFlow(context.Background(), "create-character", map[string]any{
			"character_name": "Brannic",
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(result.Outputs["character"])
	}

Flows that pause for player input wire an Interaction implementation via
WithInteraction; pkg/runner provides terminal and NDJSON frontends.
Long-running flows persist through WithStore and resume at the flow's
declared resume points.
*/
package grimoire
