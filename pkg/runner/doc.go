/*
Package runner hosts interactive flow execution.

It bridges the engine's interaction ports and a concrete frontend: the
runner implements Interaction and EventSink by delegating to a pluggable
IOHandler, and wraps runs with signal handling.

# Key Components

  - Runner: implements the engine's Interaction and EventSink ports.
  - IOHandler: decouples how prompts and display output are rendered.
  - TextHandler: terminal frontend with optional markdown rendering.
  - JSONHandler: NDJSON frontend for programmatic hosts.
  - Scripted: non-interactive Interaction fed from a context answer list,
    used by the HTTP and MCP servers.

# Usage

	r := runner.New()
	eng, err := grimoire.New("./systems/knave",
		grimoire.WithInteraction(r),
		grimoire.WithSink(r),
	)
	if err != nil {
		log.Fatal(err)
	}

	result, err := r.Run(ctx, eng, "create-character", nil)
*/
package runner
