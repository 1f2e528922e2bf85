package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wyrdbound/grimoire"
)

// RunWatch keeps a system loaded while its directory is edited: every
// change reloads the definitions and re-validates the cross-references.
// Meant for authoring; stop with Ctrl+C.
func RunWatch(path string, debug bool) error {
	logger := createLogger(debug)

	eng, err := grimoire.New(path, grimoire.WithLogger(logger))
	if err != nil {
		return err
	}

	printProblems(eng)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := eng.Watch(ctx)
	if err != nil {
		return err
	}

	printSystemMessage("Watching %s for changes...", path)
	for changed := range events {
		printSystemMessage("Reloading (%s changed)...", changed)
		if err := eng.Reload(ctx); err != nil {
			fmt.Printf("    load error: %v\n", err)
			continue
		}
		printProblems(eng)
	}
	return nil
}

func printProblems(eng *grimoire.Engine) {
	problems := eng.Validate()
	if len(problems) == 0 {
		printSystemMessage("System '%s' is valid.", eng.System().System.ID)
		return
	}
	printSystemMessage("%d problem(s) found:", len(problems))
	for _, p := range problems {
		fmt.Printf("    - %s\n", p)
	}
}
