package cli

import (
	"fmt"

	"github.com/wyrdbound/grimoire"
	"github.com/wyrdbound/grimoire/internal/presentation/graph"
)

func loadSystem(path string, debug bool) (*grimoire.Engine, error) {
	return grimoire.New(path, grimoire.WithLogger(createLogger(debug)))
}

// Validate loads a system and reports every cross-reference problem. A
// non-nil error means the system should not ship.
func Validate(path string, debug bool) error {
	eng, err := loadSystem(path, debug)
	if err != nil {
		return err
	}

	problems := eng.Validate()
	printProblems(eng)
	if len(problems) > 0 {
		return fmt.Errorf("%d validation problem(s)", len(problems))
	}
	return nil
}

// ListFlows prints every flow with its display name.
func ListFlows(path string, debug bool) error {
	eng, err := loadSystem(path, debug)
	if err != nil {
		return err
	}

	sys := eng.System()
	for _, id := range sys.FlowIDs() {
		flow, err := sys.Flow(id)
		if err != nil {
			continue
		}
		if flow.Name != "" && flow.Name != id {
			fmt.Printf("%-30s %s\n", id, flow.Name)
		} else {
			fmt.Println(id)
		}
	}
	return nil
}

// ListModels prints every model id.
func ListModels(path string, debug bool) error {
	eng, err := loadSystem(path, debug)
	if err != nil {
		return err
	}
	for _, id := range eng.System().ModelIDs() {
		fmt.Println(id)
	}
	return nil
}

// ListTables prints every table id.
func ListTables(path string, debug bool) error {
	eng, err := loadSystem(path, debug)
	if err != nil {
		return err
	}
	for _, id := range eng.System().TableIDs() {
		fmt.Println(id)
	}
	return nil
}

// Graph prints a flow's step graph as a Mermaid flowchart.
func Graph(path, flowID string, debug bool) error {
	eng, err := loadSystem(path, debug)
	if err != nil {
		return err
	}

	flow, err := eng.System().Flow(flowID)
	if err != nil {
		return err
	}
	fmt.Print(graph.GenerateMermaid(flow))
	return nil
}
