package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wyrdbound/grimoire/internal/presentation/tui"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/runner"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	SystemPath string
	FlowID     string

	// InputsJSON is the raw --inputs value, a JSON object of flow inputs.
	InputsJSON string

	JSON  bool
	Debug bool

	Seed    int64
	SeedSet bool

	// Session persists this run; ResumeID continues an earlier one.
	Session  bool
	ResumeID string

	StoreOptions
}

// Execute handles the run command: it wires a terminal or NDJSON frontend,
// builds the engine and drives the flow, optionally under a session.
func Execute(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	var inputs map[string]any
	if opts.InputsJSON != "" {
		if err := json.Unmarshal([]byte(opts.InputsJSON), &inputs); err != nil {
			return fmt.Errorf("error parsing --inputs JSON: %w", err)
		}
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
	} else {
		tui.PrintBanner()
		handler = runner.NewTextHandler(os.Stdin, os.Stdout,
			runner.WithTextHandlerRenderer(tui.NewRenderer()),
		)
	}
	r := runner.New(runner.WithHandler(handler), runner.WithLogger(logger))

	eng, err := createEngine(opts, r, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var (
		sess   *domain.Session
		result *domain.FlowResult
	)
	if opts.Session || opts.ResumeID != "" {
		sess, result, err = r.RunSession(ctx, eng, opts.FlowID, inputs, opts.ResumeID)
		if sess != nil && !opts.JSON {
			printSystemMessage("Session '%s' (%s).", sess.ID, sess.Status)
		}
	} else {
		result, err = r.Run(ctx, eng, opts.FlowID, inputs)
	}
	if err != nil {
		return handleExecutionError(err)
	}

	return printResult(result, opts.JSON)
}

// printResult writes the flow outputs: a result record in JSON mode, an
// indented block in text mode.
func printResult(result *domain.FlowResult, jsonMode bool) error {
	if result == nil {
		return nil
	}
	if jsonMode {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"type":    "result",
			"flow_id": result.FlowID,
			"outputs": result.Outputs,
		})
	}

	if len(result.Outputs) == 0 {
		return nil
	}
	pretty, err := json.MarshalIndent(result.Outputs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println()
	printSystemMessage("Outputs:")
	fmt.Println(string(pretty))
	return nil
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

// handleExecutionError maps interruptions to a clean exit; everything else
// propagates to the command runner.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}
