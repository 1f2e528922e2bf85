package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wyrdbound/grimoire"
	"github.com/wyrdbound/grimoire/internal/logging"
	mcpAdapter "github.com/wyrdbound/grimoire/pkg/adapters/mcp"
	"github.com/wyrdbound/grimoire/pkg/adapters/memory"
	"github.com/wyrdbound/grimoire/pkg/runner"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <system-dir>",
	Short: "Expose a game system as an MCP server",
	Long: `Serves the system's flows to MCP clients: tools to list, describe and
run flows, plus resources for the raw definitions. Defaults to stdio
transport; use --sse for Server-Sent Events over HTTP.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sse, _ := cmd.Flags().GetBool("sse")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to stderr; stdout belongs to the stdio transport.
		logger := logging.New(slog.LevelInfo)

		eng, err := grimoire.New(args[0],
			grimoire.WithLogger(logger),
			grimoire.WithInteraction(runner.Scripted{}),
			grimoire.WithStore(memory.NewStore()),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
			os.Exit(1)
		}

		srv := mcpAdapter.NewServer(eng, mcpAdapter.WithLogger(logger))

		if sse {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ServeSSE(ctx, port); err != nil {
				fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if err := srv.ServeStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Bool("sse", false, "Serve over SSE instead of stdio")
	mcpCmd.Flags().Int("port", 8765, "Port for the SSE transport")
}
