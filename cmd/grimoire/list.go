package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wyrdbound/grimoire/internal/cli"
)

var flowsCmd = &cobra.Command{
	Use:   "flows <system-dir>",
	Short: "List the flows of a game system",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(cli.ListFlows(args[0], debugFlag(cmd)))
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models <system-dir>",
	Short: "List the models of a game system",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(cli.ListModels(args[0], debugFlag(cmd)))
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables <system-dir>",
	Short: "List the tables of a game system",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(cli.ListTables(args[0], debugFlag(cmd)))
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph <system-dir> <flow-id>",
	Short: "Print a flow's step graph as Mermaid",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(cli.Graph(args[0], args[1], debugFlag(cmd)))
	},
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(graphCmd)
}
