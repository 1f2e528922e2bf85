package main

import (
	"github.com/spf13/cobra"

	"github.com/wyrdbound/grimoire/internal/cli"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage persisted flow sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(cli.ListSessions(storeOptions(cmd)))
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Dump one session as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(cli.ShowSession(storeOptions(cmd), args[0]))
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete one session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(cli.DeleteSession(storeOptions(cmd), args[0]))
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	for _, cmd := range []*cobra.Command{sessionListCmd, sessionShowCmd, sessionDeleteCmd} {
		storeFlags(cmd, "sqlite")
		sessionCmd.AddCommand(cmd)
	}
}
