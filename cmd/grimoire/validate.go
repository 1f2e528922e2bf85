package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wyrdbound/grimoire/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate <system-dir>",
	Short: "Validate a game system's cross-references",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.Validate(args[0], debugFlag(cmd)); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <system-dir>",
	Short: "Re-validate a system whenever its files change",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.RunWatch(args[0], debugFlag(cmd)); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
}
