package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wyrdbound/grimoire"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the grimoire version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("grimoire %s\n", grimoire.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
