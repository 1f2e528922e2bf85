package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wyrdbound/grimoire/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <system-dir> <flow-id>",
	Short: "Run a flow interactively",
	Long: `Loads the game system from a directory and executes the named flow,
prompting on the terminal for input and choice steps.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		jsonMode, _ := cmd.Flags().GetBool("json")
		inputsJSON, _ := cmd.Flags().GetString("inputs")
		session, _ := cmd.Flags().GetBool("session")
		resumeID, _ := cmd.Flags().GetString("resume")
		seed, _ := cmd.Flags().GetInt64("seed")

		opts := cli.RunOptions{
			SystemPath:   args[0],
			FlowID:       args[1],
			InputsJSON:   inputsJSON,
			JSON:         jsonMode,
			Debug:        debugFlag(cmd),
			Seed:         seed,
			SeedSet:      cmd.Flags().Changed("seed"),
			Session:      session,
			ResumeID:     resumeID,
			StoreOptions: storeOptions(cmd),
		}

		if err := cli.Execute(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().String("inputs", "", "Flow inputs as a JSON object")
	runCmd.Flags().Bool("session", false, "Persist this run as a resumable session")
	runCmd.Flags().String("resume", "", "Resume a session by id instead of starting a new run")
	runCmd.Flags().Int64("seed", 0, "Seed the dice roller for reproducible rolls")
	storeFlags(runCmd, "sqlite")
}
