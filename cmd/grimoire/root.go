package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wyrdbound/grimoire/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "grimoire",
	Short: "Grimoire runs YAML-defined tabletop RPG systems",
	Long: `Grimoire loads a game system defined in YAML (models, flows, tables,
compendiums and prompts) and executes its flows interactively or as a server.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
}

// storeFlags registers the session store flags shared by run and session.
func storeFlags(cmd *cobra.Command, defaultBackend string) {
	cmd.Flags().String("store", defaultBackend, "Session store backend (memory, file, sqlite, redis, none)")
	cmd.Flags().String("file-path", "", "Session directory (store=file)")
	cmd.Flags().String("sqlite-path", cli.DefaultSQLitePath, "SQLite database path (store=sqlite)")
	cmd.Flags().String("redis-addr", "localhost:6379", "Redis address (store=redis)")
	cmd.Flags().String("redis-password", "", "Redis password (store=redis)")
	cmd.Flags().Int("redis-db", 0, "Redis database number (store=redis)")
}

func storeOptions(cmd *cobra.Command) cli.StoreOptions {
	backend, _ := cmd.Flags().GetString("store")
	filePath, _ := cmd.Flags().GetString("file-path")
	sqlitePath, _ := cmd.Flags().GetString("sqlite-path")
	redisAddr, _ := cmd.Flags().GetString("redis-addr")
	redisPassword, _ := cmd.Flags().GetString("redis-password")
	redisDB, _ := cmd.Flags().GetInt("redis-db")
	return cli.StoreOptions{
		Backend:       backend,
		FilePath:      filePath,
		SQLitePath:    sqlitePath,
		RedisAddr:     redisAddr,
		RedisPassword: redisPassword,
		RedisDB:       redisDB,
	}
}

func debugFlag(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}
