package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wyrdbound/grimoire"
	httpAdapter "github.com/wyrdbound/grimoire/internal/adapters/http"
	"github.com/wyrdbound/grimoire/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve [system-dir]",
	Short: "Start the HTTP server",
	Long: `Exposes the game system over a JSON API: flow discovery, one-shot
execution and persisted sessions. Configuration comes from GRIMOIRE_*
environment variables; the system directory argument and flags override it.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := httpAdapter.LoadConfig()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(args) > 0 {
			cfg.SystemPath = args[0]
		}
		if cmd.Flags().Changed("addr") {
			cfg.Address, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("store") {
			cfg.Store, _ = cmd.Flags().GetString("store")
		}

		logger := logging.New(slog.LevelInfo)
		metrics := httpAdapter.NewMetrics()
		eng, err := httpAdapter.NewEngine(cfg, logger, grimoire.WithHooks(metrics.Hooks()))
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}

		srv := &http.Server{
			Addr:    cfg.Address,
			Handler: httpAdapter.NewHandler(eng, httpAdapter.WithLogger(logger), httpAdapter.WithMetrics(metrics)),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Serving system '%s' on %s\n", eng.System().System.ID, srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nShutting down... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete: %v\n", err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error closing server: %v\n", err)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("store", "memory", "Session store backend (memory, file, sqlite, redis, none)")
}
