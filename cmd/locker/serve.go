package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cosmicvault/locker/internal/accounts"
	"github.com/cosmicvault/locker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the locker HTTP API",
	Long: `Serve starts the HTTP API for signup, login, and vault
operations. The server shuts down cleanly on SIGINT or SIGTERM.`,
	Example: `  locker serve
  locker serve --addr :8080`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	svc, err := newVaultService()
	if err != nil {
		return err
	}
	defer svc.Close()

	accts, err := accounts.NewStore(cfg.Storage.UsersPath, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(&cfg.Server, accts, svc, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printInfo("Listening on %s", cfg.Server.Addr)
	return srv.ListenAndServe(ctx)
}
