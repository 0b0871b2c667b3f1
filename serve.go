package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/electr1fy0/scribe/config"
	"github.com/electr1fy0/scribe/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured notebook to remote scribe clients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := consoleLogger()
		if cfg.Backend == config.BackendRemote {
			return errors.New("serve needs a local backend (file, sqlite or postgres)")
		}
		if listenAddr != "" {
			cfg.Listen = listenAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, closeRepo, err := openHeadless(ctx, log)
		if err != nil {
			return err
		}
		defer closeRepo()

		if cfg.Token == "" {
			log.Warn().Msg("no token configured; any client can connect")
		}
		srv := server.New(repo, server.WithToken(cfg.Token), server.WithLogger(log))
		return srv.ListenAndServe(ctx, cfg.Listen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
