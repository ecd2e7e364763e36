package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelens/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis, sizing and journal API over HTTP",
	Long: `Start the HTTP API. It runs until interrupted and then drains
in-flight requests for server.shutdown_timeout.

Example:
  tradelens --config tradelens.yaml serve --listen :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Listen
	if serveListen != "" {
		addr = serveListen
	}
	timeout, err := cfg.Server.ParseShutdownTimeout()
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.NewServer(a).Run(ctx, addr, timeout); err != nil {
		log.Error().Err(err).Str("listen", addr).Msg("http server failed")
		return err
	}
	log.Info().Msg("bye")
	return nil
}
