package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelens/app"
	"github.com/rustyeddy/tradelens/config"
	"github.com/rustyeddy/tradelens/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "tradelens",
	Short: "Chart-to-trade-plan analysis with position sizing and a trade journal",
	Long: `Tradelens turns a forex chart screenshot into a structured trade plan.

It provides tools for:
  - Analysing chart images with Gemini (search-grounded)
  - Risk-based position sizing with per-instrument pip values
  - Keeping a journal of saved plans and their outcomes
  - Serving all of the above over HTTP

Configuration is read from --config (YAML or JSON), then .env and the
environment (GEMINI_API_KEY, GEMINI_MODEL, TRADELENS_BALANCE, ...).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

var (
	cfgFile  string
	logLevel string

	// loaded by setup for every command
	cfg       *config.Config
	logCloser io.Closer

	// applied to every app after the command's own options
	appOptions []app.Option
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	closer, err := logger.Setup(c.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg, logCloser = c, closer
	return nil
}

func teardown() error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// openApp builds the application from the loaded config. The caller owns
// the returned app and must Close it.
func openApp(opts ...app.Option) (*app.App, error) {
	return app.New(cfg, append(opts, appOptions...)...)
}
