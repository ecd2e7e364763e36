package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelens/config"
	"github.com/rustyeddy/tradelens/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage tradelens configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

The API key is never written to a config file; set GEMINI_API_KEY in the
environment or a .env file.

Examples:
  tradelens config init -o tradelens.yaml
  tradelens config validate -f tradelens.yaml`,
	// config files are the subject here, not the input
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		closer, err := logger.Setup(config.Default().Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format follows
the extension: .json writes JSON, anything else YAML.

Example:
  tradelens config init -o tradelens.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  tradelens config validate -f tradelens.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "tradelens.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if err := c.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(w, "\nSet GEMINI_API_KEY, edit the file and run with:")
	fmt.Fprintf(w, "  tradelens --config %s serve\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(w, "  Model:    %s (strategy %s)\n", c.Gemini.Model, c.Gemini.Strategy)
	fmt.Fprintf(w, "  Account:  %.2f (risk %.2f%%)\n", c.Risk.Balance, c.Risk.RiskPercent)
	fmt.Fprintf(w, "  Ledger:   %s %s\n", c.Ledger.Backend, c.Ledger.Path)
	fmt.Fprintf(w, "  Listen:   %s\n", c.Server.Listen)
	if len(c.Risk.PipValues) > 0 {
		fmt.Fprintf(w, "  Pip values for %d instruments\n", len(c.Risk.PipValues))
	}
	return nil
}
