package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the tradelens CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "tradelens version %s\n", version)
		fmt.Fprintf(w, "model %s\n", cfg.Gemini.Model)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
