package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelens/risk"
)

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Compute a position size from entry and stop",
	Long: `Compute the position size that risks the configured share of the account
between entry and stop loss. Pip values come from the risk.pip_values table
in the config, falling back to risk.default_pip_value.

Examples:
  tradelens size --entry 1.0850 --stop 1.0820
  tradelens size --pair USDJPY --entry 151.20 --stop 150.80 --balance 10000 --risk 0.5
  tradelens size --entry 1.0850 --stop 1.0820 --tp 1.0910`,
	Args: cobra.NoArgs,
	RunE: runSize,
}

var (
	sizePair    string
	sizeEntry   float64
	sizeStop    float64
	sizeTP      float64
	sizeBalance float64
	sizeRisk    float64
)

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().StringVarP(&sizePair, "pair", "p", "", "instrument, e.g. EURUSD")
	sizeCmd.Flags().Float64VarP(&sizeEntry, "entry", "e", 0, "entry price (required)")
	sizeCmd.Flags().Float64VarP(&sizeStop, "stop", "s", 0, "stop loss price (required)")
	sizeCmd.Flags().Float64Var(&sizeTP, "tp", 0, "take profit price, to show the reward/risk")
	sizeCmd.Flags().Float64VarP(&sizeBalance, "balance", "b", 0, "account balance (default from config)")
	sizeCmd.Flags().Float64VarP(&sizeRisk, "risk", "r", 0, "risk per trade in percent (default from config)")
	sizeCmd.MarkFlagRequired("entry")
	sizeCmd.MarkFlagRequired("stop")
}

func runSize(cmd *cobra.Command, args []string) error {
	in := risk.Inputs{
		Pair:        sizePair,
		Entry:       sizeEntry,
		StopLoss:    sizeStop,
		Balance:     cfg.Risk.Balance,
		RiskPercent: cfg.Risk.RiskPercent,
	}
	if cmd.Flags().Changed("balance") {
		in.Balance = sizeBalance
	}
	if cmd.Flags().Changed("risk") {
		in.RiskPercent = sizeRisk
	}

	res := cfg.Risk.Sizer().Calculate(in)

	w := cmd.OutOrStdout()
	if !res.Computed {
		fmt.Fprintf(w, "Position size: %s (entry equals stop)\n", risk.DefaultSize)
		return nil
	}
	fmt.Fprintf(w, "Position size: %s\n", res.String())
	fmt.Fprintf(w, "  Risk:       %s (%.2f%% of %.2f)\n", res.RiskAmount.StringFixed(2), in.RiskPercent, in.Balance)
	fmt.Fprintf(w, "  Pips:       %s\n", res.PipsAtRisk.String())
	fmt.Fprintf(w, "  Pip value:  %.2f\n", res.PipValue)
	if cmd.Flags().Changed("tp") {
		fmt.Fprintf(w, "  Reward/risk: 1:%.2f\n", risk.RR(in.Entry, in.StopLoss, sizeTP))
	}
	return nil
}
