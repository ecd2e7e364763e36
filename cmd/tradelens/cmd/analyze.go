package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelens/app"
	"github.com/rustyeddy/tradelens/imaging"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <chart-image>",
	Short: "Analyse a chart screenshot and print the trade plan",
	Long: `Send a chart image (PNG, JPEG, GIF, WEBP or BMP) to the analysis service
and print the resulting trade plan with a position size for your account.

A second timeframe can be attached with --secondary. With --save the plan
is recorded in the journal as PENDING.

Examples:
  tradelens analyze eurusd-h1.png
  tradelens analyze eurusd-h1.png --secondary eurusd-m15.png --save
  tradelens analyze gbpjpy.png --strategy "Supply/Demand" --balance 10000 --risk 0.5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeSecondary string
	analyzeStrategy  string
	analyzeBalance   float64
	analyzeRisk      float64
	analyzeSave      bool
	analyzeJSON      bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeSecondary, "secondary", "", "second chart image (another timeframe)")
	analyzeCmd.Flags().StringVarP(&analyzeStrategy, "strategy", "s", "", "trading strategy (default from config)")
	analyzeCmd.Flags().Float64VarP(&analyzeBalance, "balance", "b", 0, "account balance (default from config)")
	analyzeCmd.Flags().Float64VarP(&analyzeRisk, "risk", "r", 0, "risk per trade in percent (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "save the plan to the journal")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	primary, err := readChart(args[0])
	if err != nil {
		return err
	}
	var secondary string
	if analyzeSecondary != "" {
		if secondary, err = readChart(analyzeSecondary); err != nil {
			return err
		}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req := a.NewRequest(primary)
	req.Secondary = secondary
	if analyzeStrategy != "" {
		req.Strategy = analyzeStrategy
	}
	if cmd.Flags().Changed("balance") {
		req.Balance = analyzeBalance
	}
	if cmd.Flags().Changed("risk") {
		req.RiskPercent = analyzeRisk
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	res, err := a.Analyze(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printAnalysis(out, res)
	}

	if analyzeSave {
		if _, err := a.Save(res.Plan, res.PositionSize); err != nil {
			return fmt.Errorf("save plan: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved %s to the journal\n", res.Plan.ID)
	}
	return nil
}

// readChart turns a file into a data URL. Arguments that already are data
// URLs pass through.
func readChart(path string) (string, error) {
	if strings.HasPrefix(path, "data:") {
		return path, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read chart: %w", err)
	}
	return imaging.DataURLFromBytes(b), nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printAnalysis(w io.Writer, res *app.Analysis) {
	p := res.Plan
	fmt.Fprintf(w, "%s %s  (confidence %.0f%%)\n", p.Pair, p.Bias, p.ConfidenceScore)
	fmt.Fprintf(w, "  Entry:       %.5f\n", p.Entry)
	fmt.Fprintf(w, "  Stop loss:   %.5f\n", p.StopLoss)
	fmt.Fprintf(w, "  Take profit: %.5f\n", p.TakeProfit)
	fmt.Fprintf(w, "  Risk/reward: 1:%.2f\n", p.RiskReward)
	fmt.Fprintf(w, "  Size:        %s\n", res.PositionSize)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Structure: %s\n", p.MarketStructure)
	fmt.Fprintf(w, "Verdict:   %s\n", p.ConfluenceVerdict)

	printList(w, "Key zones", p.KeyZones)
	printList(w, "Reasoning", p.Reasoning)
	printList(w, "Patterns", p.Patterns)

	if len(p.NearbyNews) > 0 {
		fmt.Fprintln(w, "\nNews:")
		for _, n := range p.NearbyNews {
			fmt.Fprintf(w, "  [%s] %s (%s)\n", n.Impact, n.Event, n.TimeRelative)
		}
	}
	if len(res.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, s := range res.Sources {
			uri := s.URI()
			if uri == "" {
				continue
			}
			fmt.Fprintf(w, "  %s  %s\n", s.Title(), uri)
		}
	}
	for _, n := range res.Notes {
		fmt.Fprintf(w, "\n! %s\n", n)
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}
