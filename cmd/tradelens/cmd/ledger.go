package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelens/journal"
	"github.com/rustyeddy/tradelens/plan"
	"github.com/rustyeddy/tradelens/risk"
)

var ledgerCmd = &cobra.Command{
	Use:     "ledger",
	Aliases: []string{"journal"},
	Short:   "Query and edit the trade journal",
	Long: `Query and edit saved trade plans.

Subcommands:
  list    - List entries, newest first
  show    - Show one entry in org-mode form
  status  - Set an entry's outcome (PENDING, WON, LOST, CLOSED)
  notes   - Set an entry's review notes
  delete  - Remove an entry
  stats   - Win/loss counts and win rate
  export  - Write the journal as CSV, org or JSON

Examples:
  tradelens ledger list --pair eur --status won
  tradelens ledger status 01J0ABC... won
  tradelens ledger export --format csv -o journal.csv`,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries",
	Args:  cobra.NoArgs,
	RunE:  runLedgerList,
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a journal entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerShow,
}

var ledgerStatusCmd = &cobra.Command{
	Use:   "status <id> <PENDING|WON|LOST|CLOSED>",
	Short: "Set the outcome of an entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runLedgerStatus,
}

var ledgerNotesCmd = &cobra.Command{
	Use:   "notes <id> <text...>",
	Short: "Set the review notes of an entry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLedgerNotes,
}

var ledgerDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerDelete,
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show journal statistics",
	Args:  cobra.NoArgs,
	RunE:  runLedgerStats,
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journal",
	Args:  cobra.NoArgs,
	RunE:  runLedgerExport,
}

var (
	ledgerPair   string
	ledgerStatus string
	ledgerLimit  int
	ledgerJSON   bool
	exportFormat string
	exportOutput string
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerStatusCmd)
	ledgerCmd.AddCommand(ledgerNotesCmd)
	ledgerCmd.AddCommand(ledgerDeleteCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd)
	ledgerCmd.AddCommand(ledgerExportCmd)

	ledgerListCmd.Flags().StringVarP(&ledgerPair, "pair", "p", "", "filter by pair (substring, case-insensitive)")
	ledgerListCmd.Flags().StringVarP(&ledgerStatus, "status", "s", journal.StatusAll, "filter by status")
	ledgerListCmd.Flags().IntVarP(&ledgerLimit, "limit", "n", 0, "show at most n entries (0 = all)")
	ledgerListCmd.Flags().BoolVar(&ledgerJSON, "json", false, "print entries as JSON")

	ledgerShowCmd.Flags().BoolVar(&ledgerJSON, "json", false, "print the entry as JSON")
	ledgerStatsCmd.Flags().BoolVar(&ledgerJSON, "json", false, "print stats as JSON")

	ledgerExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format: csv, org or json")
	ledgerExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := journal.ParseFilterStatus(ledgerStatus)
	if err != nil {
		return err
	}

	entries := a.Ledger().Filter(journal.Filter{Pair: ledgerPair, Status: status})
	if ledgerLimit > 0 && len(entries) > ledgerLimit {
		entries = entries[:ledgerLimit]
	}

	w := cmd.OutOrStdout()
	if ledgerJSON {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No journal entries.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-26s  %s  %-8s %-8s %-7s %.5f -> %.5f  size %s\n",
			e.ID, e.Time().Format("2006-01-02 15:04"), e.Pair, e.Bias, e.Status,
			e.Entry, e.TakeProfit, sizeOrDefault(e.PositionSize))
	}
	return nil
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := a.Ledger().Get(args[0])
	if err != nil {
		return err
	}
	if ledgerJSON {
		return printJSON(cmd.OutOrStdout(), e)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntryOrg(e))
	return nil
}

func runLedgerStatus(cmd *cobra.Command, args []string) error {
	st, err := plan.ParseStatus(args[1])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := a.Ledger().UpdateStatus(args[0], st)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s is now %s\n", e.ID, e.Pair, e.Status)
	return nil
}

func runLedgerNotes(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := a.Ledger().SetNotes(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Notes updated for %s\n", e.ID)
	return nil
}

func runLedgerDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Ledger().Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
	return nil
}

func runLedgerStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.Ledger().Stats()
	w := cmd.OutOrStdout()
	if ledgerJSON {
		return printJSON(w, st)
	}
	fmt.Fprintf(w, "Total:    %d\n", st.Total)
	fmt.Fprintf(w, "Pending:  %d\n", st.Pending)
	fmt.Fprintf(w, "Won:      %d\n", st.Won)
	fmt.Fprintf(w, "Lost:     %d\n", st.Lost)
	fmt.Fprintf(w, "Closed:   %d\n", st.Closed)
	fmt.Fprintf(w, "Win rate: %.1f%%\n", st.WinRate)
	if at, ok := a.Ledger().SavedAt(); ok {
		fmt.Fprintf(w, "Saved:    %s\n", at.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	entries, _ := a.Ledger().Snapshot()
	switch strings.ToLower(exportFormat) {
	case "csv":
		err = journal.WriteCSV(w, entries)
	case "org":
		_, err = fmt.Fprintln(w, journal.FormatEntriesOrg(entries))
	case "json":
		err = journal.WriteJSON(w, entries)
	default:
		return fmt.Errorf("unknown export format %q (want csv, org or json)", exportFormat)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if exportOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d entries to %s\n", len(entries), exportOutput)
	}
	return nil
}

func sizeOrDefault(s string) string {
	if s == "" {
		return risk.DefaultSize
	}
	return s
}
