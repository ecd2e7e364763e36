package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rustyeddy/tradelens/plan"
)

// CSVHeader is the column order written by WriteCSV.
var CSVHeader = []string{
	"id", "time", "pair", "bias", "status", "entry", "stop_loss", "take_profit",
	"risk_reward", "confidence", "position_size", "confluence", "notes",
}

// WriteCSV writes entries one row each, header first.
func WriteCSV(w io.Writer, entries []plan.JournalEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		err := cw.Write([]string{
			e.ID,
			e.Time().UTC().Format(time.RFC3339),
			e.Pair,
			string(e.Bias),
			string(e.Status),
			price(e.Entry),
			price(e.StopLoss),
			price(e.TakeProfit),
			strconv.FormatFloat(e.RiskReward, 'f', 2, 64),
			strconv.FormatFloat(e.ConfidenceScore, 'f', -1, 64),
			e.PositionSize,
			e.ConfluenceVerdict,
			strings.ReplaceAll(e.Notes, "\n", " "),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes entries as an indented JSON array, the same shape the
// ledger persists.
func WriteJSON(w io.Writer, entries []plan.JournalEntry) error {
	if entries == nil {
		entries = []plan.JournalEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func price(x float64) string {
	return strconv.FormatFloat(x, 'f', 5, 64)
}
