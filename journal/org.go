package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradelens/plan"
)

// FormatEntryOrg renders a journal entry as an Org-mode block suitable for
// pasting into a trading journal. Structured facts go in a PROPERTIES
// drawer; the analysis narrative follows as sub-headings.
func FormatEntryOrg(e plan.JournalEntry) string {
	heading := fmt.Sprintf("** %s %s %s (%s)", orgTodo(e.Status), e.Pair, e.Bias, shortID(e.ID))
	created := e.Time().UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", e.ID))
	b.WriteString(fmt.Sprintf(":PAIR: %s\n", e.Pair))
	b.WriteString(fmt.Sprintf(":BIAS: %s\n", e.Bias))
	b.WriteString(fmt.Sprintf(":STATUS: %s\n", e.Status))
	b.WriteString(fmt.Sprintf(":CREATED: %s\n", created))
	b.WriteString(fmt.Sprintf(":ENTRY: %.5f\n", e.Entry))
	b.WriteString(fmt.Sprintf(":STOP_LOSS: %.5f\n", e.StopLoss))
	b.WriteString(fmt.Sprintf(":TAKE_PROFIT: %.5f\n", e.TakeProfit))
	b.WriteString(fmt.Sprintf(":RISK_REWARD: %.2f\n", e.RiskReward))
	b.WriteString(fmt.Sprintf(":CONFIDENCE: %.0f\n", e.ConfidenceScore))
	if e.PositionSize != "" {
		b.WriteString(fmt.Sprintf(":POSITION_SIZE: %s\n", e.PositionSize))
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")

	b.WriteString("*** Structure\n")
	b.WriteString(fmt.Sprintf("%s\n", e.MarketStructure))
	b.WriteString(fmt.Sprintf("Verdict: %s\n\n", e.ConfluenceVerdict))
	orgList(&b, "Key Zones", e.KeyZones)
	orgList(&b, "Reasoning", e.Reasoning)
	orgList(&b, "Patterns", e.Patterns)
	if len(e.NearbyNews) > 0 {
		b.WriteString("*** News\n")
		b.WriteString("| Event | When | Impact |\n")
		b.WriteString("|-------+------+--------|\n")
		for _, n := range e.NearbyNews {
			b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", n.Event, n.TimeRelative, n.Impact))
		}
		b.WriteString("\n")
	}
	b.WriteString("*** Review\n")
	if e.Notes != "" {
		orgBody(&b, e.Notes)
	} else {
		b.WriteString("- \n")
	}

	return b.String()
}

// FormatEntriesOrg renders multiple entries separated by blank lines.
func FormatEntriesOrg(entries []plan.JournalEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatEntryOrg(e))
	}
	return b.String()
}

func orgList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("*** " + title + "\n")
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
	b.WriteString("\n")
}

// orgBody writes free text indented by two spaces, so no line of it can
// start a heading or a drawer.
func orgBody(b *strings.Builder, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		b.WriteString("  " + strings.TrimRight(line, "\r") + "\n")
	}
}

// orgTodo maps a status onto an Org TODO keyword.
func orgTodo(s plan.Status) string {
	switch s {
	case plan.Won, plan.Lost, plan.Closed:
		return "DONE"
	}
	return "TODO"
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
