package journal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tradelens/plan"
)

func TestFormatEntryOrg(t *testing.T) {
	t.Parallel()

	p := testPlan("01HZX3K9ABCDEF", "EURUSD")
	p.Timestamp = 1710498645000
	p.PositionSize = "1666.67"
	p.NearbyNews = []plan.NewsEvent{{Event: "CPI", TimeRelative: "in 2h", Impact: plan.ImpactHigh}}
	e := plan.NewEntry(p)

	result := FormatEntryOrg(e)

	// Check heading
	assert.Contains(t, result, "** TODO EURUSD BULLISH (01HZX3K9)")

	// Check properties drawer
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":ID: 01HZX3K9ABCDEF")
	assert.Contains(t, result, ":PAIR: EURUSD")
	assert.Contains(t, result, ":STATUS: PENDING")
	assert.Contains(t, result, ":CREATED: 2024-03-15T10:30:45Z")
	assert.Contains(t, result, ":ENTRY: 1.08500")
	assert.Contains(t, result, ":STOP_LOSS: 1.08200")
	assert.Contains(t, result, ":TAKE_PROFIT: 1.09100")
	assert.Contains(t, result, ":RISK_REWARD: 2.00")
	assert.Contains(t, result, ":CONFIDENCE: 80")
	assert.Contains(t, result, ":POSITION_SIZE: 1666.67")
	assert.Contains(t, result, ":END:")

	// Check narrative sections
	assert.Contains(t, result, "*** Structure\nHH/HL\nVerdict: Strong")
	assert.Contains(t, result, "*** Key Zones\n- 1.0820\n")
	assert.Contains(t, result, "*** Reasoning\n- sweep\n")
	assert.NotContains(t, result, "*** Patterns")
	assert.Contains(t, result, "| CPI | in 2h | HIGH |")
	assert.Contains(t, result, "*** Review\n- \n")
}

func TestFormatEntryOrgClosedWithNotes(t *testing.T) {
	t.Parallel()

	e := plan.NewEntry(testPlan("short", "XAUUSD"))
	e.Status = plan.Lost
	e.Notes = "news spike"

	result := FormatEntryOrg(e)
	assert.Contains(t, result, "** DONE XAUUSD BULLISH (short)")
	assert.Contains(t, result, "*** Review\n  news spike\n")
	assert.NotContains(t, result, ":POSITION_SIZE:")
	assert.NotContains(t, result, "*** News")
}

func TestFormatEntryOrgNotesCannotStartHeadings(t *testing.T) {
	t.Parallel()

	e := plan.NewEntry(testPlan("n1", "EURUSD"))
	e.Notes = "* not a heading\n** nor this\n:END:\n"

	result := FormatEntryOrg(e)
	assert.Contains(t, result, "*** Review\n  * not a heading\n  ** nor this\n  :END:\n")
	for _, line := range strings.Split(result, "\n") {
		if strings.HasPrefix(line, "*") {
			assert.Regexp(t, `^\*{2,3} `, line)
			assert.NotContains(t, line, "heading")
			assert.NotContains(t, line, "nor this")
		}
	}
}

func TestFormatEntriesOrg(t *testing.T) {
	t.Parallel()

	entries := []plan.JournalEntry{
		plan.NewEntry(testPlan("entry-001", "EURUSD")),
		plan.NewEntry(testPlan("entry-002", "GBPUSD")),
	}

	result := FormatEntriesOrg(entries)

	assert.Contains(t, result, "EURUSD")
	assert.Contains(t, result, "GBPUSD")
	assert.Contains(t, result, "entry-001")
	assert.Contains(t, result, "entry-002")

	parts := strings.Split(result, "\n\n\n")
	assert.Len(t, parts, 2, "Expected two entries separated by blank lines")
}

func TestFormatEntriesOrgEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatEntriesOrg(nil))
}
