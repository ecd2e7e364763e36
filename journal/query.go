package journal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelens/plan"
)

// StatusAll matches every status in a Filter.
const StatusAll = "ALL"

// Filter selects entries whose pair contains Pair (any case) and whose
// status is exactly Status. Empty fields, or Status "ALL", match everything.
// User input goes through ParseFilterStatus first.
type Filter struct {
	Pair   string
	Status string
}

func (f Filter) Match(e plan.JournalEntry) bool {
	if f.Pair != "" && !strings.Contains(strings.ToUpper(e.Pair), strings.ToUpper(strings.TrimSpace(f.Pair))) {
		return false
	}
	if f.Status == "" || f.Status == StatusAll {
		return true
	}
	return e.Status == plan.Status(f.Status)
}

// ParseFilterStatus canonicalizes a status typed by a user: any letter case
// of a status or of "ALL" is accepted, blank means all.
func ParseFilterStatus(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, StatusAll) {
		return StatusAll, nil
	}
	st, err := plan.ParseStatus(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}
	return string(st), nil
}

// FilterEntries returns the matching entries in their original order.
func FilterEntries(entries []plan.JournalEntry, f Filter) []plan.JournalEntry {
	out := make([]plan.JournalEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Filter applies f to the current list.
func (l *Ledger) Filter(f Filter) []plan.JournalEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return FilterEntries(l.entries, f)
}

// Recent returns up to n of the newest entries.
func (l *Ledger) Recent(n int) []plan.JournalEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	return clone(l.entries[:n])
}

// Stats summarises outcomes. WinRate is WON over all entries, in percent
// with one decimal.
type Stats struct {
	Total   int     `json:"total"`
	Pending int     `json:"pending"`
	Won     int     `json:"won"`
	Lost    int     `json:"lost"`
	Closed  int     `json:"closed"`
	WinRate float64 `json:"winRate"`
}

func ComputeStats(entries []plan.JournalEntry) Stats {
	var s Stats
	s.Total = len(entries)
	for _, e := range entries {
		switch e.Status {
		case plan.Pending:
			s.Pending++
		case plan.Won:
			s.Won++
		case plan.Lost:
			s.Lost++
		case plan.Closed:
			s.Closed++
		}
	}
	if s.Total > 0 {
		s.WinRate = decimal.NewFromInt(int64(s.Won)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(s.Total))).
			Round(1).
			InexactFloat64()
	}
	return s
}

func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ComputeStats(l.entries)
}
