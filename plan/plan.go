// Package plan holds the trade plan and journal entry types shared by the
// analysis client, the position sizer and the ledger.
package plan

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Bias is the directional stance of a trade plan.
type Bias string

const (
	Bullish Bias = "BULLISH"
	Bearish Bias = "BEARISH"
	Neutral Bias = "NEUTRAL"
)

// Impact is the expected market impact of a news event.
type Impact string

const (
	ImpactLow    Impact = "LOW"
	ImpactMedium Impact = "MEDIUM"
	ImpactHigh   Impact = "HIGH"
)

// Status tracks the outcome of a recorded plan.
type Status string

const (
	Pending Status = "PENDING"
	Won     Status = "WON"
	Lost    Status = "LOST"
	Closed  Status = "CLOSED"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{Pending, Won, Lost, Closed}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case Pending, Won, Lost, Closed:
		return true
	}
	return false
}

// ParseStatus accepts a status in any letter case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// NewsEvent is an economic event near the analysed setup.
type NewsEvent struct {
	Event        string `json:"event"`
	TimeRelative string `json:"timeRelative"`
	Impact       Impact `json:"impact"`
}

// TradePlan is the recommendation derived from a chart analysis. ID and
// Timestamp are assigned by the caller, PositionSize by the sizer at save
// time; everything else comes from the inference service.
type TradePlan struct {
	ID                string      `json:"id"`
	Timestamp         int64       `json:"timestamp"` // ms since epoch
	Pair              string      `json:"pair"`
	Bias              Bias        `json:"bias"`
	Entry             float64     `json:"entry"`
	StopLoss          float64     `json:"stopLoss"`
	TakeProfit        float64     `json:"takeProfit"`
	RiskReward        float64     `json:"riskReward"`
	ConfidenceScore   float64     `json:"confidenceScore"`
	PositionSize      string      `json:"positionSize,omitempty"`
	MarketStructure   string      `json:"marketStructure"`
	ConfluenceVerdict string      `json:"confluenceVerdict"`
	KeyZones          []string    `json:"keyZones"`
	Reasoning         []string    `json:"reasoning"`
	Patterns          []string    `json:"patterns"`
	NearbyNews        []NewsEvent `json:"nearbyNews"`
	ImageURL          string      `json:"imageUrl"`
	SecondaryImageURL string      `json:"secondaryImageUrl,omitempty"`
}

// Time returns the plan's creation time.
func (p TradePlan) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Clone returns a copy of p that shares no slices with it. Nil slices stay
// nil so the JSON form is unchanged.
func (p TradePlan) Clone() TradePlan {
	p.KeyZones = slices.Clone(p.KeyZones)
	p.Reasoning = slices.Clone(p.Reasoning)
	p.Patterns = slices.Clone(p.Patterns)
	p.NearbyNews = slices.Clone(p.NearbyNews)
	return p
}

// JournalEntry is a saved plan plus its outcome tracking.
type JournalEntry struct {
	TradePlan
	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// NewEntry wraps a copy of p as a pending journal entry.
func NewEntry(p TradePlan) JournalEntry {
	return JournalEntry{TradePlan: p.Clone(), Status: Pending}
}

// Clone returns a copy of e that shares no slices with it.
func (e JournalEntry) Clone() JournalEntry {
	e.TradePlan = e.TradePlan.Clone()
	return e
}
